package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type AlertStatus string

const (
	AlertActive     AlertStatus = "active"
	AlertResolved   AlertStatus = "resolved"
	AlertFalseAlarm AlertStatus = "false_alarm"
)

func (s AlertStatus) Valid() bool {
	switch s {
	case AlertActive, AlertResolved, AlertFalseAlarm:
		return true
	}
	return false
}

// PanicAlert - зафиксированный экстренный сигнал заявителя
type PanicAlert struct {
	ID             uuid.UUID   `json:"id"`
	ReporterID     string      `json:"reporter_id"`
	Location       *Location   `json:"location"`
	Status         AlertStatus `json:"status"`
	ResponderIDs   []string    `json:"responder_ids"`
	ClosedBy       *string     `json:"closed_by,omitempty"`
	MatchAttempts  int         `json:"match_attempts"`
	ManualHandling bool        `json:"manual_handling"`
	NextMatchAt    *time.Time  `json:"next_match_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func (a *PanicAlert) Clone() *PanicAlert {
	if a == nil {
		return nil
	}
	cloned := *a
	if a.Location != nil {
		loc := *a.Location
		cloned.Location = &loc
	}
	cloned.ResponderIDs = slices.Clone(a.ResponderIDs)
	if a.ClosedBy != nil {
		by := *a.ClosedBy
		cloned.ClosedBy = &by
	}
	if a.NextMatchAt != nil {
		at := *a.NextMatchAt
		cloned.NextMatchAt = &at
	}
	return &cloned
}

// AwaitingMatch сообщает, что на активную тревогу еще никто не откликнулся
func (a *PanicAlert) AwaitingMatch() bool {
	return a.Status == AlertActive && len(a.ResponderIDs) == 0
}

// ActivateAlert - намерение активировать тревогу, которое выдает триггер
type ActivateAlert struct {
	ReporterID string    `json:"reporter_id"`
	Location   *Location `json:"location"`
}
