package models

import (
	"time"

	"github.com/google/uuid"
)

type ReportStatus string

const (
	ReportPending    ReportStatus = "pending"
	ReportInProgress ReportStatus = "in-progress"
	ReportResolved   ReportStatus = "resolved"
)

func (s ReportStatus) Valid() bool {
	switch s {
	case ReportPending, ReportInProgress, ReportResolved:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Report - инцидент, отправленный заявителем
type Report struct {
	ID                  uuid.UUID    `json:"id"`
	ReporterID          string       `json:"reporter_id"`
	Description         string       `json:"description"`
	Location            Location     `json:"location"`
	Priority            Priority     `json:"priority"`
	IsAnonymous         bool         `json:"is_anonymous"`
	HasVoiceNote        bool         `json:"has_voice_note"`
	HasPhoto            bool         `json:"has_photo"`
	Status              ReportStatus `json:"status"`
	AssignedResponderID *string      `json:"assigned_responder_id,omitempty"`
	MatchAttempts       int          `json:"match_attempts"`
	ManualHandling      bool         `json:"manual_handling"`
	NextMatchAt         *time.Time   `json:"next_match_at,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// Clone возвращает копию, не разделяющую указатели с оригиналом
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	cloned := *r
	if r.AssignedResponderID != nil {
		id := *r.AssignedResponderID
		cloned.AssignedResponderID = &id
	}
	if r.NextMatchAt != nil {
		at := *r.NextMatchAt
		cloned.NextMatchAt = &at
	}
	return &cloned
}

// AwaitingMatch сообщает, что отчет еще ждет волонтера
func (r *Report) AwaitingMatch() bool {
	return r.Status == ReportPending && r.AssignedResponderID == nil
}

// ReportDraft - входные данные для создания отчета
type ReportDraft struct {
	ReporterID   string    `validate:"required"`
	Description  string    `validate:"required"`
	Location     *Location `validate:"required"`
	Priority     Priority  `validate:"omitempty,oneof=low medium high"`
	IsAnonymous  bool
	HasVoiceNote bool
	HasPhoto     bool
}

// ReportFilter - параметры выборки списка отчетов
type ReportFilter struct {
	ReporterID  string
	ResponderID string
	Status      ReportStatus
	Page        int
	PageSize    int
}
