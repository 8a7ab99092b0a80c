package models

import (
	"time"

	"github.com/google/uuid"
)

// ClaimOutcome - результат гонки за инцидент. Проигрыш не является ошибкой.
type ClaimOutcome string

const (
	ClaimWon  ClaimOutcome = "won"
	ClaimLost ClaimOutcome = "lost"
)

// RecordKind различает отчеты и тревоги в очереди подбора
type RecordKind string

const (
	KindReport RecordKind = "report"
	KindPanic  RecordKind = "panic"
)

// MatchJob - запись, ожидающая подбора волонтеров
type MatchJob struct {
	Kind     RecordKind `json:"kind"`
	RecordID uuid.UUID  `json:"record_id"`
	Attempt  int        `json:"attempt"`
}

// MatchAttempt - итог попытки подбора, сохраняемый в записи
type MatchAttempt struct {
	Attempts       int
	ManualHandling bool
	// NextMatchAt - срок следующей попытки; nil, если повторов не будет
	NextMatchAt *time.Time
}
