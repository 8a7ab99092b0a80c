package v1

import (
	"time"

	"github.com/google/uuid"
)

// CreateReportRequest DTO для подачи отчета
// @Description DTO для подачи отчета об инциденте
type CreateReportRequest struct {
	Description  string   `json:"description" validate:"required,max=2000"`
	Latitude     *float64 `json:"latitude" validate:"required,lat"`
	Longitude    *float64 `json:"longitude" validate:"required,lng"`
	Address      string   `json:"address,omitempty" validate:"max=500"`
	Priority     string   `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	IsAnonymous  bool     `json:"is_anonymous"`
	HasVoiceNote bool     `json:"has_voice_note"`
	HasPhoto     bool     `json:"has_photo"`
}

// UpdateStatusRequest DTO для перехода статуса отчета
// @Description DTO для перехода статуса отчета
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending in-progress resolved"`
}

// LocationResponse DTO координат
// @Description DTO координат
type LocationResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// ReportResponse DTO для ответа с отчетом
// @Description DTO для ответа с отчетом. У анонимных отчетов reporter_id не возвращается.
type ReportResponse struct {
	ID                  uuid.UUID        `json:"id"`
	ReporterID          string           `json:"reporter_id,omitempty"`
	Description         string           `json:"description"`
	Location            LocationResponse `json:"location"`
	Priority            string           `json:"priority"`
	IsAnonymous         bool             `json:"is_anonymous"`
	HasVoiceNote        bool             `json:"has_voice_note"`
	HasPhoto            bool             `json:"has_photo"`
	Status              string           `json:"status"`
	AssignedResponderID *string          `json:"assigned_responder_id,omitempty"`
	MatchAttempts       int              `json:"match_attempts"`
	ManualHandling      bool             `json:"manual_handling"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// ClaimResponse DTO результата гонки за запись
// @Description DTO результата гонки за запись
type ClaimResponse struct {
	Outcome string `json:"outcome"`
	Message string `json:"message,omitempty"`
}

// TriggerPanicRequest DTO для активации тревоги. Координаты необязательны.
// @Description DTO для активации тревоги
type TriggerPanicRequest struct {
	Latitude  *float64 `json:"latitude,omitempty" validate:"required_with=Longitude,omitempty,lat"`
	Longitude *float64 `json:"longitude,omitempty" validate:"required_with=Latitude,omitempty,lng"`
	Address   string   `json:"address,omitempty" validate:"max=500"`
}

// PanicAlertResponse DTO для ответа с тревогой
// @Description DTO для ответа с тревогой
type PanicAlertResponse struct {
	ID             uuid.UUID         `json:"id"`
	ReporterID     string            `json:"reporter_id"`
	Location       *LocationResponse `json:"location"`
	Status         string            `json:"status"`
	ResponderIDs   []string          `json:"responder_ids"`
	ClosedBy       *string           `json:"closed_by,omitempty"`
	MatchAttempts  int               `json:"match_attempts"`
	ManualHandling bool              `json:"manual_handling"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// AvailabilityRequest DTO для переключения доступности волонтера
// @Description DTO для переключения доступности волонтера
type AvailabilityRequest struct {
	Available *bool    `json:"available" validate:"required"`
	Latitude  *float64 `json:"latitude,omitempty" validate:"required_with=Longitude,omitempty,lat"`
	Longitude *float64 `json:"longitude,omitempty" validate:"required_with=Latitude,omitempty,lng"`
}

// ResponderResponse DTO для ответа с волонтером
// @Description DTO для ответа с волонтером
type ResponderResponse struct {
	ID                    string            `json:"id"`
	Available             bool              `json:"available"`
	Location              *LocationResponse `json:"location,omitempty"`
	AvailabilityChangedAt time.Time         `json:"availability_changed_at"`
}

// CreateContactRequest DTO для добавления экстренного контакта
// @Description DTO для добавления экстренного контакта
type CreateContactRequest struct {
	Name         string `json:"name" validate:"required,min=1,max=255"`
	PhoneNumber  string `json:"phone_number" validate:"required,max=32"`
	Relationship string `json:"relationship,omitempty" validate:"max=100"`
}

// ContactResponse DTO для ответа с экстренным контактом
// @Description DTO для ответа с экстренным контактом
type ContactResponse struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	PhoneNumber  string `json:"phone_number"`
	Relationship string `json:"relationship,omitempty"`
}

// ErrorResponse DTO ошибки
// @Description DTO ошибки
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
