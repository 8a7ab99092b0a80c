package models

import "time"

// Responder - волонтер или представитель служб
type Responder struct {
	ID                    string    `json:"id"`
	Available             bool      `json:"available"`
	Location              *Location `json:"location,omitempty"`
	AvailabilityChangedAt time.Time `json:"availability_changed_at"`
}

// EmergencyContact - справочные данные пользователя, ядро их только читает
type EmergencyContact struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	PhoneNumber  string `json:"phone_number"`
	Relationship string `json:"relationship"`
}
