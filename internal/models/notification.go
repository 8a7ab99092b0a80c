package models

import "github.com/google/uuid"

// Notification - сообщение волонтеру о новой записи
type Notification struct {
	Kind        RecordKind `json:"kind"`
	RecordID    uuid.UUID  `json:"record_id"`
	Priority    Priority   `json:"priority,omitempty"`
	Description string     `json:"description,omitempty"`
	Location    *Location  `json:"location,omitempty"`
	DistanceKM  *float64   `json:"distance_km,omitempty"`
}
