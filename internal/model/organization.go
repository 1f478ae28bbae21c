package model

import "time"

type Organization struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	MaintenanceMode bool       `json:"maintenance_mode"`
	InconsistentAt  *time.Time `json:"inconsistent_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
