package model

import "time"

// Snapshot is one point-in-time export of an organization's data.
type Snapshot struct {
	ID              string     `json:"id"`
	OrganizationID  string     `json:"organization_id"`
	Name            string     `json:"name"`
	Status          string     `json:"status"`
	StatusMessage   *string    `json:"status_message,omitempty"`
	Source          string     `json:"source"`
	StoragePath     *string    `json:"storage_path,omitempty"`
	FileSizeBytes   int64      `json:"file_size_bytes"`
	Checksum        *string    `json:"checksum,omitempty"`
	IncludedModules []string   `json:"included_modules"`
	CreatedBy       *string    `json:"created_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Snapshot status values.
const (
	SnapshotPending    = "pending"
	SnapshotProcessing = "processing"
	SnapshotCompleted  = "completed"
	SnapshotFailed     = "failed"
	SnapshotRestoring  = "restoring"
	SnapshotArchived   = "archived"
)

// Snapshot sources.
const (
	SnapshotSourceManual    = "manual"
	SnapshotSourceScheduled = "scheduled"
)

// Restorable reports whether the snapshot has a payload that may be offered
// for restore.
func (s *Snapshot) Restorable() bool {
	return s.Status == SnapshotCompleted && s.StoragePath != nil && *s.StoragePath != ""
}
