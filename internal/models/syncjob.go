package models

import "time"

// SyncStatus represents the state of a sync job.
type SyncStatus string

const (
	SyncStatusQueued  SyncStatus = "queued"
	SyncStatusRunning SyncStatus = "running"
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusError   SyncStatus = "error"
)

// SyncJob records one repository sync run for a user.
type SyncJob struct {
	ID        string
	UserID    string
	Status    SyncStatus
	Created   int
	Updated   int
	Removed   int
	Total     int
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
