package models

import "time"

type SyncStatus string

const (
	SyncStatusOK      SyncStatus = "ok"
	SyncStatusOffline SyncStatus = "offline"
	SyncStatusSkipped SyncStatus = "skipped"
	SyncStatusError   SyncStatus = "error"
)

type TableSyncCount struct {
	Pushed  int `json:"pushed"`
	Deleted int `json:"deleted"`
}

// SyncSummary is the outcome of one sync cycle.
type SyncSummary struct {
	Status     SyncStatus                `json:"status"`
	Tables     map[string]TableSyncCount `json:"tables"`
	Total      int                       `json:"total"`
	Error      string                    `json:"error,omitempty"`
	Reason     string                    `json:"reason,omitempty"`
	StartedAt  time.Time                 `json:"started_at"`
	DurationMs int64                     `json:"duration_ms"`
}

func NewSyncSummary(status SyncStatus, startedAt time.Time) *SyncSummary {
	return &SyncSummary{
		Status:    status,
		Tables:    make(map[string]TableSyncCount),
		StartedAt: startedAt.UTC(),
	}
}
