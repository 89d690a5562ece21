package services

import (
	"sync"
	"time"

	"github.com/prudhvinik1/schoolsync/internal/models"
)

// SyncStateSnapshot is a read-only copy of the tracker.
type SyncStateSnapshot struct {
	LastRun     *time.Time `json:"last_run"`
	LastSuccess *time.Time `json:"last_success"`
	LastError   *string    `json:"last_error"`
	TotalSynced int64      `json:"total_records_synced"`
	IsRunning   bool       `json:"is_running"`
}

// SyncState tracks the outcome of the most recent cycle for the lifetime of
// the process. The running flag is the single-flight guard for cycles.
type SyncState struct {
	mu          sync.Mutex
	lastRun     *time.Time
	lastSuccess *time.Time
	lastError   *string
	totalSynced int64
	running     bool
}

func NewSyncState() *SyncState {
	return &SyncState{}
}

// TryStart claims the running flag and records last_run. It returns false,
// changing nothing, if a cycle is already running.
func (s *SyncState) TryStart(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return false
	}
	s.running = true
	at := now.UTC()
	s.lastRun = &at
	return true
}

// Finish releases the running flag and folds the cycle outcome in.
func (s *SyncState) Finish(now time.Time, summary *models.SyncSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	switch summary.Status {
	case models.SyncStatusOK:
		at := now.UTC()
		s.lastSuccess = &at
		s.totalSynced += int64(summary.Total)
		s.lastError = nil
	case models.SyncStatusError:
		msg := summary.Error
		s.lastError = &msg
	}
}

func (s *SyncState) Snapshot() SyncStateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := SyncStateSnapshot{
		TotalSynced: s.totalSynced,
		IsRunning:   s.running,
	}
	if s.lastRun != nil {
		t := *s.lastRun
		snap.LastRun = &t
	}
	if s.lastSuccess != nil {
		t := *s.lastSuccess
		snap.LastSuccess = &t
	}
	if s.lastError != nil {
		e := *s.lastError
		snap.LastError = &e
	}
	return snap
}
