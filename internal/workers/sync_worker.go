package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/prudhvinik1/schoolsync/internal/models"
)

const DefaultInterval = 5 * time.Minute

// CycleRunner runs one sync cycle. *services.SyncService implements it.
type CycleRunner interface {
	RunFullSync(ctx context.Context) *models.SyncSummary
}

// SyncScheduler runs sync cycles on a fixed interval and on demand. Ticks
// and manual triggers share a single pending slot, so requests that arrive
// while a cycle runs collapse into one follow-up run.
type SyncScheduler struct {
	runner   CycleRunner
	interval time.Duration
	trigger  chan struct{}
	logger   *slog.Logger
}

func NewSyncScheduler(runner CycleRunner, interval time.Duration) *SyncScheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &SyncScheduler{
		runner:   runner,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		logger:   slog.Default(),
	}
}

// Trigger requests a cycle without blocking. It returns false if a request
// is already pending.
func (s *SyncScheduler) Trigger() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Run blocks until ctx is cancelled. A cycle in flight at cancellation runs
// to completion before Run returns; no new cycle starts afterwards.
func (s *SyncScheduler) Run(ctx context.Context) error {
	s.logger.Info("sync scheduler started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.trigger:
				if ctx.Err() != nil {
					return
				}
				s.runOnce(context.WithoutCancel(ctx))
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			<-done
			s.logger.Info("sync scheduler stopped")
			return nil
		case <-ticker.C:
			s.Trigger()
		}
	}
}

func (s *SyncScheduler) runOnce(ctx context.Context) {
	summary := s.runner.RunFullSync(ctx)
	if summary != nil && summary.Status == models.SyncStatusSkipped {
		s.logger.Debug("scheduled sync skipped", "reason", summary.Reason)
	}
}
