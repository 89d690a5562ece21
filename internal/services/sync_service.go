package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prudhvinik1/schoolsync/internal/models"
	"github.com/prudhvinik1/schoolsync/internal/repositories"
)

const (
	reasonInProgress = "Sync already in progress"
	reasonOffline    = "No internet connection"
)

// TablePusher pushes pending rows and deletions for one table.
type TablePusher interface {
	PushTable(ctx context.Context, table string) (int, error)
	PushDeletions(ctx context.Context, table string) (int, error)
}

// SyncService runs full sync cycles over every registered table.
type SyncService struct {
	state   *SyncState
	prober  ConnectivityChecker
	pusher  TablePusher
	history repositories.HistoryRepository
	tables  []*models.TableSchema
	now     func() time.Time
	logger  *slog.Logger
}

// NewSyncService wires a cycle runner. history may be nil.
func NewSyncService(prober ConnectivityChecker, pusher TablePusher, history repositories.HistoryRepository) *SyncService {
	return &SyncService{
		state:   NewSyncState(),
		prober:  prober,
		pusher:  pusher,
		history: history,
		tables:  models.SyncOrder,
		now:     time.Now,
		logger:  slog.Default(),
	}
}

// Status returns a copy of the process-lifetime sync state.
func (s *SyncService) Status() SyncStateSnapshot {
	return s.state.Snapshot()
}

// RunFullSync runs one cycle. At most one cycle runs at a time; a call that
// overlaps a running cycle returns a skipped summary and changes nothing.
// The running flag is cleared on every exit path, panics included.
func (s *SyncService) RunFullSync(ctx context.Context) (summary *models.SyncSummary) {
	start := s.now()
	if !s.state.TryStart(start) {
		skipped := models.NewSyncSummary(models.SyncStatusSkipped, start)
		skipped.Reason = reasonInProgress
		return skipped
	}

	summary = models.NewSyncSummary(models.SyncStatusOK, start)
	defer func() {
		if rec := recover(); rec != nil {
			summary.Status = models.SyncStatusError
			summary.Error = fmt.Sprintf("panic: %v", rec)
		}
		finished := s.now()
		summary.DurationMs = finished.Sub(start).Milliseconds()
		s.state.Finish(finished, summary)
		s.logSummary(summary)
		s.recordHistory(ctx, summary)
	}()

	if !s.prober.Probe(ctx) {
		summary.Status = models.SyncStatusOffline
		summary.Reason = reasonOffline
		return summary
	}

	for _, table := range s.tables {
		pushed, err := s.pusher.PushTable(ctx, table.Name)
		if err != nil {
			summary.Status = models.SyncStatusError
			summary.Error = err.Error()
			return summary
		}

		deleted, err := s.pusher.PushDeletions(ctx, table.Name)
		if err != nil {
			summary.Status = models.SyncStatusError
			summary.Error = err.Error()
			return summary
		}

		if pushed > 0 || deleted > 0 {
			summary.Tables[table.Name] = models.TableSyncCount{Pushed: pushed, Deleted: deleted}
			summary.Total += pushed + deleted
		}
	}

	return summary
}

func (s *SyncService) logSummary(summary *models.SyncSummary) {
	switch summary.Status {
	case models.SyncStatusOK:
		s.logger.Info("sync cycle complete", "total", summary.Total, "tables", len(summary.Tables), "duration_ms", summary.DurationMs)
	case models.SyncStatusOffline:
		s.logger.Info("sync cycle skipped: offline")
	case models.SyncStatusError:
		s.logger.Error("sync cycle failed", "err", summary.Error, "duration_ms", summary.DurationMs)
	}
}

func (s *SyncService) recordHistory(ctx context.Context, summary *models.SyncSummary) {
	if s.history == nil {
		return
	}
	// The cycle may have ended because ctx was cancelled.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	if err := s.history.Append(ctx, summary); err != nil {
		s.logger.Warn("failed to record sync history", "err", err)
	}
}

// History returns up to n recent cycle summaries, newest first. It returns
// nil when no history store is configured.
func (s *SyncService) History(ctx context.Context, n int) ([]*models.SyncSummary, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.Recent(ctx, n)
}
