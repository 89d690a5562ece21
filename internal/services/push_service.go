package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prudhvinik1/schoolsync/internal/models"
	"github.com/prudhvinik1/schoolsync/internal/repositories"
	"github.com/prudhvinik1/schoolsync/internal/syncclient"
)

const (
	PushBatchSize   = 200
	DeleteBatchSize = 100
)

// RemoteSink is the receiving side of a push. *syncclient.Client implements it.
type RemoteSink interface {
	PushRecords(ctx context.Context, table string, records []models.Payload) (*syncclient.ReceiveResponse, error)
	PushDeletions(ctx context.Context, table string, ids []string) (*syncclient.DeleteResponse, error)
}

// PushService moves pending rows of one table to the remote side. A batch
// is marked synced only after the remote acknowledged it.
type PushService struct {
	repo   repositories.RecordRepository
	remote RemoteSink
	now    func() time.Time
	logger *slog.Logger
}

func NewPushService(repo repositories.RecordRepository, remote RemoteSink) *PushService {
	return &PushService{
		repo:   repo,
		remote: remote,
		now:    time.Now,
		logger: slog.Default(),
	}
}

// PushTable pushes at most one batch of unsynced, non-deleted rows and
// returns how many were acknowledged. Transport failures are logged and
// reported as zero; storage failures are returned.
func (s *PushService) PushTable(ctx context.Context, table string) (int, error) {
	schema, err := models.LookupTable(table)
	if err != nil {
		s.logger.Warn("push skipped", "table", table, "err", err)
		return 0, nil
	}

	records, err := s.repo.ListUnsynced(ctx, schema, PushBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list unsynced %s: %w", table, err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	payloads := make([]models.Payload, len(records))
	versions := make([]models.Version, len(records))
	for i, rec := range records {
		payloads[i] = rec.ToPayload()
		versions[i] = rec.Version()
	}

	if _, err := s.remote.PushRecords(ctx, table, payloads); err != nil {
		s.logTransport("push records", table, len(records), err)
		return 0, nil
	}

	if err := s.repo.MarkSynced(ctx, schema, versions, s.now()); err != nil {
		return 0, fmt.Errorf("failed to mark %s synced: %w", table, err)
	}

	s.logger.Info("pushed records", "table", table, "count", len(records))
	return len(records), nil
}

// PushDeletions pushes at most one batch of soft-deleted, unsynced ids.
func (s *PushService) PushDeletions(ctx context.Context, table string) (int, error) {
	schema, err := models.LookupTable(table)
	if err != nil {
		s.logger.Warn("delete push skipped", "table", table, "err", err)
		return 0, nil
	}

	records, err := s.repo.ListPendingDeletions(ctx, schema, DeleteBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list deleted %s: %w", table, err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	versions := make([]models.Version, len(records))
	wire := make([]string, len(records))
	for i, rec := range records {
		versions[i] = rec.Version()
		wire[i] = rec.ID.String()
	}

	if _, err := s.remote.PushDeletions(ctx, table, wire); err != nil {
		s.logTransport("push deletions", table, len(records), err)
		return 0, nil
	}

	if err := s.repo.MarkSynced(ctx, schema, versions, s.now()); err != nil {
		return 0, fmt.Errorf("failed to mark %s deletions synced: %w", table, err)
	}

	s.logger.Info("pushed deletions", "table", table, "count", len(records))
	return len(records), nil
}

func (s *PushService) logTransport(op, table string, n int, err error) {
	attrs := []any{"table", table, "batch", n, "err", err}
	var syncErr *syncclient.SyncError
	if errors.As(err, &syncErr) && syncErr.StatusCode != 0 {
		attrs = append(attrs, "status", syncErr.StatusCode)
	}
	s.logger.Warn(op+" failed", attrs...)
}
