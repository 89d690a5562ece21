package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/schoolsync/internal/models"
	"github.com/prudhvinik1/schoolsync/internal/repositories"
)

// MergeResult counts what happened to a received batch. Processed is the
// batch length; the other three partition it.
type MergeResult struct {
	Processed int
	Applied   int
	Discarded int
	Rejected  int
}

type mergeOutcome int

const (
	outcomeApplied mergeOutcome = iota
	outcomeDiscarded
)

// MergeService applies pushed batches on the receiving side with
// last-writer-wins on updated_at.
type MergeService struct {
	repo   repositories.RecordRepository
	now    func() time.Time
	logger *slog.Logger
}

func NewMergeService(repo repositories.RecordRepository) *MergeService {
	return &MergeService{
		repo:   repo,
		now:    time.Now,
		logger: slog.Default(),
	}
}

// Receive merges a batch into table. The batch commits as one unit; a record
// that fails to decode or store is rolled back to its own savepoint, logged
// and counted as rejected without aborting the rest. Unknown tables return
// models.ErrUnknownTable.
func (s *MergeService) Receive(ctx context.Context, table string, records []models.Payload) (*MergeResult, error) {
	schema, err := models.LookupTable(table)
	if err != nil {
		return nil, err
	}

	result := &MergeResult{Processed: len(records)}
	err = s.repo.InTx(ctx, func(tx repositories.RecordRepository) error {
		for i, payload := range records {
			outcome, err := s.mergeOne(ctx, tx, schema, payload)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.logger.Warn("rejected incoming record",
					"table", table, "index", i, "id", payload[models.FieldID], "err", err)
				result.Rejected++
				continue
			}
			switch outcome {
			case outcomeApplied:
				result.Applied++
			case outcomeDiscarded:
				result.Discarded++
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to merge %s batch: %w", table, err)
	}

	s.logger.Info("received batch", "table", table,
		"processed", result.Processed, "applied", result.Applied,
		"discarded", result.Discarded, "rejected", result.Rejected)
	return result, nil
}

func (s *MergeService) mergeOne(ctx context.Context, tx repositories.RecordRepository, schema *models.TableSchema, payload models.Payload) (mergeOutcome, error) {
	incoming, err := schema.DecodePayload(payload)
	if err != nil {
		return 0, err
	}

	var outcome mergeOutcome
	err = tx.InTx(ctx, func(sp repositories.RecordRepository) error {
		now := s.now()

		existing, err := sp.GetByID(ctx, schema, incoming.ID)
		if errors.Is(err, repositories.ErrNotFound) {
			if incoming.CreatedAt.IsZero() {
				incoming.CreatedAt = now.UTC()
			}
			if incoming.UpdatedAt.IsZero() {
				incoming.UpdatedAt = now.UTC()
			}
			incoming.MarkSynced(now)
			outcome = outcomeApplied
			return sp.Insert(ctx, incoming)
		}
		if err != nil {
			return err
		}

		if !incoming.Has(models.FieldUpdatedAt) {
			return &models.FieldError{Table: schema.Name, Field: models.FieldUpdatedAt, Err: models.ErrMissingUpdatedAt}
		}
		if !incoming.UpdatedAt.After(existing.UpdatedAt) {
			outcome = outcomeDiscarded
			return nil
		}

		existing.Overwrite(incoming)
		existing.MarkSynced(now)
		outcome = outcomeApplied
		return sp.Update(ctx, existing)
	})
	if err != nil {
		return 0, err
	}
	return outcome, nil
}

// ReceiveDeletions soft-deletes the given ids in table and returns how many
// ids were received. Malformed, missing and already-deleted ids are no-ops.
func (s *MergeService) ReceiveDeletions(ctx context.Context, table string, ids []string) (int, error) {
	schema, err := models.LookupTable(table)
	if err != nil {
		return 0, err
	}

	err = s.repo.InTx(ctx, func(tx repositories.RecordRepository) error {
		now := s.now()
		for _, raw := range ids {
			id, err := uuid.Parse(raw)
			if err != nil {
				s.logger.Warn("ignoring malformed deletion id", "table", table, "id", raw)
				continue
			}
			err = tx.SoftDelete(ctx, schema, id, now)
			if errors.Is(err, repositories.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to apply %s deletions: %w", table, err)
	}

	s.logger.Info("received deletions", "table", table, "count", len(ids))
	return len(ids), nil
}
