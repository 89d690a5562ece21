package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/schoolsync/internal/models"
)

// RecordRepository touches replicated rows only through their generic sync
// fields and the schema-described columns.
type RecordRepository interface {
	// ListUnsynced returns up to limit live rows with is_synced = false,
	// oldest first.
	ListUnsynced(ctx context.Context, table *models.TableSchema, limit int) ([]*models.Record, error)
	// ListPendingDeletions returns up to limit soft-deleted rows whose
	// deletion has not been acknowledged yet.
	ListPendingDeletions(ctx context.Context, table *models.TableSchema, limit int) ([]*models.Record, error)
	// MarkSynced sets is_synced = true and synced_at = at atomically on every
	// row whose updated_at still equals the given version. Rows edited since
	// they were listed are left pending.
	MarkSynced(ctx context.Context, table *models.TableSchema, versions []models.Version, at time.Time) error

	GetByID(ctx context.Context, table *models.TableSchema, id uuid.UUID) (*models.Record, error)
	Insert(ctx context.Context, record *models.Record) error
	Update(ctx context.Context, record *models.Record) error
	// SoftDelete marks a live row deleted and pending; ErrNotFound if the row
	// is missing or already deleted.
	SoftDelete(ctx context.Context, table *models.TableSchema, id uuid.UUID, at time.Time) error

	// InTx runs fn against a transactional view. Nested calls map to
	// savepoints, so a failing inner fn only rolls back its own writes.
	InTx(ctx context.Context, fn func(repo RecordRepository) error) error
}

type HistoryRepository interface {
	Append(ctx context.Context, summary *models.SyncSummary) error
	Recent(ctx context.Context, n int) ([]*models.SyncSummary, error)
}
