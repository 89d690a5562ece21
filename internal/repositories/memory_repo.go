package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/schoolsync/internal/models"
)

// MemoryRecordRepository keeps rows in process memory. It mirrors the
// Postgres repository's semantics and backs tests and local experiments.
type MemoryRecordRepository struct {
	mu     sync.Mutex
	tables map[string]map[uuid.UUID]*models.Record
}

func NewMemoryRecordRepository() *MemoryRecordRepository {
	return &MemoryRecordRepository{tables: make(map[string]map[uuid.UUID]*models.Record)}
}

func (r *MemoryRecordRepository) table(name string) map[uuid.UUID]*models.Record {
	t, ok := r.tables[name]
	if !ok {
		t = make(map[uuid.UUID]*models.Record)
		r.tables[name] = t
	}
	return t
}

func (r *MemoryRecordRepository) ListUnsynced(ctx context.Context, table *models.TableSchema, limit int) ([]*models.Record, error) {
	return r.list(table, limit, func(rec *models.Record) bool {
		return !rec.IsSynced && rec.DeletedAt == nil
	}), nil
}

func (r *MemoryRecordRepository) ListPendingDeletions(ctx context.Context, table *models.TableSchema, limit int) ([]*models.Record, error) {
	return r.list(table, limit, func(rec *models.Record) bool {
		return !rec.IsSynced && rec.DeletedAt != nil
	}), nil
}

func (r *MemoryRecordRepository) list(table *models.TableSchema, limit int, match func(*models.Record) bool) []*models.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Record
	for _, rec := range r.table(table.Name) {
		if match(rec) {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *MemoryRecordRepository) MarkSynced(ctx context.Context, table *models.TableSchema, versions []models.Version, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.table(table.Name)
	for _, v := range versions {
		if rec, ok := t[v.ID]; ok && rec.UpdatedAt.Equal(v.UpdatedAt) {
			rec.MarkSynced(at)
		}
	}
	return nil
}

func (r *MemoryRecordRepository) GetByID(ctx context.Context, table *models.TableSchema, id uuid.UUID) (*models.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.table(table.Name)[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (r *MemoryRecordRepository) Insert(ctx context.Context, record *models.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.table(record.Schema.Name)
	if _, exists := t[record.ID]; exists {
		return ErrAlreadyExists
	}
	t[record.ID] = record.Clone()
	return nil
}

func (r *MemoryRecordRepository) Update(ctx context.Context, record *models.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.table(record.Schema.Name)
	existing, ok := t[record.ID]
	if !ok {
		return ErrNotFound
	}
	updated := record.Clone()
	updated.CreatedAt = existing.CreatedAt
	for k, v := range existing.Fields {
		if _, set := updated.Fields[k]; !set {
			updated.Fields[k] = v
		}
	}
	t[record.ID] = updated
	return nil
}

func (r *MemoryRecordRepository) SoftDelete(ctx context.Context, table *models.TableSchema, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.table(table.Name)[id]
	if !ok || rec.IsDeleted() {
		return ErrNotFound
	}
	rec.SoftDelete(at)
	return nil
}

// InTx runs fn on a copy of the data and swaps it in only if fn succeeds.
// Writes made to r by other goroutines while fn runs are overwritten.
func (r *MemoryRecordRepository) InTx(ctx context.Context, fn func(repo RecordRepository) error) error {
	r.mu.Lock()
	child := &MemoryRecordRepository{tables: make(map[string]map[uuid.UUID]*models.Record, len(r.tables))}
	for name, rows := range r.tables {
		copied := make(map[uuid.UUID]*models.Record, len(rows))
		for id, rec := range rows {
			copied[id] = rec.Clone()
		}
		child.tables[name] = copied
	}
	r.mu.Unlock()

	if err := fn(child); err != nil {
		return err
	}

	r.mu.Lock()
	r.tables = child.tables
	r.mu.Unlock()
	return nil
}

// Count returns the number of stored rows in a table, deleted ones included.
func (r *MemoryRecordRepository) Count(table *models.TableSchema) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tables[table.Name])
}
