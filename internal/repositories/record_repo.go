package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/schoolsync/internal/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx; Begin on a pgx.Tx
// opens a savepoint.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

var metaColumns = []string{"id", "created_at", "updated_at", "deleted_at", "is_synced", "synced_at", "local_id"}

type PostgresRecordRepository struct {
	db querier
}

func NewPostgresRecordRepository(pool *pgxpool.Pool) *PostgresRecordRepository {
	return &PostgresRecordRepository{db: pool}
}

func (r *PostgresRecordRepository) InTx(ctx context.Context, fn func(repo RecordRepository) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// No-op once committed.
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&PostgresRecordRepository{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *PostgresRecordRepository) ListUnsynced(ctx context.Context, table *models.TableSchema, limit int) ([]*models.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s
	          WHERE is_synced = false AND deleted_at IS NULL
	          ORDER BY created_at ASC, id ASC
	          LIMIT $1`, selectList(table), tableIdent(table))

	return r.queryRecords(ctx, table, query, limit)
}

func (r *PostgresRecordRepository) ListPendingDeletions(ctx context.Context, table *models.TableSchema, limit int) ([]*models.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s
	          WHERE deleted_at IS NOT NULL AND is_synced = false
	          ORDER BY deleted_at ASC, id ASC
	          LIMIT $1`, selectList(table), tableIdent(table))

	return r.queryRecords(ctx, table, query, limit)
}

func (r *PostgresRecordRepository) queryRecords(ctx context.Context, table *models.TableSchema, query string, args ...any) ([]*models.Record, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table.Name, err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows, table)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table.Name, err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", table.Name, err)
	}

	return records, nil
}

func (r *PostgresRecordRepository) MarkSynced(ctx context.Context, table *models.TableSchema, versions []models.Version, at time.Time) error {
	if len(versions) == 0 {
		return nil
	}
	query := fmt.Sprintf(`UPDATE %s SET is_synced = true, synced_at = $1
	          WHERE id = $2 AND updated_at = $3`, tableIdent(table))

	return r.InTx(ctx, func(repo RecordRepository) error {
		tx := repo.(*PostgresRecordRepository)
		for _, v := range versions {
			if _, err := tx.db.Exec(ctx, query, at.UTC(), v.ID, v.UpdatedAt.UTC()); err != nil {
				return fmt.Errorf("failed to mark %s %s synced: %w", table.Name, v.ID, err)
			}
		}
		return nil
	})
}

func (r *PostgresRecordRepository) GetByID(ctx context.Context, table *models.TableSchema, id uuid.UUID) (*models.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, selectList(table), tableIdent(table))

	rec, err := scanRecord(r.db.QueryRow(ctx, query, id), table)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s by ID: %w", table.Name, err)
	}
	return rec, nil
}

func (r *PostgresRecordRepository) Insert(ctx context.Context, record *models.Record) error {
	cols := append([]string{}, metaColumns...)
	args := []any{
		record.ID,
		record.CreatedAt.UTC(),
		record.UpdatedAt.UTC(),
		record.DeletedAt,
		record.IsSynced,
		record.SyncedAt,
		record.LocalID,
	}
	for _, col := range record.Schema.Columns {
		v, ok := record.Fields[col.Name]
		if !ok {
			continue
		}
		cols = append(cols, pgx.Identifier{col.Name}.Sanitize())
		args = append(args, v)
	}

	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		tableIdent(record.Schema), strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == record.Schema.Name+"_pkey" {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert %s: %w", record.Schema.Name, err)
	}
	return nil
}

// Update writes every sync field and every column held in record.Fields.
func (r *PostgresRecordRepository) Update(ctx context.Context, record *models.Record) error {
	sets := []string{"updated_at = $1", "deleted_at = $2", "is_synced = $3", "synced_at = $4", "local_id = $5"}
	args := []any{record.UpdatedAt.UTC(), record.DeletedAt, record.IsSynced, record.SyncedAt, record.LocalID}
	for _, col := range record.Schema.Columns {
		v, ok := record.Fields[col.Name]
		if !ok {
			continue
		}
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", pgx.Identifier{col.Name}.Sanitize(), len(args)))
	}
	args = append(args, record.ID)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d`,
		tableIdent(record.Schema), strings.Join(sets, ", "), len(args))

	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", record.Schema.Name, err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRecordRepository) SoftDelete(ctx context.Context, table *models.TableSchema, id uuid.UUID, at time.Time) error {
	query := fmt.Sprintf(`UPDATE %s
	          SET deleted_at = $1, updated_at = $1, is_synced = false
	          WHERE id = $2 AND deleted_at IS NULL`, tableIdent(table))

	result, err := r.db.Exec(ctx, query, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", table.Name, err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func tableIdent(table *models.TableSchema) string {
	return pgx.Identifier{table.Name}.Sanitize()
}

// selectList casts columns so each kind scans into a single Go type:
// enums and uuids as text, numerics as float8.
func selectList(table *models.TableSchema) string {
	cols := append([]string{}, metaColumns...)
	for _, c := range table.Columns {
		name := pgx.Identifier{c.Name}.Sanitize()
		switch c.Kind {
		case models.KindString, models.KindUUID:
			name += "::text"
		case models.KindNumeric:
			name += "::float8"
		}
		cols = append(cols, name)
	}
	return strings.Join(cols, ", ")
}

func scanRecord(row pgx.Row, table *models.TableSchema) (*models.Record, error) {
	rec := &models.Record{Schema: table, Fields: make(map[string]any, len(table.Columns))}

	dest := []any{
		&rec.ID,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&rec.DeletedAt,
		&rec.IsSynced,
		&rec.SyncedAt,
		&rec.LocalID,
	}
	vals := make([]any, len(table.Columns))
	for i, c := range table.Columns {
		switch c.Kind {
		case models.KindString, models.KindUUID:
			vals[i] = new(*string)
		case models.KindInt:
			vals[i] = new(*int64)
		case models.KindNumeric:
			vals[i] = new(*float64)
		case models.KindBool:
			vals[i] = new(*bool)
		case models.KindDate, models.KindTimestamp:
			vals[i] = new(*time.Time)
		}
	}
	dest = append(dest, vals...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	rec.DeletedAt = utcPtr(rec.DeletedAt)
	rec.SyncedAt = utcPtr(rec.SyncedAt)

	for i, c := range table.Columns {
		v, err := c.Kind.Coerce(deref(vals[i]))
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}
		rec.Fields[c.Name] = v
	}
	return rec, nil
}

func deref(p any) any {
	switch v := p.(type) {
	case **string:
		if *v == nil {
			return nil
		}
		return **v
	case **int64:
		if *v == nil {
			return nil
		}
		return **v
	case **float64:
		if *v == nil {
			return nil
		}
		return **v
	case **bool:
		if *v == nil {
			return nil
		}
		return **v
	case **time.Time:
		if *v == nil {
			return nil
		}
		return **v
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
