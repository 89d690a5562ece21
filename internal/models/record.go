package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncMeta holds the audit and replication fields every synced table carries.
type SyncMeta struct {
	ID        uuid.UUID  `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	IsSynced  bool       `json:"is_synced"`
	SyncedAt  *time.Time `json:"synced_at,omitempty"`
	LocalID   *string    `json:"local_id,omitempty"`
}

// Record is one row of a registered table. Fields holds the table-specific
// columns keyed by column name, already coerced to the column's Go type.
type Record struct {
	SyncMeta
	Schema *TableSchema
	Fields map[string]any

	// present tracks which payload keys a decoded record carried.
	present map[string]bool
}

// NewRecord creates an unsynced record with a fresh id and timestamps.
func NewRecord(schema *TableSchema, now time.Time) *Record {
	now = now.UTC()
	return &Record{
		SyncMeta: SyncMeta{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Schema: schema,
		Fields: make(map[string]any),
	}
}

func (r *Record) TableName() string {
	return r.Schema.Name
}

func (r *Record) IsDeleted() bool {
	return r.DeletedAt != nil
}

// Set assigns a column value and marks the row as locally mutated.
func (r *Record) Set(column string, value any, now time.Time) error {
	col, ok := r.Schema.Column(column)
	if !ok {
		return &FieldError{Table: r.Schema.Name, Field: column, Err: ErrUnknownField}
	}
	v, err := col.Kind.Coerce(value)
	if err != nil {
		return &FieldError{Table: r.Schema.Name, Field: column, Err: err}
	}
	r.Fields[column] = v
	r.Touch(now)
	return nil
}

// Touch records a local mutation: the row becomes pending for the next cycle.
func (r *Record) Touch(now time.Time) {
	r.UpdatedAt = now.UTC()
	r.IsSynced = false
}

// SoftDelete marks the row deleted without removing it, so the deletion
// itself can be replicated.
func (r *Record) SoftDelete(now time.Time) {
	at := now.UTC()
	r.DeletedAt = &at
	r.Touch(at)
}

// Version identifies one state of a row. A pushed row is acknowledged by
// its version, so a local edit made while the push was in flight stays pending.
type Version struct {
	ID        uuid.UUID
	UpdatedAt time.Time
}

func (r *Record) Version() Version {
	return Version{ID: r.ID, UpdatedAt: r.UpdatedAt}
}

// MarkSynced records remote acknowledgement of the current row version.
func (r *Record) MarkSynced(now time.Time) {
	at := now.UTC()
	r.IsSynced = true
	r.SyncedAt = &at
}

// Has reports whether a decoded record carried the given payload key.
func (r *Record) Has(key string) bool {
	return r.present[key]
}

// Overwrite copies the values carried by incoming onto r, leaving id and
// created_at untouched. Only keys present in the decoded payload are copied.
func (r *Record) Overwrite(incoming *Record) {
	if incoming.Has(FieldUpdatedAt) {
		r.UpdatedAt = incoming.UpdatedAt
	}
	if incoming.Has(FieldDeletedAt) {
		r.DeletedAt = incoming.DeletedAt
	}
	if incoming.Has(FieldLocalID) {
		r.LocalID = incoming.LocalID
	}
	if r.Fields == nil {
		r.Fields = make(map[string]any, len(incoming.Fields))
	}
	for k, v := range incoming.Fields {
		r.Fields[k] = v
	}
}

// Clone returns a deep enough copy for storage snapshots.
func (r *Record) Clone() *Record {
	c := *r
	c.DeletedAt = copyTime(r.DeletedAt)
	c.SyncedAt = copyTime(r.SyncedAt)
	if r.LocalID != nil {
		id := *r.LocalID
		c.LocalID = &id
	}
	c.Fields = make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		c.Fields[k] = v
	}
	c.present = nil
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
