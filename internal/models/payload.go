package models

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Payload is the flattened wire form of a record: JSON-safe scalars only.
type Payload map[string]any

// ToPayload flattens a record for transmission.
func (r *Record) ToPayload() Payload {
	p := make(Payload, len(r.Schema.Columns)+7)
	p[FieldID] = r.ID.String()
	p[FieldCreatedAt] = FormatTimestamp(r.CreatedAt)
	p[FieldUpdatedAt] = FormatTimestamp(r.UpdatedAt)
	p[FieldDeletedAt] = flattenTime(r.DeletedAt)
	p[FieldIsSynced] = r.IsSynced
	p[FieldSyncedAt] = flattenTime(r.SyncedAt)
	if r.LocalID != nil {
		p[FieldLocalID] = *r.LocalID
	} else {
		p[FieldLocalID] = nil
	}
	for _, col := range r.Schema.Columns {
		v, ok := r.Fields[col.Name]
		if !ok {
			continue
		}
		p[col.Name] = col.Kind.Flatten(v)
	}
	return p
}

func flattenTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return FormatTimestamp(*t)
}

// DecodePayload builds a record from an incoming payload. Every key must be
// either a sync field or a column of the schema, and every value must coerce
// to its column kind; otherwise the whole record is rejected with the
// offending fields joined into the returned error.
func (s *TableSchema) DecodePayload(p Payload) (*Record, error) {
	rec := &Record{
		Schema:  s,
		Fields:  make(map[string]any, len(p)),
		present: make(map[string]bool, len(p)),
	}

	var errs []error
	reject := func(field string, err error) {
		errs = append(errs, &FieldError{Table: s.Name, Field: field, Err: err})
	}

	// Deterministic error ordering for logs.
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := p[key]
		switch key {
		case FieldID:
			v, err := KindUUID.Coerce(value)
			if err != nil || v == nil {
				reject(key, ErrMissingID)
				continue
			}
			rec.ID = v.(uuid.UUID)
		case FieldCreatedAt, FieldUpdatedAt:
			v, err := KindTimestamp.Coerce(value)
			if err != nil {
				reject(key, err)
				continue
			}
			if v == nil {
				continue
			}
			if key == FieldCreatedAt {
				rec.CreatedAt = v.(time.Time)
			} else {
				rec.UpdatedAt = v.(time.Time)
			}
		case FieldDeletedAt, FieldSyncedAt:
			v, err := KindTimestamp.Coerce(value)
			if err != nil {
				reject(key, err)
				continue
			}
			var t *time.Time
			if v != nil {
				tv := v.(time.Time)
				t = &tv
			}
			if key == FieldDeletedAt {
				rec.DeletedAt = t
			} else {
				rec.SyncedAt = t
			}
		case FieldIsSynced:
			// Overridden by the receiver; only validated.
			if _, err := KindBool.Coerce(value); err != nil {
				reject(key, err)
				continue
			}
		case FieldLocalID:
			v, err := KindString.Coerce(value)
			if err != nil {
				reject(key, err)
				continue
			}
			if v != nil {
				id := v.(string)
				rec.LocalID = &id
			} else {
				rec.LocalID = nil
			}
		default:
			col, ok := s.Column(key)
			if !ok {
				reject(key, ErrUnknownField)
				continue
			}
			v, err := col.Kind.Coerce(value)
			if err != nil {
				reject(key, err)
				continue
			}
			rec.Fields[key] = v
		}
		rec.present[key] = true
	}

	if _, ok := p[FieldID]; !ok {
		reject(FieldID, ErrMissingID)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("rejected record for %s: %w", s.Name, errors.Join(errs...))
	}
	return rec, nil
}
