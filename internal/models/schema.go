package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnknownTable     = errors.New("unknown table")
	ErrUnknownField     = errors.New("unknown field")
	ErrInvalidValue     = errors.New("invalid value")
	ErrMissingID        = errors.New("record has no id")
	ErrMissingUpdatedAt = errors.New("record has no updated_at")
)

// DateLayout is the wire format of date columns.
const DateLayout = "2006-01-02"

// Names of the sync metadata fields on the wire.
const (
	FieldID        = "id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
	FieldDeletedAt = "deleted_at"
	FieldIsSynced  = "is_synced"
	FieldSyncedAt  = "synced_at"
	FieldLocalID   = "local_id"
)

// FieldError describes a payload field that could not be applied.
type FieldError struct {
	Table string
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Table, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

type ColumnKind int

const (
	KindString ColumnKind = iota
	KindInt
	KindNumeric
	KindBool
	KindDate
	KindTimestamp
	KindUUID
)

func (k ColumnKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindNumeric:
		return "numeric"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	case KindTimestamp:
		return "timestamp"
	case KindUUID:
		return "uuid"
	default:
		return "unknown"
	}
}

// Coerce converts a decoded JSON value (or a native Go value) into the
// canonical Go type stored for this kind. nil passes through as NULL.
//
// Canonical types: string, int64, float64, bool, time.Time (dates at UTC
// midnight), uuid.UUID.
func (k ColumnKind) Coerce(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch k {
	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case KindInt:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		case float64:
			if n == math.Trunc(n) && !math.IsInf(n, 0) {
				return int64(n), nil
			}
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return i, nil
			}
		}
	case KindNumeric:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f, nil
			}
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return f, nil
			}
		}
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case KindDate:
		switch d := v.(type) {
		case time.Time:
			y, m, day := d.Date()
			return time.Date(y, m, day, 0, 0, 0, 0, time.UTC), nil
		case string:
			if t, err := time.Parse(DateLayout, d); err == nil {
				return t, nil
			}
			if t, err := ParseTimestamp(d); err == nil {
				y, m, day := t.Date()
				return time.Date(y, m, day, 0, 0, 0, 0, time.UTC), nil
			}
		}
	case KindTimestamp:
		switch t := v.(type) {
		case time.Time:
			return t.UTC(), nil
		case string:
			if ts, err := ParseTimestamp(t); err == nil {
				return ts, nil
			}
		}
	case KindUUID:
		switch id := v.(type) {
		case uuid.UUID:
			return id, nil
		case string:
			if parsed, err := uuid.Parse(id); err == nil {
				return parsed, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %v is not a valid %s", ErrInvalidValue, v, k)
}

// Flatten renders a canonical value as a JSON-safe scalar.
func (k ColumnKind) Flatten(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		if k == KindDate {
			return t.Format(DateLayout)
		}
		return FormatTimestamp(t)
	case uuid.UUID:
		return t.String()
	default:
		return v
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp accepts ISO-8601 timestamps with or without an offset;
// values without one are taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not an ISO-8601 timestamp", ErrInvalidValue, s)
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

type Column struct {
	Name string
	Kind ColumnKind
}

// TableSchema describes one replicated table kind.
type TableSchema struct {
	Name    string
	Columns []Column

	index map[string]int
}

func newTableSchema(name string, columns ...Column) *TableSchema {
	s := &TableSchema{Name: name, Columns: columns, index: make(map[string]int, len(columns))}
	for i, c := range columns {
		s.index[c.Name] = i
	}
	return s
}

func (s *TableSchema) Column(name string) (Column, bool) {
	i, ok := s.index[name]
	if !ok {
		return Column{}, false
	}
	return s.Columns[i], true
}
