package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Array storage differs per backend: Postgres keeps native text[], SQLite a
// JSON-encoded TEXT column. The codec is chosen once, by dialect, instead of
// branching inside the stores.

// ArrayValue encodes a string slice for an INSERT bind. A nil slice maps to
// SQL NULL on both backends.
func (d Dialect) ArrayValue(v []string) (any, error) {
	if v == nil {
		return nil, nil
	}
	if d == DialectSQLite {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode string array: %w", err)
		}
		return string(b), nil
	}
	return pq.Array(v), nil
}

// ArrayScanner returns a scanner that decodes a stored array into dst.
// NULL leaves dst nil.
func (d Dialect) ArrayScanner(dst *[]string) sql.Scanner {
	return &arrayScanner{dialect: d, dst: dst}
}

type arrayScanner struct {
	dialect Dialect
	dst     *[]string
}

func (s *arrayScanner) Scan(v any) error {
	if v == nil {
		*s.dst = nil
		return nil
	}
	if s.dialect == DialectSQLite {
		var raw []byte
		switch t := v.(type) {
		case string:
			raw = []byte(t)
		case []byte:
			raw = t
		default:
			return fmt.Errorf("cannot scan %T into string array", v)
		}
		return json.Unmarshal(raw, s.dst)
	}
	return pq.Array(s.dst).Scan(v)
}

// NullString maps an empty string to SQL NULL for optional text columns.
func NullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// LimitOffset renders a pagination tail. limit <= 0 means unlimited; SQLite
// still needs an explicit LIMIT -1 because OFFSET cannot stand alone there.
// Both values are integers formatted directly, never caller strings.
func (d Dialect) LimitOffset(limit, offset int) string {
	if limit <= 0 {
		if d == DialectSQLite {
			return fmt.Sprintf(" LIMIT -1 OFFSET %d", offset)
		}
		return fmt.Sprintf(" OFFSET %d", offset)
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
}

// Timestamps are TIMESTAMPTZ on Postgres and RFC3339 UTC text on SQLite.
// Binding always goes through TimeValue so the SQLite text form stays
// lexicographically ordered; scanning goes through Time/NullTime, which
// accept both representations.

// TimeValue encodes a timestamp for a bind parameter.
func (d Dialect) TimeValue(t time.Time) any {
	if d == DialectSQLite {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return t.UTC()
}

// NullTimeValue encodes an optional timestamp; nil maps to SQL NULL.
func (d Dialect) NullTimeValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return d.TimeValue(*t)
}

// Time scans a non-null timestamp from either backend.
type Time struct {
	V time.Time
}

func (t *Time) Scan(v any) error {
	parsed, err := parseTime(v)
	if err != nil {
		return err
	}
	if parsed == nil {
		return fmt.Errorf("cannot scan NULL into non-null timestamp")
	}
	t.V = *parsed
	return nil
}

// NullTime scans a nullable timestamp from either backend.
type NullTime struct {
	V     time.Time
	Valid bool
}

func (t *NullTime) Scan(v any) error {
	parsed, err := parseTime(v)
	if err != nil {
		return err
	}
	if parsed == nil {
		t.Valid = false
		return nil
	}
	t.V, t.Valid = *parsed, true
	return nil
}

// Ptr returns the scanned value as a pointer, nil when NULL.
func (t NullTime) Ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.V
	return &v
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
}

func parseTime(v any) (*time.Time, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		u := t.UTC()
		return &u, nil
	case string:
		return parseTimeString(t)
	case []byte:
		return parseTimeString(string(t))
	default:
		return nil, fmt.Errorf("cannot scan %T into timestamp", v)
	}
}

func parseTimeString(s string) (*time.Time, error) {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			u := parsed.UTC()
			return &u, nil
		}
	}
	return nil, fmt.Errorf("unrecognized timestamp %q", s)
}
