// Package store persists canonical entities, their aliases, and sync runs in
// SQLite. Writes are upserts keyed by entity ID; aliases are append-only.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sydlexius/pitwall/internal/entity"
)

// Store provides canonical entity data operations.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a store on an open, migrated database.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// DB returns the underlying handle for callers that share the connection,
// such as the review queue.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Counts returns the number of canonical entities of each type.
func (s *Store) Counts(ctx context.Context) (map[entity.Type]int, error) {
	tables := []struct {
		t     entity.Type
		table string
	}{
		{entity.TypeDriver, "drivers"},
		{entity.TypeTeam, "teams"},
		{entity.TypeCircuit, "circuits"},
		{entity.TypeRound, "rounds"},
	}
	out := make(map[entity.Type]int, len(tables))
	for _, tb := range tables {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+tb.table).Scan(&n); err != nil { //nolint:gosec // G202: table names are fixed
			return nil, fmt.Errorf("counting %s: %w", tb.table, err)
		}
		out[tb.t] = n
	}
	return out, nil
}

// stamp sets CreatedAt on first write and always refreshes UpdatedAt.
func (s *Store) stamp(created, updated *time.Time) {
	now := s.now()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t
	}
	return parseTime(s)
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

// parseTime parses a time string, handling both RFC3339 and SQLite datetime formats.
func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}
