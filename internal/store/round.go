package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sydlexius/pitwall/internal/entity"
)

const roundColumns = `id, name, slug, year, round_number, circuit_id, start_date, end_date, created_at, updated_at`

// ListRounds returns every canonical round ordered by season and round number.
func (s *Store) ListRounds(ctx context.Context) ([]entity.Round, error) {
	return s.queryRounds(ctx, `SELECT `+roundColumns+` FROM rounds ORDER BY year, round_number, rowid`)
}

// ListRoundsByYear returns one season's rounds.
func (s *Store) ListRoundsByYear(ctx context.Context, year int) ([]entity.Round, error) {
	return s.queryRounds(ctx, `SELECT `+roundColumns+` FROM rounds WHERE year = ? ORDER BY round_number, rowid`, year)
}

func (s *Store) queryRounds(ctx context.Context, query string, args ...any) ([]entity.Round, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing rounds: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var rounds []entity.Round
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning round: %w", err)
		}
		rounds = append(rounds, *r)
	}
	return rounds, rows.Err()
}

// RoundByID returns the round with the given ID, or nil when absent.
func (s *Store) RoundByID(ctx context.Context, id string) (*entity.Round, error) {
	return s.roundWhere(ctx, "id", id)
}

// RoundBySlug returns the round with the given slug, or nil when absent.
func (s *Store) RoundBySlug(ctx context.Context, slug string) (*entity.Round, error) {
	return s.roundWhere(ctx, "slug", slug)
}

func (s *Store) roundWhere(ctx context.Context, col, val string) (*entity.Round, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+roundColumns+` FROM rounds WHERE `+col+` = ?`, val) //nolint:gosec // G202: column is a fixed identifier
	r, err := scanRound(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting round by %s: %w", col, err)
	}
	return r, nil
}

// UpsertRound inserts the round or updates the row with the same ID.
func (s *Store) UpsertRound(ctx context.Context, r *entity.Round) (string, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	s.stamp(&r.CreatedAt, &r.UpdatedAt)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rounds (`+roundColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			slug = excluded.slug,
			year = excluded.year,
			round_number = excluded.round_number,
			circuit_id = excluded.circuit_id,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			updated_at = excluded.updated_at
	`,
		r.ID, r.Name, r.Slug, r.Year, r.RoundNumber, r.CircuitID,
		formatDate(r.StartDate), formatDate(r.EndDate),
		r.CreatedAt.Format(time.RFC3339), r.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("upserting round %s: %w", r.Slug, err)
	}
	return r.ID, nil
}

func scanRound(row interface{ Scan(...any) error }) (*entity.Round, error) {
	var r entity.Round
	var start, end, createdAt, updatedAt string
	err := row.Scan(&r.ID, &r.Name, &r.Slug, &r.Year, &r.RoundNumber, &r.CircuitID, &start, &end, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	r.StartDate = parseDate(start)
	r.EndDate = parseDate(end)
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}
