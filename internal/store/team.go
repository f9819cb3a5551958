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

const teamColumns = `id, name, slug, color, nationality, active_from, active_until, created_at, updated_at`

// ListTeams returns every canonical team in creation order.
func (s *Store) ListTeams(ctx context.Context) ([]entity.Team, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+teamColumns+` FROM teams ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var teams []entity.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning team: %w", err)
		}
		teams = append(teams, *t)
	}
	return teams, rows.Err()
}

// TeamByID returns the team with the given ID, or nil when absent.
func (s *Store) TeamByID(ctx context.Context, id string) (*entity.Team, error) {
	return s.teamWhere(ctx, "id", id)
}

// TeamBySlug returns the team with the given slug, or nil when absent.
func (s *Store) TeamBySlug(ctx context.Context, slug string) (*entity.Team, error) {
	return s.teamWhere(ctx, "slug", slug)
}

func (s *Store) teamWhere(ctx context.Context, col, val string) (*entity.Team, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE `+col+` = ?`, val) //nolint:gosec // G202: column is a fixed identifier
	t, err := scanTeam(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting team by %s: %w", col, err)
	}
	return t, nil
}

// UpsertTeam inserts the team or updates the row with the same ID.
func (s *Store) UpsertTeam(ctx context.Context, t *entity.Team) (string, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	s.stamp(&t.CreatedAt, &t.UpdatedAt)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO teams (`+teamColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			slug = excluded.slug,
			color = excluded.color,
			nationality = excluded.nationality,
			active_from = excluded.active_from,
			active_until = excluded.active_until,
			updated_at = excluded.updated_at
	`,
		t.ID, t.Name, t.Slug, t.Color, t.Nationality, t.ActiveFrom, t.ActiveUntil,
		t.CreatedAt.Format(time.RFC3339), t.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("upserting team %s: %w", t.Slug, err)
	}
	return t.ID, nil
}

func scanTeam(row interface{ Scan(...any) error }) (*entity.Team, error) {
	var t entity.Team
	var createdAt, updatedAt string
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Color, &t.Nationality, &t.ActiveFrom, &t.ActiveUntil, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return &t, nil
}
