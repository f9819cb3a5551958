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

const circuitColumns = `id, name, slug, location, country, latitude, longitude, created_at, updated_at`

// ListCircuits returns every canonical circuit in creation order.
func (s *Store) ListCircuits(ctx context.Context) ([]entity.Circuit, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+circuitColumns+` FROM circuits ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("listing circuits: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var circuits []entity.Circuit
	for rows.Next() {
		c, err := scanCircuit(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning circuit: %w", err)
		}
		circuits = append(circuits, *c)
	}
	return circuits, rows.Err()
}

// CircuitByID returns the circuit with the given ID, or nil when absent.
func (s *Store) CircuitByID(ctx context.Context, id string) (*entity.Circuit, error) {
	return s.circuitWhere(ctx, "id", id)
}

// CircuitBySlug returns the circuit with the given slug, or nil when absent.
func (s *Store) CircuitBySlug(ctx context.Context, slug string) (*entity.Circuit, error) {
	return s.circuitWhere(ctx, "slug", slug)
}

func (s *Store) circuitWhere(ctx context.Context, col, val string) (*entity.Circuit, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+circuitColumns+` FROM circuits WHERE `+col+` = ?`, val) //nolint:gosec // G202: column is a fixed identifier
	c, err := scanCircuit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting circuit by %s: %w", col, err)
	}
	return c, nil
}

// UpsertCircuit inserts the circuit or updates the row with the same ID.
func (s *Store) UpsertCircuit(ctx context.Context, c *entity.Circuit) (string, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	s.stamp(&c.CreatedAt, &c.UpdatedAt)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO circuits (`+circuitColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			slug = excluded.slug,
			location = excluded.location,
			country = excluded.country,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			updated_at = excluded.updated_at
	`,
		c.ID, c.Name, c.Slug, c.Location, c.Country, nullableFloat(c.Latitude), nullableFloat(c.Longitude),
		c.CreatedAt.Format(time.RFC3339), c.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("upserting circuit %s: %w", c.Slug, err)
	}
	return c.ID, nil
}

func scanCircuit(row interface{ Scan(...any) error }) (*entity.Circuit, error) {
	var c entity.Circuit
	var lat, lon sql.NullFloat64
	var createdAt, updatedAt string
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Location, &c.Country, &lat, &lon, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	c.Latitude = floatPtr(lat)
	c.Longitude = floatPtr(lon)
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}
