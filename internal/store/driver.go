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

const driverColumns = `id, name, first_name, last_name, slug, number,
	number_valid_from, number_valid_until, abbreviation, nationality, headshot_url,
	created_at, updated_at`

// ListDrivers returns every canonical driver in creation order.
func (s *Store) ListDrivers(ctx context.Context) ([]entity.Driver, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+driverColumns+` FROM drivers ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("listing drivers: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var drivers []entity.Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning driver: %w", err)
		}
		drivers = append(drivers, *d)
	}
	return drivers, rows.Err()
}

// DriverByID returns the driver with the given ID, or nil when absent.
func (s *Store) DriverByID(ctx context.Context, id string) (*entity.Driver, error) {
	return s.driverWhere(ctx, "id", id)
}

// DriverBySlug returns the driver with the given slug, or nil when absent.
func (s *Store) DriverBySlug(ctx context.Context, slug string) (*entity.Driver, error) {
	return s.driverWhere(ctx, "slug", slug)
}

func (s *Store) driverWhere(ctx context.Context, col, val string) (*entity.Driver, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+driverColumns+` FROM drivers WHERE `+col+` = ?`, val) //nolint:gosec // G202: column is a fixed identifier
	d, err := scanDriver(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting driver by %s: %w", col, err)
	}
	return d, nil
}

// UpsertDriver inserts the driver or updates the row with the same ID,
// assigning an ID when empty. It returns the ID.
func (s *Store) UpsertDriver(ctx context.Context, d *entity.Driver) (string, error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	s.stamp(&d.CreatedAt, &d.UpdatedAt)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drivers (`+driverColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			slug = excluded.slug,
			number = excluded.number,
			number_valid_from = excluded.number_valid_from,
			number_valid_until = excluded.number_valid_until,
			abbreviation = excluded.abbreviation,
			nationality = excluded.nationality,
			headshot_url = excluded.headshot_url,
			updated_at = excluded.updated_at
	`,
		d.ID, d.Name, d.FirstName, d.LastName, d.Slug, d.Number,
		d.NumberValidFrom, d.NumberValidUntil, d.Abbreviation, d.Nationality, d.HeadshotURL,
		d.CreatedAt.Format(time.RFC3339), d.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("upserting driver %s: %w", d.Slug, err)
	}
	return d.ID, nil
}

func scanDriver(row interface{ Scan(...any) error }) (*entity.Driver, error) {
	var d entity.Driver
	var createdAt, updatedAt string
	err := row.Scan(
		&d.ID, &d.Name, &d.FirstName, &d.LastName, &d.Slug, &d.Number,
		&d.NumberValidFrom, &d.NumberValidUntil, &d.Abbreviation, &d.Nationality, &d.HeadshotURL,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
	return &d, nil
}
