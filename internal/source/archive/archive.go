// Package archive reads historical results from an Ergast-schema SQLite
// database. The file is opened read-only and never modified.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/sydlexius/pitwall/internal/database"
	"github.com/sydlexius/pitwall/internal/source"
)

// Archive implements source.Source over an archive database.
type Archive struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens the archive file at path.
func Open(path string, logger *slog.Logger) (*Archive, error) {
	db, err := database.OpenReadOnly(path)
	if err != nil {
		return nil, err
	}
	return New(db, logger), nil
}

// New wraps an already open archive database.
func New(db *sql.DB, logger *slog.Logger) *Archive {
	return &Archive{
		db:     db,
		logger: logger.With(slog.String("source", string(source.NameArchive))),
	}
}

// Close releases the database handle.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Name returns the source name.
func (a *Archive) Name() source.Name { return source.NameArchive }

// Meetings lists the races of a season ordered by round.
func (a *Archive) Meetings(ctx context.Context, year int) ([]source.Meeting, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT r.raceId, r.year, r.round, r.name, COALESCE(r.date, ''),
			c.name, COALESCE(c.location, ''), COALESCE(c.country, ''), c.lat, c.lng
		FROM races r
		JOIN circuits c ON c.circuitId = r.circuitId
		WHERE r.year = ?
		ORDER BY r.round
	`, year)
	if err != nil {
		return nil, a.unavailable(fmt.Errorf("listing races: %w", err))
	}
	defer rows.Close() //nolint:errcheck

	var meetings []source.Meeting
	for rows.Next() {
		var (
			m        source.Meeting
			raceID   int64
			date     string
			lat, lng sql.NullFloat64
		)
		if err := rows.Scan(&raceID, &m.Year, &m.RoundNumber, &m.Name, &date,
			&m.CircuitName, &m.Location, &m.Country, &lat, &lng); err != nil {
			return nil, fmt.Errorf("scanning race: %w", err)
		}
		m.Key = strconv.FormatInt(raceID, 10)
		// Ergast dates the race day; the weekend opens two days earlier.
		if race := parseDate(date); !race.IsZero() {
			m.StartDate = race.AddDate(0, 0, -2)
			m.EndDate = race
		}
		m.Latitude = floatPtr(lat)
		m.Longitude = floatPtr(lng)
		meetings = append(meetings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating races: %w", err)
	}
	a.logger.Debug("listed meetings", slog.Int("year", year), slog.Int("count", len(meetings)))
	return meetings, nil
}

// Entrants lists the classified cars of a race in result order, one row per
// driver.
func (a *Archive) Entrants(ctx context.Context, meetingKey string) ([]source.Entrant, error) {
	raceID, err := strconv.ParseInt(meetingKey, 10, 64)
	if err != nil {
		return nil, &source.ErrNotFound{Source: source.NameArchive, Key: meetingKey}
	}

	var exists int
	err = a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM races WHERE raceId = ?`, raceID).Scan(&exists)
	if err != nil {
		return nil, a.unavailable(fmt.Errorf("looking up race: %w", err))
	}
	if exists == 0 {
		return nil, &source.ErrNotFound{Source: source.NameArchive, Key: meetingKey}
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT d.driverId, COALESCE(d.forename, ''), COALESCE(d.surname, ''), COALESCE(d.code, ''),
			COALESCE(d.nationality, ''), res.number, d.number,
			COALESCE(k.name, ''), COALESCE(k.nationality, '')
		FROM results res
		JOIN drivers d ON d.driverId = res.driverId
		JOIN constructors k ON k.constructorId = res.constructorId
		WHERE res.raceId = ?
		ORDER BY res.resultId
	`, raceID)
	if err != nil {
		return nil, a.unavailable(fmt.Errorf("listing results: %w", err))
	}
	defer rows.Close() //nolint:errcheck

	seen := make(map[int64]bool)
	var entrants []source.Entrant
	for rows.Next() {
		var (
			e                    source.Entrant
			driverID             int64
			carNumber, permanent sql.NullString
		)
		if err := rows.Scan(&driverID, &e.FirstName, &e.LastName, &e.Abbreviation, &e.Nationality,
			&carNumber, &permanent, &e.TeamName, &e.TeamNationality); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		if seen[driverID] {
			continue
		}
		seen[driverID] = true

		e.FullName = strings.TrimSpace(e.FirstName + " " + e.LastName)
		e.Abbreviation = cleanNull(e.Abbreviation)
		e.Number = parseNumber(carNumber)
		if e.Number == 0 {
			e.Number = parseNumber(permanent)
		}
		entrants = append(entrants, e)
	}
	return entrants, rows.Err()
}

func (a *Archive) unavailable(err error) error {
	return &source.ErrUnavailable{Source: source.NameArchive, Cause: err}
}

// Ergast dumps write missing values as the literal \N.
func cleanNull(s string) string {
	if s == `\N` {
		return ""
	}
	return s
}

func parseNumber(ns sql.NullString) int {
	if !ns.Valid {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(cleanNull(ns.String)))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func parseDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", cleanNull(s))
	if err != nil {
		return time.Time{}
	}
	return t
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
