// Package review persists low-confidence matches for a human to decide.
package review

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sydlexius/pitwall/internal/match"
)

// Service manages the pending match queue.
type Service struct {
	db  *sql.DB
	now func() time.Time
}

// NewService creates a review service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const selectColumns = `
	SELECT id, entity_type, incoming_name, incoming_slug, payload, candidate_id, candidate_name,
		score, confidence, signals, source, status, resolution, resolved_by,
		created_at, updated_at, resolved_at
	FROM pending_matches`

// Create files a pending match. When a pending record already exists for the
// same entity type, incoming slug, and candidate, nothing is written: m takes
// the existing ID and created is false.
func (s *Service) Create(ctx context.Context, m *PendingMatch) (bool, error) {
	if !m.EntityType.Valid() {
		return false, fmt.Errorf("unknown entity type %q", m.EntityType)
	}
	if m.IncomingName == "" || m.IncomingSlug == "" {
		return false, fmt.Errorf("incoming name and slug are required")
	}

	var existing string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM pending_matches
		WHERE entity_type = ? AND incoming_slug = ? AND candidate_id = ? AND status = ?
		LIMIT 1
	`, m.EntityType, m.IncomingSlug, m.CandidateID, StatusPending).Scan(&existing)
	switch {
	case err == nil:
		m.ID = existing
		return false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("checking for duplicate pending match: %w", err)
	}

	payload := m.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	signals, err := json.Marshal(m.Signals)
	if err != nil {
		return false, fmt.Errorf("marshaling signals: %w", err)
	}
	if m.Signals == nil {
		signals = []byte("[]")
	}

	now := s.now()
	m.ID = uuid.New().String()
	m.Status = StatusPending
	m.CreatedAt = now
	m.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pending_matches (id, entity_type, incoming_name, incoming_slug, payload,
			candidate_id, candidate_name, score, confidence, signals, source, status,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.EntityType, m.IncomingName, m.IncomingSlug, string(payload),
		m.CandidateID, m.CandidateName, m.Score, m.Confidence.String(), string(signals), m.Source, m.Status,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return false, fmt.Errorf("inserting pending match: %w", err)
	}
	return true, nil
}

// Get returns a pending match by ID.
func (s *Service) Get(ctx context.Context, id string) (*PendingMatch, error) {
	m, err := scanPendingMatch(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

// List returns pending matches in filing order. An empty status lists all.
func (s *Service) List(ctx context.Context, status Status) ([]PendingMatch, error) {
	query := selectColumns
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing pending matches: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []PendingMatch
	for rows.Next() {
		m, err := scanPendingMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// Counts returns the number of records in each status.
func (s *Service) Counts(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM pending_matches GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting pending matches: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	counts := make(map[Status]int)
	for rows.Next() {
		var st Status
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[st] = n
	}
	return counts, rows.Err()
}

// Decide records a reviewer's resolution and moves the record to its
// terminal status. A record can be decided only once.
func (s *Service) Decide(ctx context.Context, id string, res Resolution, reviewer string) (*PendingMatch, error) {
	status, ok := res.Status()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidResolution, res)
	}

	now := s.now().Format(time.RFC3339)
	result, err := s.db.ExecContext(ctx, `
		UPDATE pending_matches
		SET status = ?, resolution = ?, resolved_by = ?, resolved_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, status, res, reviewer, now, now, id, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("deciding pending match: %w", err)
	}

	n, _ := result.RowsAffected()
	if n == 0 {
		existing, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s is %s", ErrAlreadyDecided, id, existing.Status)
	}
	return s.Get(ctx, id)
}

// scanner interface for both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanPendingMatch(sc scanner) (*PendingMatch, error) {
	var (
		m                    PendingMatch
		payload, signals     string
		confidence           string
		createdAt, updatedAt string
		resolvedAt           sql.NullString
	)
	err := sc.Scan(&m.ID, &m.EntityType, &m.IncomingName, &m.IncomingSlug, &payload,
		&m.CandidateID, &m.CandidateName, &m.Score, &confidence, &signals, &m.Source,
		&m.Status, &m.Resolution, &m.ResolvedBy, &createdAt, &updatedAt, &resolvedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning pending match: %w", err)
	}

	m.Payload = json.RawMessage(payload)
	m.Confidence = match.ParseConfidence(confidence)
	if err := json.Unmarshal([]byte(signals), &m.Signals); err != nil {
		m.Signals = nil
	}
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)
	if resolvedAt.Valid && resolvedAt.String != "" {
		t := parseTime(resolvedAt.String)
		m.ResolvedAt = &t
	}
	return &m, nil
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
