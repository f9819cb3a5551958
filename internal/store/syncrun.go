package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Sync run statuses.
const (
	SyncStatusRunning   = "running"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

// SyncRun records one invocation of the sync pipeline.
type SyncRun struct {
	ID         string         `json:"id"`
	Source     string         `json:"source"`
	Year       int            `json:"year"`
	Status     string         `json:"status"`
	Summary    map[string]int `json:"summary,omitempty"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
}

// RecordSyncRun inserts or updates a sync run row.
func (s *Store) RecordSyncRun(ctx context.Context, r *SyncRun) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = s.now()
	}
	summary := "{}"
	if len(r.Summary) > 0 {
		data, err := json.Marshal(r.Summary)
		if err != nil {
			return fmt.Errorf("encoding sync summary: %w", err)
		}
		summary = string(data)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, source, year, status, summary, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			summary = excluded.summary,
			error = excluded.error,
			finished_at = excluded.finished_at
	`, r.ID, r.Source, r.Year, r.Status, summary, r.Error,
		r.StartedAt.Format(time.RFC3339), formatNullableTime(r.FinishedAt))
	if err != nil {
		return fmt.Errorf("recording sync run: %w", err)
	}
	return nil
}

// ListSyncRuns returns the most recent sync runs, newest first.
func (s *Store) ListSyncRuns(ctx context.Context, limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, year, status, summary, error, started_at, COALESCE(finished_at, '')
		FROM sync_runs ORDER BY started_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sync runs: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var runs []SyncRun
	for rows.Next() {
		var r SyncRun
		var summary, startedAt, finishedAt string
		if err := rows.Scan(&r.ID, &r.Source, &r.Year, &r.Status, &summary, &r.Error, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scanning sync run: %w", err)
		}
		if summary != "" && summary != "{}" {
			_ = json.Unmarshal([]byte(summary), &r.Summary)
		}
		r.StartedAt = parseTime(startedAt)
		if finishedAt != "" {
			t := parseTime(finishedAt)
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
