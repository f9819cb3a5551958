// Package ingest syncs a season from a source into the canonical store. Each
// incoming record goes through the resolver; confident outcomes are persisted
// and fed back into the resolver's cache, uncertain ones are filed for review.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sydlexius/pitwall/internal/backup"
	"github.com/sydlexius/pitwall/internal/entity"
	"github.com/sydlexius/pitwall/internal/event"
	"github.com/sydlexius/pitwall/internal/matcher"
	"github.com/sydlexius/pitwall/internal/metrics"
	"github.com/sydlexius/pitwall/internal/resolver"
	"github.com/sydlexius/pitwall/internal/review"
	"github.com/sydlexius/pitwall/internal/source"
	"github.com/sydlexius/pitwall/internal/store"
)

// Config wires a Pipeline. Backup, Events, and Metrics are optional.
type Config struct {
	Store    *store.Store
	Reviews  *review.Service
	Resolver *resolver.Resolver
	Backup   *backup.Service
	Events   event.Publisher
	Metrics  *metrics.Recorder
	Logger   *slog.Logger
}

// Pipeline runs syncs and applies review decisions. It is not safe for
// concurrent use; run one pipeline per process.
type Pipeline struct {
	store    *store.Store
	reviews  *review.Service
	resolver *resolver.Resolver
	backup   *backup.Service
	events   event.Publisher
	metrics  *metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a pipeline.
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:    cfg.Store,
		reviews:  cfg.Reviews,
		resolver: cfg.Resolver,
		backup:   cfg.Backup,
		events:   cfg.Events,
		metrics:  cfg.Metrics,
		logger:   logger.With(slog.String("component", "ingest")),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Outcomes counted per entity type in a RunSummary.
const (
	OutcomeCreated = "created"
	OutcomeMatched = "matched"
	OutcomeRenamed = "renamed"
	OutcomeReview  = "review"
	OutcomeSkipped = "skipped"
	OutcomeAliases = "aliases"
)

// RunSummary reports what a sync run did.
type RunSummary struct {
	RunID    string         `json:"run_id"`
	Source   source.Name    `json:"source"`
	Year     int            `json:"year"`
	Status   string         `json:"status"`
	Meetings int            `json:"meetings"`
	Counts   map[string]int `json:"counts"`
	Duration time.Duration  `json:"duration"`
}

// Count returns the number of records of type t with the given outcome.
func (s *RunSummary) Count(t entity.Type, outcome string) int {
	return s.Counts[countKey(t, outcome)]
}

func (s *RunSummary) add(t entity.Type, outcome string, n int) {
	if n == 0 {
		return
	}
	s.Counts[countKey(t, outcome)] += n
}

func countKey(t entity.Type, outcome string) string {
	return string(t) + "." + outcome
}

// Run syncs one season of src. A sync_runs row records the attempt whatever
// the outcome. Records the resolver cannot use (no name, no season) are
// counted as skipped; a source or store failure aborts the run.
func (p *Pipeline) Run(ctx context.Context, src source.Source, year int) (*RunSummary, error) {
	started := p.now()
	run := &store.SyncRun{
		Source:    string(src.Name()),
		Year:      year,
		Status:    store.SyncStatusRunning,
		StartedAt: started,
	}
	if err := p.store.RecordSyncRun(ctx, run); err != nil {
		return nil, err
	}

	sum := &RunSummary{
		RunID:  run.ID,
		Source: src.Name(),
		Year:   year,
		Status: store.SyncStatusRunning,
		Counts: make(map[string]int),
	}
	logger := p.logger.With(
		slog.String("run_id", run.ID),
		slog.String("source", string(src.Name())),
		slog.Int("year", year))
	logger.Info("sync started")

	err := p.sync(ctx, src, year, sum, logger)
	p.finish(ctx, run, sum, err, logger)
	if err != nil {
		return sum, fmt.Errorf("sync %s %d: %w", src.Name(), year, err)
	}
	return sum, nil
}

func (p *Pipeline) sync(ctx context.Context, src source.Source, year int, sum *RunSummary, logger *slog.Logger) error {
	if p.backup != nil {
		if _, err := p.backup.BeforeSync(ctx); err != nil {
			return fmt.Errorf("pre-sync backup: %w", err)
		}
	}
	if err := p.resolver.Warm(ctx); err != nil {
		return fmt.Errorf("warming resolver: %w", err)
	}

	meetings, err := src.Meetings(ctx, year)
	if err != nil {
		return fmt.Errorf("listing meetings: %w", err)
	}
	logger.Info("meetings listed", slog.Int("count", len(meetings)))

	for _, m := range meetings {
		if err := ctx.Err(); err != nil {
			return err
		}
		if m.Year == 0 {
			m.Year = year
		}
		if err := p.syncMeeting(ctx, src, m, sum, logger); err != nil {
			return fmt.Errorf("meeting %s (%s): %w", m.Key, m.Name, err)
		}
		sum.Meetings++
	}
	return nil
}

func (p *Pipeline) finish(ctx context.Context, run *store.SyncRun, sum *RunSummary, runErr error, logger *slog.Logger) {
	finished := p.now()
	sum.Duration = finished.Sub(run.StartedAt)

	run.Status = store.SyncStatusCompleted
	if runErr != nil {
		run.Status = store.SyncStatusFailed
		run.Error = runErr.Error()
	}
	run.Summary = sum.Counts
	run.FinishedAt = &finished
	sum.Status = run.Status

	// A canceled run is still recorded.
	if err := p.store.RecordSyncRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Error("recording sync run", slog.String("error", err.Error()))
	}
	p.metrics.SyncFinished(run.Source, run.Status, sum.Duration, finished)

	data := map[string]any{
		"run_id":   run.ID,
		"source":   run.Source,
		"year":     run.Year,
		"meetings": sum.Meetings,
		"counts":   sum.Counts,
	}
	if runErr != nil {
		data["error"] = runErr.Error()
		p.publish(event.SyncFailed, data)
		logger.Error("sync failed", slog.String("error", runErr.Error()), slog.Duration("duration", sum.Duration))
		return
	}
	p.publish(event.SyncCompleted, data)
	logger.Info("sync completed",
		slog.Int("meetings", sum.Meetings),
		slog.Int("reviews", sum.reviews()),
		slog.Duration("duration", sum.Duration))
}

func (s *RunSummary) reviews() int {
	n := 0
	for _, t := range []entity.Type{entity.TypeDriver, entity.TypeTeam, entity.TypeCircuit, entity.TypeRound} {
		n += s.Count(t, OutcomeReview)
	}
	return n
}

func (p *Pipeline) syncMeeting(ctx context.Context, src source.Source, m source.Meeting, sum *RunSummary, logger *slog.Logger) error {
	circuitID, err := p.syncCircuit(ctx, src.Name(), m, sum)
	if err != nil {
		return err
	}
	if _, err := p.syncRound(ctx, src.Name(), m, circuitID, sum); err != nil {
		return err
	}

	entrants, err := src.Entrants(ctx, m.Key)
	var notFound *source.ErrNotFound
	switch {
	case errors.As(err, &notFound):
		logger.Warn("meeting has no entrants", slog.String("meeting", m.Key), slog.String("name", m.Name))
		return nil
	case err != nil:
		return fmt.Errorf("listing entrants: %w", err)
	}

	for _, e := range entrants {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.syncTeam(ctx, src.Name(), e, m.Year, sum); err != nil {
			return err
		}
		if err := p.syncDriver(ctx, src.Name(), e, m.Year, sum); err != nil {
			return err
		}
	}
	logger.Info("meeting synced",
		slog.String("meeting", m.Key),
		slog.String("name", m.Name),
		slog.Int("entrants", len(entrants)))
	return nil
}

func (p *Pipeline) syncCircuit(ctx context.Context, src source.Name, m source.Meeting, sum *RunSummary) (string, error) {
	in := matcher.CircuitInput{
		Name:      m.CircuitName,
		Location:  m.Location,
		Country:   m.Country,
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
	}
	res, err := p.resolver.ResolveCircuit(ctx, in)
	if skippable(err) {
		sum.add(entity.TypeCircuit, OutcomeSkipped, 1)
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return apply(ctx, p, circuits, src, res, in, in.Name, sum)
}

func (p *Pipeline) syncRound(ctx context.Context, src source.Name, m source.Meeting, circuitID string, sum *RunSummary) (string, error) {
	name := m.Name
	if name == "" {
		name = m.OfficialName
	}
	in := matcher.RoundInput{
		Name:        name,
		Year:        m.Year,
		RoundNumber: m.RoundNumber,
		CircuitID:   circuitID,
		StartDate:   m.StartDate,
		EndDate:     m.EndDate,
	}
	res, err := p.resolver.ResolveRound(ctx, in)
	if skippable(err) {
		sum.add(entity.TypeRound, OutcomeSkipped, 1)
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return apply(ctx, p, rounds, src, res, in, in.Name, sum)
}

func (p *Pipeline) syncTeam(ctx context.Context, src source.Name, e source.Entrant, year int, sum *RunSummary) error {
	if e.TeamName == "" {
		return nil
	}
	in := matcher.TeamInput{
		Name:        e.TeamName,
		Color:       e.TeamColor,
		Nationality: e.TeamNationality,
		Year:        year,
	}
	res, err := p.resolver.ResolveTeam(ctx, in)
	if skippable(err) {
		sum.add(entity.TypeTeam, OutcomeSkipped, 1)
		return nil
	}
	if err != nil {
		return err
	}
	_, err = apply(ctx, p, teams, src, res, in, in.Name, sum)
	return err
}

func (p *Pipeline) syncDriver(ctx context.Context, src source.Name, e source.Entrant, year int, sum *RunSummary) error {
	in := matcher.DriverInput{
		FullName:     e.FullName,
		FirstName:    e.FirstName,
		LastName:     e.LastName,
		Number:       e.Number,
		Abbreviation: e.Abbreviation,
		Nationality:  e.Nationality,
		HeadshotURL:  e.HeadshotURL,
		Year:         year,
	}
	res, err := p.resolver.ResolveDriver(ctx, in)
	if skippable(err) {
		sum.add(entity.TypeDriver, OutcomeSkipped, 1)
		return nil
	}
	if err != nil {
		return err
	}
	_, err = apply(ctx, p, drivers, src, res, in, in.Name(), sum)
	return err
}

func skippable(err error) bool {
	return errors.Is(err, resolver.ErrEmptyName) || errors.Is(err, resolver.ErrMissingSeason)
}

func (p *Pipeline) publish(t event.Type, data map[string]any) {
	if p.events == nil {
		return
	}
	p.events.Publish(event.Event{Type: t, Timestamp: p.now(), Data: data})
}
