package ingest

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sydlexius/pitwall/internal/backup"
	"github.com/sydlexius/pitwall/internal/database"
	"github.com/sydlexius/pitwall/internal/entity"
	"github.com/sydlexius/pitwall/internal/event"
	"github.com/sydlexius/pitwall/internal/metrics"
	"github.com/sydlexius/pitwall/internal/resolver"
	"github.com/sydlexius/pitwall/internal/review"
	"github.com/sydlexius/pitwall/internal/source"
	"github.com/sydlexius/pitwall/internal/store"
)

type fakeSource struct {
	meetings    []source.Meeting
	entrants    map[string][]source.Entrant
	meetingsErr error
}

func (f *fakeSource) Name() source.Name { return source.NameArchive }

func (f *fakeSource) Meetings(_ context.Context, _ int) ([]source.Meeting, error) {
	return f.meetings, f.meetingsErr
}

func (f *fakeSource) Entrants(_ context.Context, key string) ([]source.Entrant, error) {
	e, ok := f.entrants[key]
	if !ok {
		return nil, &source.ErrNotFound{Source: source.NameArchive, Key: key}
	}
	return e, nil
}

type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) Publish(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) count(t event.Type) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type harness struct {
	pipeline *Pipeline
	store    *store.Store
	reviews  *review.Service
	events   *recorder
}

func setupTestDB(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := database.Open(path)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newHarness(t *testing.T, db *sql.DB, bk *backup.Service) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	s := store.New(db)
	reviews := review.NewService(db)
	events := &recorder{}
	p := New(Config{
		Store:    s,
		Reviews:  reviews,
		Resolver: resolver.New(s, resolver.Options{Logger: logger}),
		Backup:   bk,
		Events:   events,
		Metrics:  metrics.New(),
		Logger:   logger,
	})
	return &harness{pipeline: p, store: s, reviews: reviews, events: events}
}

func bahrain() source.Meeting {
	return source.Meeting{
		Key:          "1229",
		Name:         "Bahrain Grand Prix",
		OfficialName: "FORMULA 1 GULF AIR BAHRAIN GRAND PRIX 2024",
		Year:         2024,
		RoundNumber:  1,
		StartDate:    time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		CircuitName:  "Bahrain International Circuit",
		Location:     "Sakhir",
		Country:      "Bahrain",
	}
}

func grid() *fakeSource {
	return &fakeSource{
		meetings: []source.Meeting{bahrain()},
		entrants: map[string][]source.Entrant{
			"1229": {
				{FullName: "Max Verstappen", FirstName: "Max", LastName: "Verstappen", Number: 1,
					Abbreviation: "VER", Nationality: "NED", TeamName: "Red Bull Racing", TeamColor: "#3671C6"},
				{FullName: "Lewis Hamilton", FirstName: "Lewis", LastName: "Hamilton", Number: 44,
					Abbreviation: "HAM", Nationality: "GBR", TeamName: "Mercedes", TeamColor: "#27F4D2"},
				{FullName: "", Number: 99},
			},
		},
	}
}

func TestRun_CreatesEntities(t *testing.T) {
	h := newHarness(t, setupTestDB(t, ":memory:"), nil)
	ctx := context.Background()

	sum, err := h.pipeline.Run(ctx, grid(), 2024)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Status != store.SyncStatusCompleted || sum.Meetings != 1 {
		t.Errorf("summary = %+v", sum)
	}

	tests := []struct {
		typ     entity.Type
		outcome string
		want    int
	}{
		{entity.TypeCircuit, OutcomeCreated, 1},
		{entity.TypeRound, OutcomeCreated, 1},
		{entity.TypeTeam, OutcomeCreated, 2},
		{entity.TypeDriver, OutcomeCreated, 2},
		{entity.TypeDriver, OutcomeSkipped, 1},
	}
	for _, tt := range tests {
		if got := sum.Count(tt.typ, tt.outcome); got != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.typ, tt.outcome, got, tt.want)
		}
	}

	counts, err := h.store.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts[entity.TypeDriver] != 2 || counts[entity.TypeTeam] != 2 || counts[entity.TypeRound] != 1 {
		t.Errorf("store counts = %v", counts)
	}

	rounds, err := h.store.ListRoundsByYear(ctx, 2024)
	if err != nil {
		t.Fatal(err)
	}
	circuits, err := h.store.ListCircuits(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rounds) != 1 || len(circuits) != 1 || rounds[0].CircuitID != circuits[0].ID {
		t.Errorf("round not linked to its circuit: %+v / %+v", rounds, circuits)
	}

	runs, err := h.store.ListSyncRuns(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Status != store.SyncStatusCompleted || runs[0].FinishedAt == nil {
		t.Fatalf("sync runs = %+v", runs)
	}
	if runs[0].Summary["driver.created"] != 2 {
		t.Errorf("recorded summary = %v", runs[0].Summary)
	}

	if got := h.events.count(event.EntityCreated); got != 6 {
		t.Errorf("entity.created events = %d, want 6", got)
	}
	if got := h.events.count(event.SyncCompleted); got != 1 {
		t.Errorf("sync.completed events = %d, want 1", got)
	}
}

func TestRun_Idempotent(t *testing.T) {
	h := newHarness(t, setupTestDB(t, ":memory:"), nil)
	ctx := context.Background()

	if _, err := h.pipeline.Run(ctx, grid(), 2024); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	aliasesBefore, err := h.store.ListAliases(ctx, entity.TypeDriver)
	if err != nil {
		t.Fatal(err)
	}

	sum, err := h.pipeline.Run(ctx, grid(), 2024)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	for _, typ := range []entity.Type{entity.TypeDriver, entity.TypeTeam, entity.TypeCircuit, entity.TypeRound} {
		if n := sum.Count(typ, OutcomeCreated); n != 0 {
			t.Errorf("%s created %d on rerun", typ, n)
		}
		if n := sum.Count(typ, OutcomeAliases); n != 0 {
			t.Errorf("%s added %d aliases on rerun", typ, n)
		}
	}
	if sum.Count(entity.TypeDriver, OutcomeMatched) != 2 {
		t.Errorf("drivers matched = %d", sum.Count(entity.TypeDriver, OutcomeMatched))
	}

	aliasesAfter, err := h.store.ListAliases(ctx, entity.TypeDriver)
	if err != nil {
		t.Fatal(err)
	}
	if len(aliasesAfter) != len(aliasesBefore) {
		t.Errorf("aliases grew from %d to %d", len(aliasesBefore), len(aliasesAfter))
	}
}

func TestRun_EntrantsNotFound(t *testing.T) {
	h := newHarness(t, setupTestDB(t, ":memory:"), nil)
	src := grid()
	src.entrants = nil

	sum, err := h.pipeline.Run(context.Background(), src, 2024)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Meetings != 1 || sum.Count(entity.TypeRound, OutcomeCreated) != 1 || sum.Count(entity.TypeDriver, OutcomeCreated) != 0 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestRun_SourceFailure(t *testing.T) {
	h := newHarness(t, setupTestDB(t, ":memory:"), nil)
	ctx := context.Background()
	cause := errors.New("connection refused")
	src := &fakeSource{meetingsErr: &source.ErrUnavailable{Source: source.NameArchive, Cause: cause}}

	sum, err := h.pipeline.Run(ctx, src, 2024)
	if !errors.Is(err, cause) {
		t.Fatalf("Run err = %v", err)
	}
	if sum == nil || sum.Status != store.SyncStatusFailed {
		t.Errorf("summary = %+v", sum)
	}

	runs, err := h.store.ListSyncRuns(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Status != store.SyncStatusFailed || runs[0].Error == "" {
		t.Errorf("sync runs = %+v", runs)
	}
	if h.events.count(event.SyncFailed) != 1 {
		t.Error("expected a sync.failed event")
	}
}

func TestRun_BackupBeforeSync(t *testing.T) {
	dir := t.TempDir()
	db := setupTestDB(t, filepath.Join(dir, "pitwall.db"))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	bk := backup.NewService(db, backup.Options{Dir: filepath.Join(dir, "backups")}, logger)
	h := newHarness(t, db, bk)

	if _, err := h.pipeline.Run(context.Background(), grid(), 2024); err != nil {
		t.Fatalf("Run: %v", err)
	}
	backups, err := bk.ListBackups()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 1 {
		t.Errorf("expected 1 pre-sync backup, got %d", len(backups))
	}
}
