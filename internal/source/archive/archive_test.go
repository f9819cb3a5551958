package archive

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sydlexius/pitwall/internal/database"
	"github.com/sydlexius/pitwall/internal/source"
)

const schema = `
CREATE TABLE circuits (circuitId INTEGER PRIMARY KEY, circuitRef TEXT, name TEXT, location TEXT,
	country TEXT, lat REAL, lng REAL, alt INTEGER, url TEXT);
CREATE TABLE races (raceId INTEGER PRIMARY KEY, year INTEGER, round INTEGER, circuitId INTEGER,
	name TEXT, date TEXT, time TEXT, url TEXT);
CREATE TABLE drivers (driverId INTEGER PRIMARY KEY, driverRef TEXT, number TEXT, code TEXT,
	forename TEXT, surname TEXT, dob TEXT, nationality TEXT, url TEXT);
CREATE TABLE constructors (constructorId INTEGER PRIMARY KEY, constructorRef TEXT, name TEXT,
	nationality TEXT, url TEXT);
CREATE TABLE results (resultId INTEGER PRIMARY KEY, raceId INTEGER, driverId INTEGER,
	constructorId INTEGER, number INTEGER, grid INTEGER, position INTEGER);

INSERT INTO circuits VALUES
	(1, 'albert_park', 'Albert Park Grand Prix Circuit', 'Melbourne', 'Australia', -37.8497, 144.968, 10, ''),
	(2, 'bahrain', 'Bahrain International Circuit', 'Sakhir', 'Bahrain', 26.0325, 50.5106, 7, '');
INSERT INTO races VALUES
	(1100, 2023, 3, 1, 'Australian Grand Prix', '2023-04-02', '05:00:00', ''),
	(1098, 2023, 1, 2, 'Bahrain Grand Prix', '2023-03-05', '15:00:00', ''),
	(1000, 2018, 1, 1, 'Australian Grand Prix', '2018-03-25', '05:10:00', '');
INSERT INTO drivers VALUES
	(830, 'max_verstappen', '33', 'VER', 'Max', 'Verstappen', '1997-09-30', 'Dutch', ''),
	(8, 'raikkonen', '7', 'RAI', 'Kimi', 'Räikkönen', '1979-10-17', 'Finnish', ''),
	(20, 'vettel', '\N', '\N', 'Sebastian', 'Vettel', '1987-07-03', 'German', '');
INSERT INTO constructors VALUES
	(9, 'red_bull', 'Red Bull', 'Austrian', ''),
	(6, 'ferrari', 'Ferrari', 'Italian', '');
INSERT INTO results VALUES
	(1, 1100, 830, 9, 1, 1, 1),
	(2, 1100, 20, 6, NULL, 2, 2),
	(3, 1000, 8, 6, 7, 2, 3),
	(4, 1100, 830, 9, 1, 1, 1);
`

func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.db")
	db, err := database.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(schema); err != nil {
		t.Fatal(err)
	}
	// Real archives ship as rollback-journal files.
	if _, err := db.Exec(`PRAGMA journal_mode=DELETE`); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	a, err := Open(path, logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestOpenMissing(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	if _, err := Open(filepath.Join(t.TempDir(), "none.db"), logger); err == nil {
		t.Error("expected error for missing archive")
	}
}

func TestMeetings(t *testing.T) {
	a := newTestArchive(t)

	meetings, err := a.Meetings(context.Background(), 2023)
	if err != nil {
		t.Fatalf("Meetings: %v", err)
	}
	if len(meetings) != 2 {
		t.Fatalf("expected 2 meetings, got %d", len(meetings))
	}
	if meetings[0].Key != "1098" || meetings[0].RoundNumber != 1 {
		t.Errorf("not ordered by round: %+v", meetings[0])
	}

	aus := meetings[1]
	if aus.Name != "Australian Grand Prix" || aus.CircuitName != "Albert Park Grand Prix Circuit" || aus.Location != "Melbourne" {
		t.Errorf("meeting = %+v", aus)
	}
	if aus.Latitude == nil || *aus.Latitude != -37.8497 {
		t.Errorf("latitude = %v", aus.Latitude)
	}
	if want := time.Date(2023, 4, 2, 0, 0, 0, 0, time.UTC); !aus.EndDate.Equal(want) || !aus.StartDate.Equal(want.AddDate(0, 0, -2)) {
		t.Errorf("dates = %v .. %v", aus.StartDate, aus.EndDate)
	}
}

func TestEntrants(t *testing.T) {
	a := newTestArchive(t)

	entrants, err := a.Entrants(context.Background(), "1100")
	if err != nil {
		t.Fatalf("Entrants: %v", err)
	}
	if len(entrants) != 2 {
		t.Fatalf("expected 2 entrants, got %d", len(entrants))
	}

	ver := entrants[0]
	if ver.FullName != "Max Verstappen" || ver.Number != 1 || ver.Abbreviation != "VER" || ver.TeamName != "Red Bull" {
		t.Errorf("entrant = %+v", ver)
	}
	vet := entrants[1]
	if vet.Number != 0 || vet.Abbreviation != "" || vet.TeamNationality != "Italian" {
		t.Errorf("null fields not cleaned: %+v", vet)
	}

	old, err := a.Entrants(context.Background(), "1000")
	if err != nil {
		t.Fatal(err)
	}
	if len(old) != 1 || old[0].LastName != "Räikkönen" || old[0].Number != 7 {
		t.Errorf("2018 entrants = %+v", old)
	}
}

func TestEntrantsNotFound(t *testing.T) {
	a := newTestArchive(t)
	for _, key := range []string{"4242", "bahrain"} {
		_, err := a.Entrants(context.Background(), key)
		var nf *source.ErrNotFound
		if !errors.As(err, &nf) {
			t.Errorf("Entrants(%s) err = %v, want ErrNotFound", key, err)
		}
	}
}
