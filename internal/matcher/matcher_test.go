package matcher

import (
	"testing"
	"time"

	"github.com/sydlexius/pitwall/internal/entity"
	"github.com/sydlexius/pitwall/internal/match"
)

func ptr(f float64) *float64 { return &f }

func signal(t *testing.T, signals []match.SignalResult, name string) match.SignalResult {
	t.Helper()
	for _, s := range signals {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("signal %q not found", name)
	return match.SignalResult{}
}

func TestSignalTablesSumToOne(t *testing.T) {
	// Construction panics on a bad table; rebuilding here guards edits to the
	// weight constants.
	sum := func(w map[string]float64) float64 {
		var total float64
		for _, v := range w {
			total += v
		}
		return total
	}
	for name, w := range map[string]map[string]float64{
		"driver":  NewDriverMatcher().m.Weights(),
		"team":    NewTeamMatcher().m.Weights(),
		"circuit": NewCircuitMatcher().m.Weights(),
		"round":   NewRoundMatcher().m.Weights(),
	} {
		if s := sum(w); s < 0.99 || s > 1.01 {
			t.Errorf("%s weights sum to %f", name, s)
		}
	}
}

func TestDriver_Diacritics(t *testing.T) {
	kimi := &entity.Driver{ID: "d1", Name: "Kimi Räikkönen", FirstName: "Kimi", LastName: "Räikkönen", Number: 7}
	antonelli := &entity.Driver{ID: "d2", Name: "Andrea Kimi Antonelli", FirstName: "Andrea", LastName: "Antonelli", Number: 12}

	r := NewDriverMatcher().Match(DriverInput{FullName: "Kimi Raikkonen"}, []*entity.Driver{antonelli, kimi})
	if r.IsNew || r.Candidate != kimi {
		t.Fatalf("expected Räikkönen, got %+v", r)
	}
	if r.Confidence == match.NoMatch {
		t.Error("confidence should not be NoMatch")
	}
	if r.Score != 0.6 {
		t.Errorf("Score = %v, want 0.6 (last + first + fuzzy)", r.Score)
	}
}

func TestDriver_NumberCollision(t *testing.T) {
	shwartzman := &entity.Driver{ID: "d1", Name: "Robert Shwartzman", FirstName: "Robert", LastName: "Shwartzman", Number: 97}

	r := NewDriverMatcher().Match(DriverInput{FullName: "Paul Aron", Number: 97}, []*entity.Driver{shwartzman})
	if !r.IsNew {
		t.Fatalf("expected no match, got score %v (%v)", r.Score, r.Confidence)
	}
	if got, ok := MatchDriver(DriverInput{FullName: "Paul Aron", Number: 97}, []*entity.Driver{shwartzman}); ok {
		t.Errorf("MatchDriver returned %v", got.Name)
	}
}

func TestDriver_NumberValidityWindow(t *testing.T) {
	d := &entity.Driver{Name: "Robert Shwartzman", Number: 97, NumberValidFrom: 2022, NumberValidUntil: 2023}
	dm := NewDriverMatcher()

	in := DriverInput{FullName: "Robert Shwartzman", Number: 97, Year: 2023}
	if s := signal(t, dm.Score(in, d).Signals, "number"); !s.Matched || s.Score != 1.0 {
		t.Errorf("2023 number signal = %+v", s)
	}
	in.Year = 2025
	if s := signal(t, dm.Score(in, d).Signals, "number"); s.Matched || s.Score != 0 {
		t.Errorf("2025 number signal = %+v, want unmatched", s)
	}
}

func TestDriver_FullEvidence(t *testing.T) {
	hulk := &entity.Driver{
		Name: "Nico Hülkenberg", FirstName: "Nico", LastName: "Hülkenberg",
		Number: 27, Abbreviation: "HUL", Nationality: "German",
	}
	in := DriverInput{
		FullName: "Nico Hulkenberg", Number: 27, Abbreviation: "HUL", Nationality: "GER", Year: 2024,
	}
	got, ok := MatchDriver(in, []*entity.Driver{hulk})
	if !ok || got != hulk {
		t.Fatal("expected a confident match")
	}
	if r := NewDriverMatcher().Match(in, []*entity.Driver{hulk}); r.Confidence != match.High || r.Score != 1.0 {
		t.Errorf("Confidence = %v Score = %v, want high 1.0", r.Confidence, r.Score)
	}
}

func TestDriver_AbbreviationPartialCredit(t *testing.T) {
	d := &entity.Driver{Name: "Max Verstappen", Abbreviation: "VER"}
	s := signal(t, NewDriverMatcher().Score(DriverInput{FullName: "Max Verstappen", Abbreviation: "VES"}, d).Signals, "abbreviation")
	if s.Matched || s.Score < 0.66 || s.Score > 0.67 {
		t.Errorf("abbreviation signal = %+v, want 2/3 unmatched", s)
	}
}

func TestDriver_InitialFirstName(t *testing.T) {
	d := &entity.Driver{Name: "Max Verstappen", FirstName: "Max", LastName: "Verstappen"}
	s := signal(t, NewDriverMatcher().Score(DriverInput{FirstName: "M.", LastName: "Verstappen"}, d).Signals, "first_name")
	if s.Score != 0.5 {
		t.Errorf("first_name = %+v, want 0.5", s)
	}
}

func TestDriver_NoCandidates(t *testing.T) {
	r := NewDriverMatcher().Match(DriverInput{FullName: "Oliver Bearman"}, nil)
	if !r.IsNew || r.Confidence != match.NoMatch {
		t.Errorf("got %+v", r)
	}
}

func TestTeam_Containment(t *testing.T) {
	redBull := &entity.Team{ID: "t1", Name: "Red Bull Racing"}
	ferrari := &entity.Team{ID: "t2", Name: "Ferrari"}
	rb := &entity.Team{ID: "t3", Name: "Visa Cash App RB F1 Team"}

	got, ok := MatchTeam(TeamInput{Name: "Oracle Red Bull Racing"}, []*entity.Team{ferrari, rb, redBull})
	if !ok {
		t.Fatal("expected a match")
	}
	if got.Name != "Red Bull Racing" {
		t.Errorf("matched %q, want Red Bull Racing", got.Name)
	}
	r := NewTeamMatcher().Match(TeamInput{Name: "Oracle Red Bull Racing"}, []*entity.Team{redBull})
	if !r.Confidence.AtLeast(match.Medium) {
		t.Errorf("Confidence = %v, want at least medium", r.Confidence)
	}
}

func TestTeam_ColorAndYear(t *testing.T) {
	redBull := &entity.Team{Name: "Red Bull Racing", Color: "#3671C6", ActiveFrom: 2005}
	r := NewTeamMatcher().Match(TeamInput{Name: "Oracle Red Bull Racing", Color: "3671c6", Year: 2024}, []*entity.Team{redBull})
	if r.Confidence != match.High || r.Score != 1.0 {
		t.Errorf("Confidence = %v Score = %v, want high 1.0", r.Confidence, r.Score)
	}

	r = NewTeamMatcher().Match(TeamInput{Name: "Red Bull Racing", Year: 2001}, []*entity.Team{redBull})
	if s := signal(t, r.Signals, "year_overlap"); s.Matched {
		t.Error("2001 predates the team")
	}
}

func TestTeam_CoreTokenFallback(t *testing.T) {
	redBull := &entity.Team{Name: "Red Bull Racing"}
	s := signal(t, NewTeamMatcher().Score(TeamInput{Name: "Red Bull Honda"}, redBull).Signals, "containment")
	if !s.Matched || s.Score != coreTokenScore {
		t.Errorf("containment = %+v, want core token credit", s)
	}
}

func TestCircuit_Abbreviation(t *testing.T) {
	cota := &entity.Circuit{ID: "c1", Name: "Circuit of the Americas", Location: "Austin", Country: "USA"}
	silverstone := &entity.Circuit{ID: "c2", Name: "Silverstone Circuit", Location: "Silverstone", Country: "UK"}

	r := NewCircuitMatcher().Match(CircuitInput{Name: "COTA"}, []*entity.Circuit{silverstone, cota})
	if r.IsNew || r.Candidate != cota {
		t.Fatalf("expected COTA, got %+v", r)
	}
	if !r.Confidence.AtLeast(match.Low) {
		t.Errorf("Confidence = %v, want at least low", r.Confidence)
	}
}

func TestCircuit_LocationInName(t *testing.T) {
	cota := &entity.Circuit{Name: "Circuit of the Americas", Location: "Austin"}
	s := signal(t, NewCircuitMatcher().Score(CircuitInput{Name: "Austin Grand Prix Circuit"}, cota).Signals, "location")
	if !s.Matched {
		t.Errorf("location = %+v, want matched", s)
	}
}

func TestCircuit_Coordinates(t *testing.T) {
	monza := &entity.Circuit{Name: "Autodromo Nazionale Monza", Location: "Monza", Country: "Italy", Latitude: ptr(45.6156), Longitude: ptr(9.2811)}
	cm := NewCircuitMatcher()

	near := CircuitInput{Name: "Monza", Country: "ITA", Latitude: ptr(45.6200), Longitude: ptr(9.2900)}
	r := cm.Match(near, []*entity.Circuit{monza})
	if r.IsNew {
		t.Fatal("expected a match")
	}
	if s := signal(t, r.Signals, "coordinates"); !s.Matched || s.Score < 0.85 {
		t.Errorf("coordinates = %+v", s)
	}

	far := CircuitInput{Name: "Monza", Latitude: ptr(44.3439), Longitude: ptr(11.7167)}
	if r := cm.Match(far, []*entity.Circuit{monza}); !r.IsNew {
		t.Error("a candidate 200 km away should be prefiltered")
	}
}

func TestRound_YearGate(t *testing.T) {
	aus := &entity.Round{ID: "r1", Name: "Australian Grand Prix", Year: 2024}
	r := NewRoundMatcher().Match(RoundInput{Name: "Australian Grand Prix", Year: 2023}, []*entity.Round{aus})
	if !r.IsNew || r.Confidence != match.NoMatch {
		t.Errorf("got %+v, want NoMatch", r)
	}
}

func TestRound_FullMatch(t *testing.T) {
	aus := &entity.Round{
		ID: "r1", Name: "Australian Grand Prix", Year: 2024, RoundNumber: 3, CircuitID: "albert-park",
		StartDate: time.Date(2024, 3, 22, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 3, 24, 0, 0, 0, 0, time.UTC),
	}
	in := RoundInput{
		Name:        "FORMULA 1 ROLEX AUSTRALIAN GRAND PRIX 2024",
		RoundNumber: 3,
		CircuitID:   "albert-park",
		StartDate:   time.Date(2024, 3, 24, 5, 0, 0, 0, time.UTC),
	}
	got, ok := MatchRound(in, []*entity.Round{aus})
	if !ok || got != aus {
		t.Fatal("expected the 2024 Australian Grand Prix")
	}
	if r := NewRoundMatcher().Match(in, []*entity.Round{aus}); r.Score != 1.0 {
		t.Errorf("Score = %v, want 1.0", r.Score)
	}
}

func TestRound_DateDrift(t *testing.T) {
	r := &entity.Round{
		Year:      2024,
		StartDate: time.Date(2024, 3, 22, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 3, 24, 0, 0, 0, 0, time.UTC),
	}
	tests := []struct {
		start time.Time
		days  int
		score float64
	}{
		{time.Date(2024, 3, 23, 0, 0, 0, 0, time.UTC), 0, 1.0},
		{time.Date(2024, 3, 26, 0, 0, 0, 0, time.UTC), 2, 0.75},
		{time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), 7, 0.125},
		{time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), 8, 0},
	}
	for _, tt := range tests {
		in := RoundInput{Year: 2024, StartDate: tt.start}
		days, ok := dateDriftDays(in, r)
		if !ok || days != tt.days {
			t.Errorf("dateDriftDays(%s) = %d, want %d", tt.start.Format(time.DateOnly), days, tt.days)
		}
		if ev := evalRoundDate(in, r); ev.Score != tt.score {
			t.Errorf("date score for %s = %v, want %v", tt.start.Format(time.DateOnly), ev.Score, tt.score)
		}
	}
}

func TestDriver_MatchAll(t *testing.T) {
	ver := &entity.Driver{ID: "d1", Name: "Max Verstappen", FirstName: "Max", LastName: "Verstappen", Number: 1, Abbreviation: "VER", Nationality: "NED"}
	ham := &entity.Driver{ID: "d2", Name: "Lewis Hamilton", FirstName: "Lewis", LastName: "Hamilton", Number: 44, Abbreviation: "HAM", Nationality: "GBR"}
	in := DriverInput{FullName: "Max Verstappen", Number: 1, Abbreviation: "VER", Nationality: "NED"}

	got := NewDriverMatcher().MatchAll(in, []*entity.Driver{ham, ver}, match.Medium)
	if len(got) != 1 || got[0].Candidate != ver || got[0].Confidence != match.High {
		t.Errorf("MatchAll = %+v, want only Verstappen at high", got)
	}
}

func TestTeam_MatchAll(t *testing.T) {
	redBull := &entity.Team{ID: "t1", Name: "Red Bull Racing"}
	ferrari := &entity.Team{ID: "t2", Name: "Ferrari"}
	in := TeamInput{Name: "Red Bull"}

	got := NewTeamMatcher().MatchAll(in, []*entity.Team{ferrari, redBull}, match.Medium)
	if len(got) != 1 || got[0].Candidate != redBull {
		t.Fatalf("MatchAll = %+v, want only Red Bull Racing", got)
	}
	if got[0].Confidence != match.Medium {
		t.Errorf("Confidence = %s, want medium without color or season", got[0].Confidence)
	}
	if got := NewTeamMatcher().MatchAll(in, []*entity.Team{ferrari, redBull}, match.High); len(got) != 0 {
		t.Errorf("high floor kept %d results", len(got))
	}
}

func TestCircuit_MatchAll(t *testing.T) {
	cota := &entity.Circuit{ID: "c1", Name: "Circuit of the Americas", Location: "Austin", Country: "USA"}
	silverstone := &entity.Circuit{ID: "c2", Name: "Silverstone Circuit", Location: "Silverstone", Country: "UK"}
	in := CircuitInput{Name: "Circuit of the Americas", Location: "Austin", Country: "United States"}

	got := NewCircuitMatcher().MatchAll(in, []*entity.Circuit{silverstone, cota}, match.Medium)
	if len(got) != 1 || got[0].Candidate != cota {
		t.Errorf("MatchAll = %+v, want only COTA", got)
	}
}

func TestRound_MatchAll(t *testing.T) {
	day := func(m time.Month, d int) time.Time { return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC) }
	bahrain := &entity.Round{ID: "r1", Name: "Bahrain Grand Prix", Year: 2024, RoundNumber: 1, CircuitID: "c1", StartDate: day(2, 29), EndDate: day(3, 2)}
	jeddah := &entity.Round{ID: "r2", Name: "Saudi Arabian Grand Prix", Year: 2024, RoundNumber: 2, CircuitID: "c2", StartDate: day(3, 7), EndDate: day(3, 9)}
	lastYear := &entity.Round{ID: "r3", Name: "Bahrain Grand Prix", Year: 2023, RoundNumber: 1, CircuitID: "c1"}
	in := RoundInput{Name: "Bahrain GP", Year: 2024, RoundNumber: 1, CircuitID: "c1", StartDate: day(2, 29)}

	got := NewRoundMatcher().MatchAll(in, []*entity.Round{lastYear, jeddah, bahrain}, match.Medium)
	if len(got) != 1 || got[0].Candidate != bahrain || got[0].Confidence != match.High {
		t.Errorf("MatchAll = %+v, want only the 2024 Bahrain round", got)
	}
}
