package matcher

import (
	"fmt"
	"math"
	"time"

	"github.com/sydlexius/pitwall/internal/entity"
	"github.com/sydlexius/pitwall/internal/match"
	"github.com/sydlexius/pitwall/internal/normalize"
	"github.com/sydlexius/pitwall/internal/similarity"
)

// RoundInput is an incoming race weekend. CircuitID is the canonical circuit
// the caller already resolved, if any. Year falls back to StartDate's year.
type RoundInput struct {
	Name        string
	Year        int
	RoundNumber int
	CircuitID   string
	StartDate   time.Time
	EndDate     time.Time
}

// Season returns the round's year, derived from StartDate when Year is unset.
func (in RoundInput) Season() int {
	if in.Year != 0 {
		return in.Year
	}
	if !in.StartDate.IsZero() {
		return in.StartDate.Year()
	}
	return 0
}

// Round signal weights.
const (
	roundNameWeight    = 0.25
	roundCircuitWeight = 0.25
	roundDateWeight    = 0.25
	roundNumberWeight  = 0.15
	roundFuzzyWeight   = 0.10
)

// maxDateDriftDays is the largest calendar drift that still earns date
// credit. Credit decays linearly, reaching 1/8 at seven days.
const maxDateDriftDays = 7

var roundSignals = []match.Signal[RoundInput, *entity.Round]{
	{Name: "name", Weight: roundNameWeight, Eval: evalRoundName},
	{Name: "circuit", Weight: roundCircuitWeight, Eval: evalRoundCircuit},
	{Name: "date", Weight: roundDateWeight, Eval: evalRoundDate},
	{Name: "round_number", Weight: roundNumberWeight, Eval: evalRoundNumber},
	{Name: "fuzzy", Weight: roundFuzzyWeight, Eval: evalRoundFuzzy},
}

// RoundMatcher scores incoming race weekends against canonical rounds.
type RoundMatcher struct {
	m *match.Matcher[RoundInput, *entity.Round]
}

// NewRoundMatcher builds the round matcher.
func NewRoundMatcher() *RoundMatcher {
	return &RoundMatcher{
		m: match.MustNew("round", roundSignals, match.WithPrefilter(roundPrefilter)),
	}
}

// Match returns the best candidate for in.
func (rm *RoundMatcher) Match(in RoundInput, candidates []*entity.Round) match.Result[*entity.Round] {
	return rm.m.Match(in, candidates)
}

// MatchAll returns every candidate at or above floor, best first.
func (rm *RoundMatcher) MatchAll(in RoundInput, candidates []*entity.Round, floor match.Confidence) []match.Result[*entity.Round] {
	return rm.m.MatchAll(in, candidates, floor)
}

// Score evaluates a single candidate without the prefilter.
func (rm *RoundMatcher) Score(in RoundInput, r *entity.Round) match.Result[*entity.Round] {
	return rm.m.Score(in, r)
}

// roundPrefilter requires the same season. Rounds never match across years.
func roundPrefilter(in RoundInput, r *entity.Round) bool {
	season := in.Season()
	return season != 0 && season == r.Year
}

func gpKey(s string) string {
	return normalize.Name(normalize.GrandPrixName(s))
}

func evalRoundName(in RoundInput, r *entity.Round) match.Evaluation {
	if in.Name == "" || r.Name == "" {
		return match.Miss("name missing")
	}
	a, b := gpKey(in.Name), gpKey(r.Name)
	if a == b {
		return match.Hit(1.0, a)
	}
	return match.Miss(fmt.Sprintf("%q vs %q", a, b))
}

func evalRoundCircuit(in RoundInput, r *entity.Round) match.Evaluation {
	if in.CircuitID == "" || r.CircuitID == "" {
		return match.Miss("circuit missing")
	}
	if in.CircuitID == r.CircuitID {
		return match.Hit(1.0, "same circuit")
	}
	return match.Miss("different circuit")
}

func evalRoundDate(in RoundInput, r *entity.Round) match.Evaluation {
	days, ok := dateDriftDays(in, r)
	if !ok {
		return match.Miss("date missing")
	}
	if days > maxDateDriftDays {
		return match.Miss(fmt.Sprintf("%d days apart", days))
	}
	score := 1.0 - float64(days)/float64(maxDateDriftDays+1)
	return match.Hit(score, fmt.Sprintf("%d days apart", days))
}

// dateDriftDays is the whole-day gap between the incoming start date and the
// candidate's date range. A start date inside the range is zero days away.
func dateDriftDays(in RoundInput, r *entity.Round) (int, bool) {
	start := in.StartDate
	if start.IsZero() {
		start = in.EndDate
	}
	from, until := r.StartDate, r.EndDate
	if from.IsZero() {
		from = until
	}
	if until.IsZero() {
		until = from
	}
	if start.IsZero() || from.IsZero() {
		return 0, false
	}

	day := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	s, f, u := day(start), day(from), day(until)
	switch {
	case s.Before(f):
		return int(math.Round(f.Sub(s).Hours() / 24)), true
	case s.After(u):
		return int(math.Round(s.Sub(u).Hours() / 24)), true
	default:
		return 0, true
	}
}

func evalRoundNumber(in RoundInput, r *entity.Round) match.Evaluation {
	if in.RoundNumber == 0 || r.RoundNumber == 0 {
		return match.Miss("round number missing")
	}
	if in.RoundNumber == r.RoundNumber && in.Season() == r.Year {
		return match.Hit(1.0, fmt.Sprintf("round %d of %d", r.RoundNumber, r.Year))
	}
	return match.Miss(fmt.Sprintf("round %d vs %d", in.RoundNumber, r.RoundNumber))
}

func evalRoundFuzzy(in RoundInput, r *entity.Round) match.Evaluation {
	if in.Name == "" || r.Name == "" {
		return match.Miss("name missing")
	}
	a, b := gpKey(in.Name), gpKey(r.Name)
	score := similarity.JaroWinkler(a, b)
	return match.Evaluation{Matched: score >= 0.85, Score: score, Detail: fmt.Sprintf("%.3f", score)}
}
