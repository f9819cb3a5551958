package matcher

import (
	"fmt"

	"github.com/sydlexius/pitwall/internal/entity"
	"github.com/sydlexius/pitwall/internal/match"
	"github.com/sydlexius/pitwall/internal/normalize"
	"github.com/sydlexius/pitwall/internal/similarity"
)

// TeamInput is an incoming constructor record.
type TeamInput struct {
	Name        string
	Color       string
	Nationality string
	Year        int
}

// Team signal weights.
const (
	teamExactWeight       = 0.40
	teamContainmentWeight = 0.20
	teamFuzzyWeight       = 0.20
	teamColorWeight       = 0.10
	teamYearWeight        = 0.10
)

// coreTokenScore is the containment credit when two names only share a known
// constructor identity ("Red Bull" inside "Oracle Red Bull Racing").
const coreTokenScore = 0.8

// colorMatchThreshold marks two liveries as the same color.
const colorMatchThreshold = 0.9

var teamSignals = []match.Signal[TeamInput, *entity.Team]{
	{Name: "exact", Weight: teamExactWeight, Eval: evalTeamExact},
	{Name: "containment", Weight: teamContainmentWeight, Eval: evalTeamContainment},
	{Name: "fuzzy", Weight: teamFuzzyWeight, Eval: evalTeamFuzzy},
	{Name: "color", Weight: teamColorWeight, Eval: evalTeamColor},
	{Name: "year_overlap", Weight: teamYearWeight, Eval: evalTeamYear},
}

// TeamMatcher scores incoming constructor records against canonical teams.
type TeamMatcher struct {
	m *match.Matcher[TeamInput, *entity.Team]
}

// NewTeamMatcher builds the team matcher.
func NewTeamMatcher() *TeamMatcher {
	return &TeamMatcher{
		m: match.MustNew("team", teamSignals, match.WithPrefilter(teamPrefilter)),
	}
}

// Match returns the best candidate for in.
func (tm *TeamMatcher) Match(in TeamInput, candidates []*entity.Team) match.Result[*entity.Team] {
	return tm.m.Match(in, candidates)
}

// MatchAll returns every candidate at or above floor, best first.
func (tm *TeamMatcher) MatchAll(in TeamInput, candidates []*entity.Team, floor match.Confidence) []match.Result[*entity.Team] {
	return tm.m.MatchAll(in, candidates, floor)
}

// Score evaluates a single candidate without the prefilter.
func (tm *TeamMatcher) Score(in TeamInput, t *entity.Team) match.Result[*entity.Team] {
	return tm.m.Score(in, t)
}

func teamPrefilter(in TeamInput, t *entity.Team) bool {
	a, b := normalize.TeamName(in.Name), normalize.TeamName(t.Name)
	if similarity.ContainmentScore(a, b) > 0 {
		return true
	}
	if tok := normalize.CoreTeamToken(in.Name); tok != "" && tok == normalize.CoreTeamToken(t.Name) {
		return true
	}
	if similarity.JaroWinkler(a, b) >= 0.6 {
		return true
	}
	sim, ok := similarity.ColorSimilarity(in.Color, t.Color)
	return ok && sim >= 0.98
}

func evalTeamExact(in TeamInput, t *entity.Team) match.Evaluation {
	a, b := normalize.TeamName(in.Name), normalize.TeamName(t.Name)
	if a == "" || b == "" {
		return match.Miss("name missing")
	}
	if a == b || normalize.Compact(a) == normalize.Compact(b) {
		return match.Hit(1.0, a)
	}
	return match.Miss(fmt.Sprintf("%q vs %q", a, b))
}

func evalTeamContainment(in TeamInput, t *entity.Team) match.Evaluation {
	a, b := normalize.Name(in.Name), normalize.Name(t.Name)
	score := similarity.ContainmentScore(a, b)
	if score >= 1.0 {
		return match.Hit(1.0, "name contained")
	}
	if tok := normalize.CoreTeamToken(a); tok != "" && tok == normalize.CoreTeamToken(b) && score < coreTokenScore {
		return match.Hit(coreTokenScore, "core constructor "+tok)
	}
	return match.Evaluation{Score: score, Detail: fmt.Sprintf("word overlap %.2f", score)}
}

func evalTeamFuzzy(in TeamInput, t *entity.Team) match.Evaluation {
	a, b := normalize.TeamName(in.Name), normalize.TeamName(t.Name)
	if a == "" || b == "" {
		return match.Miss("name missing")
	}
	score := similarity.JaroWinkler(a, b)
	return match.Evaluation{Matched: score >= 0.85, Score: score, Detail: fmt.Sprintf("%.3f", score)}
}

func evalTeamColor(in TeamInput, t *entity.Team) match.Evaluation {
	sim, ok := similarity.ColorSimilarity(in.Color, t.Color)
	if !ok {
		return match.Miss("color missing")
	}
	return match.Evaluation{
		Matched: sim >= colorMatchThreshold,
		Score:   sim,
		Detail:  fmt.Sprintf("%s vs %s", in.Color, t.Color),
	}
}

func evalTeamYear(in TeamInput, t *entity.Team) match.Evaluation {
	if in.Year == 0 {
		return match.Miss("season unknown")
	}
	if t.ActiveIn(in.Year) {
		return match.Hit(1.0, fmt.Sprintf("active in %d", in.Year))
	}
	return match.Miss(fmt.Sprintf("inactive in %d", in.Year))
}
