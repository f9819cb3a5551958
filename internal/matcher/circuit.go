package matcher

import (
	"fmt"
	"strings"

	"github.com/sydlexius/pitwall/internal/entity"
	"github.com/sydlexius/pitwall/internal/match"
	"github.com/sydlexius/pitwall/internal/normalize"
	"github.com/sydlexius/pitwall/internal/similarity"
)

// CircuitInput is an incoming venue record. Coordinates are optional.
type CircuitInput struct {
	Name      string
	Location  string
	Country   string
	Latitude  *float64
	Longitude *float64
}

func (in CircuitInput) point() *similarity.Point {
	if in.Latitude == nil || in.Longitude == nil {
		return nil
	}
	return &similarity.Point{Lat: *in.Latitude, Lon: *in.Longitude}
}

func circuitPoint(c *entity.Circuit) *similarity.Point {
	if !c.HasCoordinates() {
		return nil
	}
	return &similarity.Point{Lat: *c.Latitude, Lon: *c.Longitude}
}

// Expand replaces a colloquial abbreviation ("COTA") with the circuit's
// formal name and fills in its location and country when the source left
// them empty. Other inputs are returned unchanged.
func (in CircuitInput) Expand() CircuitInput {
	kc, ok := normalize.ExpandCircuitAbbreviation(in.Name)
	if !ok {
		return in
	}
	out := in
	out.Name = kc.Name
	if out.Location == "" {
		out.Location = kc.Location
	}
	if out.Country == "" {
		out.Country = kc.Country
	}
	return out
}

// Circuit signal weights.
const (
	circuitNameWeight        = 0.30
	circuitLocationWeight    = 0.25
	circuitCountryWeight     = 0.15
	circuitFuzzyWeight       = 0.15
	circuitCoordinatesWeight = 0.15
)

// Distances in kilometres. Different corners of one facility fall inside
// circuitProximityKm; anything beyond circuitPrefilterKm is another venue.
const (
	circuitProximityKm = 10.0
	circuitPrefilterKm = 50.0
)

var circuitSignals = []match.Signal[CircuitInput, *entity.Circuit]{
	{Name: "name", Weight: circuitNameWeight, Eval: evalCircuitName},
	{Name: "location", Weight: circuitLocationWeight, Eval: evalCircuitLocation},
	{Name: "country", Weight: circuitCountryWeight, Eval: evalCircuitCountry},
	{Name: "fuzzy", Weight: circuitFuzzyWeight, Eval: evalCircuitFuzzy},
	{Name: "coordinates", Weight: circuitCoordinatesWeight, Eval: evalCircuitCoordinates},
}

// CircuitMatcher scores incoming venue records against canonical circuits.
// Inputs are expanded with Expand before scoring.
type CircuitMatcher struct {
	m *match.Matcher[CircuitInput, *entity.Circuit]
}

// NewCircuitMatcher builds the circuit matcher.
func NewCircuitMatcher() *CircuitMatcher {
	return &CircuitMatcher{
		m: match.MustNew("circuit", circuitSignals, match.WithPrefilter(circuitPrefilter)),
	}
}

// Match returns the best candidate for in.
func (cm *CircuitMatcher) Match(in CircuitInput, candidates []*entity.Circuit) match.Result[*entity.Circuit] {
	return cm.m.Match(in.Expand(), candidates)
}

// MatchAll returns every candidate at or above floor, best first.
func (cm *CircuitMatcher) MatchAll(in CircuitInput, candidates []*entity.Circuit, floor match.Confidence) []match.Result[*entity.Circuit] {
	return cm.m.MatchAll(in.Expand(), candidates, floor)
}

// Score evaluates a single candidate without the prefilter.
func (cm *CircuitMatcher) Score(in CircuitInput, c *entity.Circuit) match.Result[*entity.Circuit] {
	return cm.m.Score(in.Expand(), c)
}

// circuitPrefilter drops candidates known to be far away. Without
// coordinates on both sides every candidate is scored.
func circuitPrefilter(in CircuitInput, c *entity.Circuit) bool {
	a, b := in.point(), circuitPoint(c)
	if a == nil || b == nil {
		return true
	}
	return similarity.GeoDistanceKm(*a, *b) <= circuitPrefilterKm
}

func evalCircuitName(in CircuitInput, c *entity.Circuit) match.Evaluation {
	a, b := normalize.CircuitName(in.Name), normalize.CircuitName(c.Name)
	if a == "" || b == "" {
		return match.Miss("name missing")
	}
	if a == b || normalize.Compact(a) == normalize.Compact(b) {
		return match.Hit(1.0, a)
	}
	return match.Miss(fmt.Sprintf("%q vs %q", a, b))
}

// evalCircuitLocation matches when the locations agree or when the
// candidate's city appears in the incoming name ("Austin" in "Austin
// Circuit").
func evalCircuitLocation(in CircuitInput, c *entity.Circuit) match.Evaluation {
	loc := normalize.Name(c.Location)
	if loc == "" {
		return match.Miss("location missing")
	}
	if in.Location != "" && normalize.Name(in.Location) == loc {
		return match.Hit(1.0, c.Location)
	}
	if strings.Contains(normalize.Name(in.Name), loc) {
		return match.Hit(1.0, c.Location+" in name")
	}
	return match.Miss(fmt.Sprintf("%q vs %q", in.Location, c.Location))
}

func evalCircuitCountry(in CircuitInput, c *entity.Circuit) match.Evaluation {
	if in.Country == "" || c.Country == "" {
		return match.Miss("country missing")
	}
	if normalize.SameCountry(in.Country, c.Country) {
		return match.Hit(1.0, normalize.CountryCode(in.Country))
	}
	return match.Miss(fmt.Sprintf("%s vs %s", in.Country, c.Country))
}

func evalCircuitFuzzy(in CircuitInput, c *entity.Circuit) match.Evaluation {
	a, b := normalize.Name(in.Name), normalize.Name(c.Name)
	if a == "" || b == "" {
		return match.Miss("name missing")
	}
	score := similarity.JaroWinkler(a, b)
	return match.Evaluation{Matched: score >= 0.85, Score: score, Detail: fmt.Sprintf("%.3f", score)}
}

func evalCircuitCoordinates(in CircuitInput, c *entity.Circuit) match.Evaluation {
	a, b := in.point(), circuitPoint(c)
	if a == nil || b == nil {
		return match.Miss("coordinates missing")
	}
	d := similarity.GeoDistanceKm(*a, *b)
	score := similarity.CoordinateProximityScore(a, b, circuitProximityKm)
	return match.Evaluation{Matched: score > 0, Score: score, Detail: fmt.Sprintf("%.2f km", d)}
}
