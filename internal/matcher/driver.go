package matcher

import (
	"fmt"
	"strings"

	"github.com/sydlexius/pitwall/internal/entity"
	"github.com/sydlexius/pitwall/internal/match"
	"github.com/sydlexius/pitwall/internal/normalize"
	"github.com/sydlexius/pitwall/internal/similarity"
)

// DriverInput is an incoming driver record as a source reports it. Only
// FullName is required; missing fields score zero rather than failing.
// Year is the season the record belongs to and gates number validity.
type DriverInput struct {
	FullName     string
	FirstName    string
	LastName     string
	Number       int
	Abbreviation string
	Nationality  string
	HeadshotURL  string
	Year         int
}

// Parts returns the input's first and last name, splitting FullName when the
// source did not supply them separately.
func (in DriverInput) Parts() normalize.NameParts {
	if in.LastName != "" {
		return normalize.NameParts{First: in.FirstName, Last: in.LastName}
	}
	p := normalize.ExtractNameParts(in.FullName)
	if in.FirstName != "" {
		p.First = in.FirstName
	}
	return p
}

// Name returns the best display name for the input.
func (in DriverInput) Name() string {
	if in.FullName != "" {
		return strings.TrimSpace(in.FullName)
	}
	return normalize.NameParts{First: in.FirstName, Last: in.LastName}.Full()
}

func driverParts(d *entity.Driver) normalize.NameParts {
	if d.LastName != "" {
		return normalize.NameParts{First: d.FirstName, Last: d.LastName}
	}
	return normalize.ExtractNameParts(d.Name)
}

// Driver signal weights.
const (
	driverLastNameWeight     = 0.30
	driverFirstNameWeight    = 0.20
	driverNumberWeight       = 0.15
	driverAbbreviationWeight = 0.15
	driverNationalityWeight  = 0.10
	driverFuzzyWeight        = 0.10
)

// lastNameMatchThreshold is the Jaro-Winkler score at which two surnames are
// treated as the same.
const lastNameMatchThreshold = 0.85

// phoneticScore is the fuzzy credit for surnames that sound alike but are
// spelled apart.
const phoneticScore = 0.9

var driverSignals = []match.Signal[DriverInput, *entity.Driver]{
	{Name: "last_name", Weight: driverLastNameWeight, Eval: evalDriverLastName},
	{Name: "first_name", Weight: driverFirstNameWeight, Eval: evalDriverFirstName},
	{Name: "number", Weight: driverNumberWeight, Eval: evalDriverNumber},
	{Name: "abbreviation", Weight: driverAbbreviationWeight, Eval: evalDriverAbbreviation},
	{Name: "nationality", Weight: driverNationalityWeight, Eval: evalDriverNationality},
	{Name: "fuzzy", Weight: driverFuzzyWeight, Eval: evalDriverFuzzy},
}

// DriverMatcher scores incoming driver records against canonical drivers.
type DriverMatcher struct {
	m *match.Matcher[DriverInput, *entity.Driver]
}

// NewDriverMatcher builds the driver matcher.
func NewDriverMatcher() *DriverMatcher {
	return &DriverMatcher{
		m: match.MustNew("driver", driverSignals, match.WithPrefilter(driverPrefilter)),
	}
}

// Match returns the best candidate for in.
func (dm *DriverMatcher) Match(in DriverInput, candidates []*entity.Driver) match.Result[*entity.Driver] {
	return dm.m.Match(in, candidates)
}

// MatchAll returns every candidate at or above floor, best first.
func (dm *DriverMatcher) MatchAll(in DriverInput, candidates []*entity.Driver, floor match.Confidence) []match.Result[*entity.Driver] {
	return dm.m.MatchAll(in, candidates, floor)
}

// Score evaluates a single candidate without the prefilter.
func (dm *DriverMatcher) Score(in DriverInput, d *entity.Driver) match.Result[*entity.Driver] {
	return dm.m.Score(in, d)
}

// driverPrefilter keeps candidates sharing the racing number, a similar
// surname, or any name word.
func driverPrefilter(in DriverInput, d *entity.Driver) bool {
	if in.Number != 0 && in.Number == d.Number {
		return true
	}
	ip, cp := in.Parts(), driverParts(d)
	if similarity.JaroWinkler(normalize.Name(ip.Last), normalize.Name(cp.Last)) >= 0.7 {
		return true
	}
	return similarity.ContainmentScore(normalize.Name(in.Name()), normalize.Name(d.Name)) > 0
}

func evalDriverLastName(in DriverInput, d *entity.Driver) match.Evaluation {
	a := normalize.Name(in.Parts().Last)
	b := normalize.Name(driverParts(d).Last)
	if a == "" || b == "" {
		return match.Miss("last name missing")
	}
	score := similarity.JaroWinkler(a, b)
	return match.Evaluation{
		Matched: score >= lastNameMatchThreshold,
		Score:   score,
		Detail:  fmt.Sprintf("%q vs %q: %.3f", a, b, score),
	}
}

func evalDriverFirstName(in DriverInput, d *entity.Driver) match.Evaluation {
	a := normalize.Name(in.Parts().First)
	b := normalize.Name(driverParts(d).First)
	if a == "" || b == "" {
		return match.Miss("first name missing")
	}
	if normalize.Initial(a) || normalize.Initial(b) {
		if []rune(a)[0] == []rune(b)[0] {
			return match.Hit(0.5, "initial matches")
		}
		return match.Miss("initial differs")
	}
	score := similarity.JaroWinkler(a, b)
	return match.Evaluation{
		Matched: score >= lastNameMatchThreshold,
		Score:   score,
		Detail:  fmt.Sprintf("%q vs %q: %.3f", a, b, score),
	}
}

func evalDriverNumber(in DriverInput, d *entity.Driver) match.Evaluation {
	if in.Number == 0 || d.Number == 0 {
		return match.Miss("number missing")
	}
	if in.Number != d.Number {
		return match.Miss(fmt.Sprintf("#%d vs #%d", in.Number, d.Number))
	}
	if !d.NumberValidIn(in.Year) {
		return match.Miss(fmt.Sprintf("#%d not held in %d", d.Number, in.Year))
	}
	return match.Hit(1.0, fmt.Sprintf("#%d", d.Number))
}

func evalDriverAbbreviation(in DriverInput, d *entity.Driver) match.Evaluation {
	a := strings.ToUpper(strings.TrimSpace(in.Abbreviation))
	b := strings.ToUpper(strings.TrimSpace(d.Abbreviation))
	if a == "" || b == "" {
		return match.Miss("abbreviation missing")
	}
	if a == b {
		return match.Hit(1.0, a)
	}
	ra, rb := []rune(a), []rune(b)
	same := 0
	for i := 0; i < len(ra) && i < len(rb); i++ {
		if ra[i] == rb[i] {
			same++
		}
	}
	score := float64(same) / float64(max(len(ra), len(rb)))
	return match.Evaluation{Score: score, Detail: fmt.Sprintf("%s vs %s: %d/%d letters", a, b, same, max(len(ra), len(rb)))}
}

func evalDriverNationality(in DriverInput, d *entity.Driver) match.Evaluation {
	if in.Nationality == "" || d.Nationality == "" {
		return match.Miss("nationality missing")
	}
	if normalize.SameCountry(in.Nationality, d.Nationality) {
		return match.Hit(1.0, normalize.CountryCode(in.Nationality))
	}
	return match.Miss(fmt.Sprintf("%s vs %s", in.Nationality, d.Nationality))
}

func evalDriverFuzzy(in DriverInput, d *entity.Driver) match.Evaluation {
	a, b := normalize.Name(in.Name()), normalize.Name(d.Name)
	if a == "" || b == "" {
		return match.Miss("name missing")
	}
	score := similarity.JaroWinkler(a, b)
	detail := fmt.Sprintf("full name %.3f", score)
	if score < phoneticScore && similarity.PhoneticMatch(normalize.Name(in.Parts().Last), normalize.Name(driverParts(d).Last)) {
		score = phoneticScore
		detail = "surnames sound alike"
	}
	return match.Evaluation{Matched: score >= lastNameMatchThreshold, Score: score, Detail: detail}
}
