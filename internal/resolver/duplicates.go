package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/sydlexius/pitwall/internal/entity"
	"github.com/sydlexius/pitwall/internal/match"
	"github.com/sydlexius/pitwall/internal/matcher"
)

// EntityRef is an entity's identity as shown in a duplicate report.
type EntityRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// DuplicatePair is two canonical entities of one type that score as the same
// thing. First comes before Second in cache order.
type DuplicatePair struct {
	Type       entity.Type          `json:"type"`
	First      EntityRef            `json:"first"`
	Second     EntityRef            `json:"second"`
	Score      float64              `json:"score"`
	Confidence match.Confidence     `json:"confidence"`
	Signals    []match.SignalResult `json:"signals,omitempty"`
}

// FindDuplicates warms the cache and scores every stored entity of type t
// against the ones after it, returning the pairs at or above floor, best
// first. Rounds are only compared within a season.
func (r *Resolver) FindDuplicates(ctx context.Context, t entity.Type, floor match.Confidence) ([]DuplicatePair, error) {
	if err := r.Warm(ctx); err != nil {
		return nil, err
	}

	var pairs []DuplicatePair
	switch t {
	case entity.TypeDriver:
		pairs = duplicates(t, r.cache.Drivers(), driverInput, r.drivers.MatchAll, driverRef, floor)
	case entity.TypeTeam:
		pairs = duplicates(t, r.cache.Teams(), teamInput, r.teams.MatchAll, teamRef, floor)
	case entity.TypeCircuit:
		pairs = duplicates(t, r.cache.Circuits(), circuitInput, r.circuits.MatchAll, circuitRef, floor)
	case entity.TypeRound:
		bySeason := make(map[int][]*entity.Round)
		var seasons []int
		for _, rd := range r.cache.Rounds() {
			if _, ok := bySeason[rd.Year]; !ok {
				seasons = append(seasons, rd.Year)
			}
			bySeason[rd.Year] = append(bySeason[rd.Year], rd)
		}
		for _, y := range seasons {
			pairs = append(pairs, duplicates(t, bySeason[y], roundInput, r.rounds.MatchAll, roundRef, floor)...)
		}
	default:
		return nil, fmt.Errorf("finding duplicates: unknown entity type %q", t)
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Score > pairs[j].Score
	})
	r.logger.Debug("duplicate scan finished",
		slog.String("type", string(t)),
		slog.String("floor", floor.String()),
		slog.Int("pairs", len(pairs)))
	return pairs, nil
}

// duplicates compares each entity, as if it had arrived from a source, with
// every entity after it.
func duplicates[In, E any](
	t entity.Type,
	all []E,
	input func(E) In,
	matchAll func(In, []E, match.Confidence) []match.Result[E],
	ref func(E) EntityRef,
	floor match.Confidence,
) []DuplicatePair {
	var out []DuplicatePair
	for i, e := range all {
		for _, res := range matchAll(input(e), all[i+1:], floor) {
			out = append(out, DuplicatePair{
				Type:       t,
				First:      ref(e),
				Second:     ref(res.Candidate),
				Score:      res.Score,
				Confidence: res.Confidence,
				Signals:    res.Signals,
			})
		}
	}
	return out
}

func driverInput(d *entity.Driver) matcher.DriverInput {
	return matcher.DriverInput{
		FullName:     d.Name,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Number:       d.Number,
		Abbreviation: d.Abbreviation,
		Nationality:  d.Nationality,
	}
}

func teamInput(t *entity.Team) matcher.TeamInput {
	return matcher.TeamInput{Name: t.Name, Color: t.Color, Nationality: t.Nationality, Year: t.ActiveFrom}
}

func circuitInput(c *entity.Circuit) matcher.CircuitInput {
	return matcher.CircuitInput{
		Name: c.Name, Location: c.Location, Country: c.Country,
		Latitude: c.Latitude, Longitude: c.Longitude,
	}
}

func roundInput(rd *entity.Round) matcher.RoundInput {
	return matcher.RoundInput{
		Name: rd.Name, Year: rd.Year, RoundNumber: rd.RoundNumber,
		CircuitID: rd.CircuitID, StartDate: rd.StartDate, EndDate: rd.EndDate,
	}
}

func driverRef(d *entity.Driver) EntityRef { return EntityRef{ID: d.ID, Name: d.Name, Slug: d.Slug} }
func teamRef(t *entity.Team) EntityRef { return EntityRef{ID: t.ID, Name: t.Name, Slug: t.Slug} }
func circuitRef(c *entity.Circuit) EntityRef { return EntityRef{ID: c.ID, Name: c.Name, Slug: c.Slug} }
func roundRef(rd *entity.Round) EntityRef { return EntityRef{ID: rd.ID, Name: rd.Name, Slug: rd.Slug} }
