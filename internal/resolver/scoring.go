package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/sydlexius/pitwall/internal/entity"
	"github.com/sydlexius/pitwall/internal/match"
	"github.com/sydlexius/pitwall/internal/matcher"
)

// ScoringResult reports how an incoming record would resolve without
// deciding anything, for pipelines that gate on confidence themselves.
// EntityID is set when Matched or NeedsReview.
type ScoringResult struct {
	Matched     bool                 `json:"matched"`
	EntityID    string               `json:"entity_id,omitempty"`
	Score       float64              `json:"score"`
	Confidence  match.Confidence     `json:"confidence"`
	Signals     []match.SignalResult `json:"signals,omitempty"`
	NeedsReview bool                 `json:"needs_review"`
	Via         Via                  `json:"via"`
}

// scored converts a chain answer. best is consulted only when the chain
// found nothing, so the caller still sees how close the nearest candidate
// came.
func scored[E any](dec decision[E], ok bool, id func(E) string, best func() match.Result[E]) *ScoringResult {
	switch {
	case ok && dec.found:
		return &ScoringResult{
			Matched: true, EntityID: id(dec.entity),
			Score: dec.score, Confidence: dec.confidence, Signals: dec.signals, Via: dec.via,
		}
	case ok && dec.review:
		return &ScoringResult{
			NeedsReview: true, EntityID: id(dec.entity),
			Score: dec.score, Confidence: dec.confidence, Signals: dec.signals, Via: ViaReview,
		}
	case ok:
		// An override whose canonical entity is not stored yet.
		return &ScoringResult{Confidence: match.NoMatch, Via: ViaOverride}
	}
	res := best()
	return &ScoringResult{Score: res.Score, Confidence: match.FromScore(res.Score), Signals: res.Signals, Via: ViaNew}
}

// ResolveDriverWithScoring runs the driver chain and reports the outcome
// without building an entity or aliases.
func (r *Resolver) ResolveDriverWithScoring(ctx context.Context, in matcher.DriverInput) (*ScoringResult, error) {
	if in.Name() == "" {
		return nil, ErrEmptyName
	}
	dec, ok, err := runChain(ctx, in, r.driverChain())
	if err != nil {
		return nil, fmt.Errorf("scoring driver %q: %w", in.Name(), err)
	}
	return scored(dec, ok, func(d *entity.Driver) string { return d.ID }, func() match.Result[*entity.Driver] {
		return r.drivers.Match(in, r.cache.Drivers())
	}), nil
}

// ResolveTeamWithScoring is ResolveDriverWithScoring for constructors.
func (r *Resolver) ResolveTeamWithScoring(ctx context.Context, in matcher.TeamInput) (*ScoringResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, ErrEmptyName
	}
	dec, ok, err := runChain(ctx, in, r.teamChain())
	if err != nil {
		return nil, fmt.Errorf("scoring team %q: %w", in.Name, err)
	}
	return scored(dec, ok, func(t *entity.Team) string { return t.ID }, func() match.Result[*entity.Team] {
		return r.teams.Match(in, r.cache.Teams())
	}), nil
}

// ResolveCircuitWithScoring is ResolveDriverWithScoring for venues.
func (r *Resolver) ResolveCircuitWithScoring(ctx context.Context, in matcher.CircuitInput) (*ScoringResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, ErrEmptyName
	}
	in = in.Expand()
	dec, ok, err := runChain(ctx, in, r.circuitChain())
	if err != nil {
		return nil, fmt.Errorf("scoring circuit %q: %w", in.Name, err)
	}
	return scored(dec, ok, func(c *entity.Circuit) string { return c.ID }, func() match.Result[*entity.Circuit] {
		return r.circuits.Match(in, r.cache.Circuits())
	}), nil
}

// ResolveRoundWithScoring is ResolveDriverWithScoring for race weekends.
func (r *Resolver) ResolveRoundWithScoring(ctx context.Context, in matcher.RoundInput) (*ScoringResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, ErrEmptyName
	}
	if in.Season() == 0 {
		return nil, fmt.Errorf("scoring round %q: %w", in.Name, ErrMissingSeason)
	}
	dec, ok, err := runChain(ctx, in, r.roundChain())
	if err != nil {
		return nil, fmt.Errorf("scoring round %q: %w", in.Name, err)
	}
	return scored(dec, ok, func(rd *entity.Round) string { return rd.ID }, func() match.Result[*entity.Round] {
		return r.rounds.Match(in, r.cache.Rounds())
	}), nil
}
