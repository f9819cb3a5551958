package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sydlexius/pitwall/internal/entity"
	"github.com/sydlexius/pitwall/internal/matcher"
)

// ErrUnknownCandidate is returned when a reviewed candidate no longer exists.
var ErrUnknownCandidate = errors.New("candidate entity not found")

// A reviewed merge keeps the candidate's name and records the incoming one as
// an alias, whatever the configured policy.
func (r *Resolver) reviewer() *Resolver {
	rr := *r
	rr.policy = PolicyPreserve
	return &rr
}

// AcceptDriver applies a reviewer's confirmation that in is the driver with
// candidateID. The caller persists the result like any other resolution.
func (r *Resolver) AcceptDriver(ctx context.Context, in matcher.DriverInput, candidateID string) (*ResolvedDriver, error) {
	if in.Name() == "" {
		return nil, ErrEmptyName
	}
	d, err := r.driverByID(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("driver %s: %w", candidateID, ErrUnknownCandidate)
	}
	res := r.reviewer().updateDriver(in, certain(d, ViaReviewed))
	r.logResolution("driver", in.Name(), res.Via, res.Entity.ID, false, 1)
	return res, nil
}

// AcceptTeam is AcceptDriver for teams.
func (r *Resolver) AcceptTeam(ctx context.Context, in matcher.TeamInput, candidateID string) (*ResolvedTeam, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, ErrEmptyName
	}
	t, err := r.teamByID(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("team %s: %w", candidateID, ErrUnknownCandidate)
	}
	res := r.reviewer().updateTeam(in, certain(t, ViaReviewed))
	r.logResolution("team", in.Name, res.Via, res.Entity.ID, false, 1)
	return res, nil
}

// AcceptCircuit is AcceptDriver for circuits.
func (r *Resolver) AcceptCircuit(ctx context.Context, in matcher.CircuitInput, candidateID string) (*ResolvedCircuit, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, ErrEmptyName
	}
	raw := in.Name
	in = in.Expand()
	c, err := r.circuitByID(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("circuit %s: %w", candidateID, ErrUnknownCandidate)
	}
	res := r.reviewer().updateCircuit(in, raw, certain(c, ViaReviewed))
	r.logResolution("circuit", in.Name, res.Via, res.Entity.ID, false, 1)
	return res, nil
}

// AcceptRound is AcceptDriver for rounds.
func (r *Resolver) AcceptRound(ctx context.Context, in matcher.RoundInput, candidateID string) (*ResolvedRound, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, ErrEmptyName
	}
	rd, err := r.roundByID(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if rd == nil {
		return nil, fmt.Errorf("round %s: %w", candidateID, ErrUnknownCandidate)
	}
	res := r.reviewer().updateRound(in, certain(rd, ViaReviewed))
	r.logResolution("round", in.Name, res.Via, res.Entity.ID, false, 1)
	return res, nil
}

// CreateDriver builds a new driver from in without consulting the matchers.
// It serves reviewers who reject the proposed candidate.
func (r *Resolver) CreateDriver(_ context.Context, in matcher.DriverInput) (*ResolvedDriver, error) {
	if in.Name() == "" {
		return nil, ErrEmptyName
	}
	res := r.createDriver(in, nil)
	res.Via = ViaReviewed
	return res, nil
}

// CreateTeam is CreateDriver for teams.
func (r *Resolver) CreateTeam(_ context.Context, in matcher.TeamInput) (*ResolvedTeam, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, ErrEmptyName
	}
	res := r.createTeam(in, nil)
	res.Via = ViaReviewed
	return res, nil
}

// CreateCircuit is CreateDriver for circuits.
func (r *Resolver) CreateCircuit(_ context.Context, in matcher.CircuitInput) (*ResolvedCircuit, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, ErrEmptyName
	}
	res := r.createCircuit(in.Expand(), in.Name, nil)
	res.Via = ViaReviewed
	return res, nil
}

// CreateRound is CreateDriver for rounds.
func (r *Resolver) CreateRound(_ context.Context, in matcher.RoundInput) (*ResolvedRound, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, ErrEmptyName
	}
	if in.Season() == 0 {
		return nil, fmt.Errorf("creating round %q: %w", in.Name, ErrMissingSeason)
	}
	res := r.createRound(in)
	res.Via = ViaReviewed
	return res, nil
}

// IncomingSlug is the slug a pending match is filed under for an incoming
// name of type t.
func IncomingSlug(t entity.Type, name string) string {
	return aliasSlug(t, name)
}
