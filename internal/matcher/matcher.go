// Package matcher configures the generic match framework for drivers, teams,
// circuits, and rounds. Each matcher is a fixed signal table; the Match*
// functions are shortcuts that only return a candidate at medium confidence
// or better.
package matcher

import (
	"github.com/sydlexius/pitwall/internal/entity"
	"github.com/sydlexius/pitwall/internal/match"
)

// Shared matchers. They hold no mutable state and are safe to reuse.
var (
	defaultDriver  = NewDriverMatcher()
	defaultTeam    = NewTeamMatcher()
	defaultCircuit = NewCircuitMatcher()
	defaultRound   = NewRoundMatcher()
)

// MatchDriver returns the best candidate when it scores medium or higher.
func MatchDriver(in DriverInput, candidates []*entity.Driver) (*entity.Driver, bool) {
	return accept(defaultDriver.Match(in, candidates))
}

// MatchTeam returns the best candidate when it scores medium or higher.
func MatchTeam(in TeamInput, candidates []*entity.Team) (*entity.Team, bool) {
	return accept(defaultTeam.Match(in, candidates))
}

// MatchCircuit returns the best candidate when it scores medium or higher.
func MatchCircuit(in CircuitInput, candidates []*entity.Circuit) (*entity.Circuit, bool) {
	return accept(defaultCircuit.Match(in, candidates))
}

// MatchRound returns the best candidate when it scores medium or higher.
func MatchRound(in RoundInput, candidates []*entity.Round) (*entity.Round, bool) {
	return accept(defaultRound.Match(in, candidates))
}

func accept[C any](r match.Result[C]) (C, bool) {
	if r.IsNew || !r.Confidence.AtLeast(match.Medium) {
		var zero C
		return zero, false
	}
	return r.Candidate, true
}
