// Package match is a generic weighted-signal scorer. A Matcher evaluates
// each candidate against incoming data with a fixed table of signals, sums
// weight x score, keeps the best candidate, and classifies the total into a
// Confidence tier.
package match

import (
	"fmt"
	"math"
	"sort"
)

// WeightTolerance is how far a signal table's weights may drift from 1.0.
const WeightTolerance = 0.01

// Evaluation is what a signal function reports for one candidate.
type Evaluation struct {
	Matched bool
	Score   float64
	Detail  string
}

// Miss is the zero evaluation with an explanation, used when data is absent
// or disagrees.
func Miss(detail string) Evaluation {
	return Evaluation{Detail: detail}
}

// Hit is a matched evaluation with the given score.
func Hit(score float64, detail string) Evaluation {
	return Evaluation{Matched: true, Score: score, Detail: detail}
}

// Signal is one named, weighted piece of evidence. In is the incoming record
// type and C the candidate type.
type Signal[In, C any] struct {
	Name   string
	Weight float64
	Eval   func(in In, c C) Evaluation
}

// SignalResult is a signal's outcome for one candidate.
type SignalResult struct {
	Name    string  `json:"name"`
	Weight  float64 `json:"weight"`
	Matched bool    `json:"matched"`
	Score   float64 `json:"score"`
	Detail  string  `json:"detail"`
}

// Contribution is the signal's share of the total score.
func (s SignalResult) Contribution() float64 {
	return s.Weight * s.Score
}

// Result is the outcome of matching one incoming record.
type Result[C any] struct {
	Score      float64
	Confidence Confidence
	Candidate  C
	Signals    []SignalResult
	IsNew      bool
}

// Found reports whether a candidate was selected.
func (r Result[C]) Found() bool {
	return !r.IsNew
}

// ConfigError reports a signal table whose weights do not sum to 1.0, or,
// when Signal is set, a single weight outside [0, 1].
type ConfigError struct {
	Matcher string
	Sum     float64
	Signal  string
	Weight  float64
}

func (e *ConfigError) Error() string {
	if e.Signal != "" {
		return fmt.Sprintf("matcher %s: signal %q has weight %v, want a value in [0, 1]", e.Matcher, e.Signal, e.Weight)
	}
	return fmt.Sprintf("matcher %s: signal weights sum to %.4f, want 1.0 ± %.2f", e.Matcher, e.Sum, WeightTolerance)
}

// Option configures a Matcher.
type Option[In, C any] func(*Matcher[In, C])

// WithPrefilter installs a cheap rejection test that runs before any signal.
// Candidates for which keep returns false are never scored.
func WithPrefilter[In, C any](keep func(in In, c C) bool) Option[In, C] {
	return func(m *Matcher[In, C]) {
		m.prefilter = keep
	}
}

// Matcher scores candidates with a fixed signal table. It holds no mutable
// state after construction.
type Matcher[In, C any] struct {
	name      string
	signals   []Signal[In, C]
	prefilter func(in In, c C) bool
}

// New builds a Matcher and validates the signal table.
func New[In, C any](name string, signals []Signal[In, C], opts ...Option[In, C]) (*Matcher[In, C], error) {
	var sum float64
	for _, s := range signals {
		if !(s.Weight >= 0 && s.Weight <= 1) {
			return nil, &ConfigError{Matcher: name, Signal: s.Name, Weight: s.Weight}
		}
		if s.Eval == nil {
			return nil, fmt.Errorf("matcher %s: signal %q has no evaluation function", name, s.Name)
		}
		sum += s.Weight
	}
	if math.Abs(sum-1.0) > WeightTolerance {
		return nil, &ConfigError{Matcher: name, Sum: sum}
	}

	m := &Matcher[In, C]{
		name:    name,
		signals: append([]Signal[In, C](nil), signals...),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// MustNew is New for fixed, compile-time signal tables. A bad table is a
// programming error, so it panics.
func MustNew[In, C any](name string, signals []Signal[In, C], opts ...Option[In, C]) *Matcher[In, C] {
	m, err := New(name, signals, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Name returns the matcher's name.
func (m *Matcher[In, C]) Name() string { return m.name }

// Weights returns the configured signal weights keyed by signal name.
func (m *Matcher[In, C]) Weights() map[string]float64 {
	w := make(map[string]float64, len(m.signals))
	for _, s := range m.signals {
		w[s.Name] = s.Weight
	}
	return w
}

// Score evaluates every signal for a single candidate, skipping the
// prefilter.
func (m *Matcher[In, C]) Score(in In, c C) Result[C] {
	results := make([]SignalResult, 0, len(m.signals))
	var total float64
	for _, s := range m.signals {
		ev := s.Eval(in, c)
		score := clamp(ev.Score)
		results = append(results, SignalResult{
			Name:    s.Name,
			Weight:  s.Weight,
			Matched: ev.Matched,
			Score:   score,
			Detail:  ev.Detail,
		})
		total += s.Weight * score
	}
	total = math.Round(total*1e6) / 1e6
	conf := FromScore(total)
	return Result[C]{
		Score:      total,
		Confidence: conf,
		Candidate:  c,
		Signals:    results,
		IsNew:      conf == NoMatch,
	}
}

// Match returns the highest-scoring candidate. Ties keep the candidate seen
// first. A NoMatch result carries the best signals for diagnostics but no
// candidate, and IsNew is set.
func (m *Matcher[In, C]) Match(in In, candidates []C) Result[C] {
	var (
		best  Result[C]
		found bool
	)
	for _, c := range candidates {
		if m.prefilter != nil && !m.prefilter(in, c) {
			continue
		}
		r := m.Score(in, c)
		if !found || r.Score > best.Score {
			best = r
			found = true
		}
	}

	if !found {
		return Result[C]{Confidence: NoMatch, IsNew: true}
	}
	if best.Confidence == NoMatch {
		var zero C
		best.Candidate = zero
		best.IsNew = true
	}
	return best
}

// MatchAll returns every candidate scoring at or above floor, best first.
// Equal scores keep their input order.
func (m *Matcher[In, C]) MatchAll(in In, candidates []C, floor Confidence) []Result[C] {
	var out []Result[C]
	for _, c := range candidates {
		if m.prefilter != nil && !m.prefilter(in, c) {
			continue
		}
		r := m.Score(in, c)
		if r.Confidence == NoMatch || !r.Confidence.AtLeast(floor) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
