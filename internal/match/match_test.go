package match

import (
	"errors"
	"math"
	"strings"
	"testing"
)

type item struct {
	name  string
	score float64
}

func scoreSignal(weight float64) Signal[string, item] {
	return Signal[string, item]{
		Name:   "score",
		Weight: weight,
		Eval: func(_ string, c item) Evaluation {
			return Hit(c.score, c.name)
		},
	}
}

func TestFromScore_Boundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  Confidence
	}{
		{1.0, High},
		{0.9, High},
		{0.8999, Medium},
		{0.7, Medium},
		{0.6999, Low},
		{0.5, Low},
		{0.4999, NoMatch},
		{0.0, NoMatch},
		{-1, NoMatch},
	}
	for _, tt := range tests {
		if got := FromScore(tt.score); got != tt.want {
			t.Errorf("FromScore(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestFromScore_Monotonic(t *testing.T) {
	prev := FromScore(0)
	for i := 1; i <= 1000; i++ {
		c := FromScore(float64(i) / 1000)
		if c < prev {
			t.Fatalf("FromScore decreased at %v: %v < %v", float64(i)/1000, c, prev)
		}
		prev = c
	}
}

func TestConfidence_StringRoundTrip(t *testing.T) {
	for _, c := range []Confidence{NoMatch, Low, Medium, High} {
		if got := ParseConfidence(c.String()); got != c {
			t.Errorf("ParseConfidence(%q) = %v, want %v", c.String(), got, c)
		}
	}
	if !High.AtLeast(Medium) || Low.AtLeast(Medium) {
		t.Error("AtLeast ordering is wrong")
	}
}

func TestNew_RejectsBadWeights(t *testing.T) {
	signals := []Signal[string, item]{scoreSignal(0.5), scoreSignal(0.3)}
	_, err := New("bad", signals)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Matcher != "bad" {
		t.Errorf("Matcher = %q, want bad", cfgErr.Matcher)
	}
}

func TestNew_RejectsOutOfRangeWeight(t *testing.T) {
	tests := []struct {
		name   string
		weight float64
	}{
		{"negative", -0.2},
		{"above one", 1.5},
		{"nan", math.NaN()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("range", []Signal[string, item]{scoreSignal(tt.weight), scoreSignal(0.5)})
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Signal != "score" {
				t.Errorf("Signal = %q, want score", cfgErr.Signal)
			}
			if !strings.Contains(err.Error(), `signal "score"`) || strings.Contains(err.Error(), "sum to") {
				t.Errorf("error = %q", err)
			}
		})
	}
}

func TestNew_AcceptsTolerance(t *testing.T) {
	signals := []Signal[string, item]{scoreSignal(0.6), scoreSignal(0.395)}
	if _, err := New("ok", signals); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_RejectsMissingEval(t *testing.T) {
	signals := []Signal[string, item]{{Name: "nil", Weight: 1.0}}
	if _, err := New("nil", signals); err == nil {
		t.Fatal("expected error for nil Eval")
	}
}

func TestMustNew_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustNew("bad", []Signal[string, item]{scoreSignal(0.2)})
}

func TestMatch_NoCandidates(t *testing.T) {
	m := MustNew("one", []Signal[string, item]{scoreSignal(1.0)})
	r := m.Match("x", nil)
	if !r.IsNew || r.Confidence != NoMatch {
		t.Errorf("got %+v, want new NoMatch", r)
	}
}

func TestMatch_PicksBestAndFirstOnTie(t *testing.T) {
	m := MustNew("one", []Signal[string, item]{scoreSignal(1.0)})
	candidates := []item{
		{"low", 0.55},
		{"first", 0.95},
		{"second", 0.95},
	}
	r := m.Match("x", candidates)
	if r.Candidate.name != "first" {
		t.Errorf("Candidate = %q, want first", r.Candidate.name)
	}
	if r.Confidence != High || r.IsNew {
		t.Errorf("Confidence = %v IsNew = %v", r.Confidence, r.IsNew)
	}
	if len(r.Signals) != 1 || r.Signals[0].Detail != "first" {
		t.Errorf("Signals = %+v", r.Signals)
	}
}

func TestMatch_BelowLowIsNew(t *testing.T) {
	m := MustNew("one", []Signal[string, item]{scoreSignal(1.0)})
	r := m.Match("x", []item{{"weak", 0.3}})
	if !r.IsNew || r.Candidate.name != "" {
		t.Errorf("got %+v, want new with no candidate", r)
	}
	if r.Score != 0.3 {
		t.Errorf("Score = %v, want 0.3", r.Score)
	}
}

func TestMatch_Prefilter(t *testing.T) {
	m := MustNew("one", []Signal[string, item]{scoreSignal(1.0)},
		WithPrefilter(func(in string, c item) bool { return c.name != in }))
	r := m.Match("best", []item{{"best", 1.0}, {"other", 0.75}})
	if r.Candidate.name != "other" {
		t.Errorf("Candidate = %q, want other", r.Candidate.name)
	}
}

func TestScore_WeightedSumAndClamp(t *testing.T) {
	signals := []Signal[string, item]{
		scoreSignal(0.6),
		{Name: "over", Weight: 0.4, Eval: func(string, item) Evaluation { return Hit(2.5, "") }},
	}
	m := MustNew("two", signals)
	r := m.Score("x", item{"a", 0.5})
	// 0.6*0.5 + 0.4*1.0
	if r.Score != 0.7 {
		t.Errorf("Score = %v, want 0.7", r.Score)
	}
	if r.Signals[1].Score != 1.0 {
		t.Errorf("clamped score = %v, want 1", r.Signals[1].Score)
	}
	if r.Signals[0].Contribution() != 0.3 {
		t.Errorf("Contribution = %v, want 0.3", r.Signals[0].Contribution())
	}
}

func TestMatchAll_SortedAboveFloor(t *testing.T) {
	m := MustNew("one", []Signal[string, item]{scoreSignal(1.0)})
	candidates := []item{
		{"low", 0.55},
		{"medium", 0.75},
		{"none", 0.2},
		{"high", 0.95},
		{"medium2", 0.75},
	}
	got := m.MatchAll("x", candidates, Medium)
	want := []string{"high", "medium", "medium2"}
	if len(got) != len(want) {
		t.Fatalf("got %d results, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Candidate.name != w {
			t.Errorf("result[%d] = %q, want %q", i, got[i].Candidate.name, w)
		}
	}
	if all := m.MatchAll("x", candidates, NoMatch); len(all) != 4 {
		t.Errorf("NoMatch floor returned %d results, want 4", len(all))
	}
}
