package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/sydlexius/pitwall/internal/entity"
	"github.com/sydlexius/pitwall/internal/matcher"
)

func TestAcceptDriver_AliasesIncomingName(t *testing.T) {
	// Latest policy would rename; a reviewed merge must not.
	r, s := newTestResolver(t, Options{Policy: PolicyLatest})
	id := seedDriver(t, s, entity.Driver{
		Name: "Kimi Räikkönen", FirstName: "Kimi", LastName: "Räikkönen", Slug: "raikkonen", Number: 7,
	})
	warm(t, r)
	ctx := context.Background()
	in := matcher.DriverInput{FullName: "Kimi Raikkonen"}

	res, err := r.AcceptDriver(ctx, in, id)
	if err != nil {
		t.Fatalf("AcceptDriver: %v", err)
	}
	if res.Entity.ID != id || res.IsNew || res.NameChanged || res.Via != ViaReviewed {
		t.Fatalf("result = %+v", res)
	}
	if res.Entity.Name != "Kimi Räikkönen" {
		t.Errorf("name = %q, want the canonical name kept", res.Entity.Name)
	}
	if got := aliasTexts(res.AliasesToAdd); got["Kimi Raikkonen"] != SourceIncoming {
		t.Errorf("aliases = %v", got)
	}
	persistDriver(t, s, r, res)

	// The next sync finds the driver through the alias.
	again, err := r.ResolveDriver(ctx, in)
	if err != nil {
		t.Fatalf("ResolveDriver: %v", err)
	}
	if again.NeedsReview || again.Entity == nil || again.Entity.ID != id || again.Via != ViaAlias {
		t.Errorf("after review = %+v", again)
	}
	if r.Policy() != PolicyLatest {
		t.Errorf("policy changed to %s", r.Policy())
	}
}

func TestAccept_UnknownCandidate(t *testing.T) {
	r, _ := newTestResolver(t, Options{})
	warm(t, r)
	ctx := context.Background()

	_, err := r.AcceptTeam(ctx, matcher.TeamInput{Name: "Ferrari"}, "missing")
	if !errors.Is(err, ErrUnknownCandidate) {
		t.Errorf("AcceptTeam err = %v", err)
	}
	_, err = r.AcceptDriver(ctx, matcher.DriverInput{}, "missing")
	if !errors.Is(err, ErrEmptyName) {
		t.Errorf("AcceptDriver err = %v", err)
	}
}

func TestCreate_SkipsMatchers(t *testing.T) {
	r, s := newTestResolver(t, Options{})
	seedDriver(t, s, entity.Driver{
		Name: "Kimi Räikkönen", FirstName: "Kimi", LastName: "Räikkönen", Slug: "kimi-raikkonen", Number: 7,
	})
	warm(t, r)
	ctx := context.Background()

	res, err := r.CreateDriver(ctx, matcher.DriverInput{FullName: "Kimi Raikkonen", Number: 7, Year: 2024})
	if err != nil {
		t.Fatalf("CreateDriver: %v", err)
	}
	if !res.IsNew || res.Via != ViaReviewed {
		t.Fatalf("result = %+v", res)
	}
	if res.Entity.Slug == "kimi-raikkonen" {
		t.Error("slug collides with the existing driver")
	}

	circ, err := r.CreateCircuit(ctx, matcher.CircuitInput{Name: "COTA"})
	if err != nil {
		t.Fatalf("CreateCircuit: %v", err)
	}
	if circ.Entity.Name == "COTA" {
		t.Errorf("circuit name not expanded: %q", circ.Entity.Name)
	}
	if got := aliasTexts(circ.AliasesToAdd); got["COTA"] != SourceAbbreviation {
		t.Errorf("aliases = %v, want the source's COTA", got)
	}

	if _, err := r.CreateRound(ctx, matcher.RoundInput{Name: "Bahrain Grand Prix"}); !errors.Is(err, ErrMissingSeason) {
		t.Errorf("CreateRound err = %v", err)
	}
	if _, err := r.CreateTeam(ctx, matcher.TeamInput{Name: "  "}); !errors.Is(err, ErrEmptyName) {
		t.Errorf("CreateTeam err = %v", err)
	}
}

func TestIncomingSlug(t *testing.T) {
	if got := IncomingSlug(entity.TypeDriver, "Kimi Räikkönen"); got != "kimi-raikkonen" {
		t.Errorf("driver slug = %q", got)
	}
	if IncomingSlug(entity.TypeRound, "Australian GP") != IncomingSlug(entity.TypeRound, "Australian Grand Prix") {
		t.Error("round slugs differ across name forms")
	}
}
