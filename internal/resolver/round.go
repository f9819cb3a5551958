package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/sydlexius/pitwall/internal/entity"
	"github.com/sydlexius/pitwall/internal/matcher"
	"github.com/sydlexius/pitwall/internal/normalize"
)

// ResolveRound maps an incoming race weekend onto a canonical round of the
// same season, or proposes a new one. Rounds have no override table; the
// canonical name is the Grand Prix name with sponsors removed.
func (r *Resolver) ResolveRound(ctx context.Context, in matcher.RoundInput) (*ResolvedRound, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, ErrEmptyName
	}
	if in.Season() == 0 {
		return nil, fmt.Errorf("resolving round %q: %w", in.Name, ErrMissingSeason)
	}
	dec, ok, err := runChain(ctx, in, r.roundChain())
	if err != nil {
		return nil, fmt.Errorf("resolving round %q: %w", in.Name, err)
	}

	var res *ResolvedRound
	switch {
	case ok && dec.review:
		r.logReview("round", in.Name, dec.entity.Name, dec.score)
		return reviewResolution(dec), nil
	case ok && dec.found:
		res = r.updateRound(in, dec)
	default:
		res = r.createRound(in)
	}
	r.logResolution("round", in.Name, res.Via, res.Entity.ID, res.IsNew, res.Score)
	return res, nil
}

func (r *Resolver) roundChain() []strategy[matcher.RoundInput, *entity.Round] {
	return []strategy[matcher.RoundInput, *entity.Round]{
		r.roundExact,
		r.roundAlias,
		r.roundFuzzy,
	}
}

func (r *Resolver) roundExact(ctx context.Context, in matcher.RoundInput) (decision[*entity.Round], bool, error) {
	rd, err := r.roundBySlug(ctx, entity.RoundSlug(in.Season(), in.Name))
	if err != nil || rd == nil {
		return decision[*entity.Round]{}, false, err
	}
	return certain(rd, ViaExact), true, nil
}

func (r *Resolver) roundAlias(ctx context.Context, in matcher.RoundInput) (decision[*entity.Round], bool, error) {
	id, ok, err := r.lookupAlias(ctx, entity.TypeRound, in.Name, entity.SeasonScope(in.Season()))
	if err != nil || !ok {
		return decision[*entity.Round]{}, false, err
	}
	rd, err := r.roundByID(ctx, id)
	if err != nil || rd == nil {
		return decision[*entity.Round]{}, false, err
	}
	return certain(rd, ViaAlias), true, nil
}

func (r *Resolver) roundFuzzy(_ context.Context, in matcher.RoundInput) (decision[*entity.Round], bool, error) {
	dec, ok := fromMatch(r.rounds.Match(in, r.cache.Rounds()))
	return dec, ok, nil
}

func (r *Resolver) updateRound(in matcher.RoundInput, dec decision[*entity.Round]) *ResolvedRound {
	cur := *dec.entity
	res := matchedResolution(&cur, dec)

	scope := entity.SeasonScope(cur.Year)
	target, changed, aliases := r.renameTarget(entity.TypeRound, cur.ID, cur.Name, roundName(in.Name), nil, scope)
	if changed {
		res.NameChanged = true
		res.OldName = cur.Name
		cur.Name = target
		if slug := entity.RoundSlug(cur.Year, target); !slugTaken(&r.cache.rounds, slug, cur.ID) {
			cur.Slug = slug
		}
	}
	if in.RoundNumber != 0 {
		cur.RoundNumber = in.RoundNumber
	}
	cur.CircuitID = firstNonEmpty(in.CircuitID, cur.CircuitID)
	if !in.StartDate.IsZero() {
		cur.StartDate = in.StartDate
	}
	if !in.EndDate.IsZero() {
		cur.EndDate = in.EndDate
	}
	cur.UpdatedAt = r.now()

	res.AliasesToAdd = r.dedupeAliases(aliases)
	return res
}

func (r *Resolver) createRound(in matcher.RoundInput) *ResolvedRound {
	now := r.now()
	season := in.Season()
	rd := &entity.Round{
		ID:          r.newID(),
		Name:        roundName(in.Name),
		Year:        season,
		RoundNumber: in.RoundNumber,
		CircuitID:   in.CircuitID,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	rd.Slug = uniqueSlug(&r.cache.rounds, entity.RoundSlug(season, rd.Name), rd.ID)
	return newResolution(rd)
}

func (r *Resolver) roundByID(ctx context.Context, id string) (*entity.Round, error) {
	rd, err := readThrough(ctx, r, &r.cache.rounds, id, false, Repository.RoundByID, r.cache.ObserveRound)
	if err != nil {
		return nil, fmt.Errorf("loading round %s: %w", id, err)
	}
	return rd, nil
}

func (r *Resolver) roundBySlug(ctx context.Context, slug string) (*entity.Round, error) {
	rd, err := readThrough(ctx, r, &r.cache.rounds, slug, true, Repository.RoundBySlug, r.cache.ObserveRound)
	if err != nil {
		return nil, fmt.Errorf("loading round %s: %w", slug, err)
	}
	return rd, nil
}

// roundName is the display name for a round title, falling back to the
// trimmed title when nothing is left after sponsor removal.
func roundName(title string) string {
	if gp := normalize.GrandPrixName(title); gp != "" {
		return gp
	}
	return title
}
