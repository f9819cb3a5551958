package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/sydlexius/pitwall/internal/entity"
	"github.com/sydlexius/pitwall/internal/matcher"
)

// ResolveTeam maps an incoming constructor onto a canonical team, or
// proposes a new one.
func (r *Resolver) ResolveTeam(ctx context.Context, in matcher.TeamInput) (*ResolvedTeam, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrEmptyName
	}
	in.Name = name
	dec, ok, err := runChain(ctx, in, r.teamChain())
	if err != nil {
		return nil, fmt.Errorf("resolving team %q: %w", name, err)
	}

	var res *ResolvedTeam
	switch {
	case ok && dec.review:
		r.logReview("team", name, dec.entity.Name, dec.score)
		return reviewResolution(dec), nil
	case ok && dec.found:
		res = r.updateTeam(in, dec)
	default:
		res = r.createTeam(in, dec.canon)
	}
	r.logResolution("team", name, res.Via, res.Entity.ID, res.IsNew, res.Score)
	return res, nil
}

func (r *Resolver) teamChain() []strategy[matcher.TeamInput, *entity.Team] {
	return []strategy[matcher.TeamInput, *entity.Team]{
		r.teamExact,
		r.teamOverride,
		r.teamAlias,
		r.teamFuzzy,
	}
}

func (r *Resolver) teamExact(ctx context.Context, in matcher.TeamInput) (decision[*entity.Team], bool, error) {
	t, err := r.teamBySlug(ctx, entity.TeamSlug(in.Name))
	if err != nil || t == nil {
		return decision[*entity.Team]{}, false, err
	}
	return certain(t, ViaExact), true, nil
}

func (r *Resolver) teamOverride(ctx context.Context, in matcher.TeamInput) (decision[*entity.Team], bool, error) {
	o := r.overrides.Team(in.Name)
	if o == nil {
		return decision[*entity.Team]{}, false, nil
	}
	canon := teamCanon(o)
	for _, spelling := range append([]string{o.Name}, o.Aliases...) {
		t, err := r.teamBySlug(ctx, entity.TeamSlug(spelling))
		if err != nil {
			return decision[*entity.Team]{}, false, err
		}
		if t != nil {
			dec := certain(t, ViaOverride)
			dec.canon = canon
			return dec, true, nil
		}
	}
	return decision[*entity.Team]{via: ViaOverride, canon: canon}, true, nil
}

func (r *Resolver) teamAlias(ctx context.Context, in matcher.TeamInput) (decision[*entity.Team], bool, error) {
	id, ok, err := r.lookupAlias(ctx, entity.TypeTeam, in.Name, "")
	if err != nil || !ok {
		return decision[*entity.Team]{}, false, err
	}
	t, err := r.teamByID(ctx, id)
	if err != nil || t == nil {
		return decision[*entity.Team]{}, false, err
	}
	return certain(t, ViaAlias), true, nil
}

func (r *Resolver) teamFuzzy(_ context.Context, in matcher.TeamInput) (decision[*entity.Team], bool, error) {
	dec, ok := fromMatch(r.teams.Match(in, r.cache.Teams()))
	return dec, ok, nil
}

func (r *Resolver) updateTeam(in matcher.TeamInput, dec decision[*entity.Team]) *ResolvedTeam {
	cur := *dec.entity
	canon := dec.canon
	if canon == nil {
		if o := r.overrides.Team(in.Name); o != nil && o.Slug() == cur.Slug {
			canon = teamCanon(o)
		}
	}

	res := matchedResolution(&cur, dec)
	target, changed, aliases := r.renameTarget(entity.TypeTeam, cur.ID, cur.Name, in.Name, canon, "")
	if changed {
		res.NameChanged = true
		res.OldName = cur.Name
		cur.Name = target
		if slug := entity.TeamSlug(target); !slugTaken(&r.cache.teams, slug, cur.ID) {
			cur.Slug = slug
		}
	}

	cur.Color = firstNonEmpty(in.Color, cur.Color)
	if canon != nil {
		cur.Color = firstNonEmpty(canon.color, cur.Color)
	}
	cur.Nationality = firstNonEmpty(in.Nationality, cur.Nationality)
	if in.Year != 0 {
		if cur.ActiveFrom == 0 || in.Year < cur.ActiveFrom {
			cur.ActiveFrom = in.Year
		}
		if cur.ActiveUntil != 0 && in.Year > cur.ActiveUntil {
			cur.ActiveUntil = in.Year
		}
	}
	cur.UpdatedAt = r.now()

	res.AliasesToAdd = r.dedupeAliases(aliases)
	return res
}

func (r *Resolver) createTeam(in matcher.TeamInput, canon *canonical) *ResolvedTeam {
	now := r.now()
	t := &entity.Team{
		ID:          r.newID(),
		Name:        in.Name,
		Color:       in.Color,
		Nationality: in.Nationality,
		ActiveFrom:  in.Year,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var aliases []entity.Alias
	if canon != nil {
		t.Name = canon.name
		t.Color = firstNonEmpty(canon.color, t.Color)
		if in.Name != canon.name {
			if a, ok := r.alias(entity.TypeTeam, t.ID, in.Name, "", SourceOverride); ok {
				aliases = append(aliases, a)
			}
		}
	}
	t.Slug = uniqueSlug(&r.cache.teams, entity.TeamSlug(t.Name), t.ID)

	res := newResolution(t)
	if canon != nil {
		res.Via = ViaOverride
	}
	res.AliasesToAdd = r.dedupeAliases(aliases)
	return res
}

func (r *Resolver) teamByID(ctx context.Context, id string) (*entity.Team, error) {
	t, err := readThrough(ctx, r, &r.cache.teams, id, false, Repository.TeamByID, r.cache.ObserveTeam)
	if err != nil {
		return nil, fmt.Errorf("loading team %s: %w", id, err)
	}
	return t, nil
}

func (r *Resolver) teamBySlug(ctx context.Context, slug string) (*entity.Team, error) {
	t, err := readThrough(ctx, r, &r.cache.teams, slug, true, Repository.TeamBySlug, r.cache.ObserveTeam)
	if err != nil {
		return nil, fmt.Errorf("loading team %s: %w", slug, err)
	}
	return t, nil
}

func teamCanon(o *TeamOverride) *canonical {
	return &canonical{name: o.Name, color: o.Color}
}
