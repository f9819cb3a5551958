package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/sydlexius/pitwall/internal/entity"
	"github.com/sydlexius/pitwall/internal/matcher"
)

// ResolveCircuit maps an incoming venue onto a canonical circuit, or proposes
// a new one. Colloquial abbreviations are expanded before any lookup.
func (r *Resolver) ResolveCircuit(ctx context.Context, in matcher.CircuitInput) (*ResolvedCircuit, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, ErrEmptyName
	}
	raw := in.Name
	in = in.Expand()
	dec, ok, err := runChain(ctx, in, r.circuitChain())
	if err != nil {
		return nil, fmt.Errorf("resolving circuit %q: %w", raw, err)
	}

	var res *ResolvedCircuit
	switch {
	case ok && dec.review:
		r.logReview("circuit", in.Name, dec.entity.Name, dec.score)
		return reviewResolution(dec), nil
	case ok && dec.found:
		res = r.updateCircuit(in, raw, dec)
	default:
		res = r.createCircuit(in, raw, dec.canon)
	}
	r.logResolution("circuit", in.Name, res.Via, res.Entity.ID, res.IsNew, res.Score)
	return res, nil
}

func (r *Resolver) circuitChain() []strategy[matcher.CircuitInput, *entity.Circuit] {
	return []strategy[matcher.CircuitInput, *entity.Circuit]{
		r.circuitExact,
		r.circuitOverride,
		r.circuitAlias,
		r.circuitFuzzy,
	}
}

func (r *Resolver) circuitExact(ctx context.Context, in matcher.CircuitInput) (decision[*entity.Circuit], bool, error) {
	c, err := r.circuitBySlug(ctx, entity.CircuitSlug(in.Name))
	if err != nil || c == nil {
		return decision[*entity.Circuit]{}, false, err
	}
	return certain(c, ViaExact), true, nil
}

func (r *Resolver) circuitOverride(ctx context.Context, in matcher.CircuitInput) (decision[*entity.Circuit], bool, error) {
	o := r.overrides.Circuit(in.Name)
	if o == nil {
		return decision[*entity.Circuit]{}, false, nil
	}
	canon := circuitCanon(o)
	for _, spelling := range append([]string{o.Name}, o.Aliases...) {
		c, err := r.circuitBySlug(ctx, entity.CircuitSlug(spelling))
		if err != nil {
			return decision[*entity.Circuit]{}, false, err
		}
		if c != nil {
			dec := certain(c, ViaOverride)
			dec.canon = canon
			return dec, true, nil
		}
	}
	return decision[*entity.Circuit]{via: ViaOverride, canon: canon}, true, nil
}

func (r *Resolver) circuitAlias(ctx context.Context, in matcher.CircuitInput) (decision[*entity.Circuit], bool, error) {
	id, ok, err := r.lookupAlias(ctx, entity.TypeCircuit, in.Name, "")
	if err != nil || !ok {
		return decision[*entity.Circuit]{}, false, err
	}
	c, err := r.circuitByID(ctx, id)
	if err != nil || c == nil {
		return decision[*entity.Circuit]{}, false, err
	}
	return certain(c, ViaAlias), true, nil
}

func (r *Resolver) circuitFuzzy(_ context.Context, in matcher.CircuitInput) (decision[*entity.Circuit], bool, error) {
	dec, ok := fromMatch(r.circuits.Match(in, r.cache.Circuits()))
	return dec, ok, nil
}

// updateCircuit and createCircuit take the expanded input plus the raw name
// the source sent, which is kept as an alias when expansion replaced it.
func (r *Resolver) updateCircuit(in matcher.CircuitInput, raw string, dec decision[*entity.Circuit]) *ResolvedCircuit {
	cur := *dec.entity
	canon := dec.canon
	if canon == nil {
		if o := r.overrides.Circuit(in.Name); o != nil && o.Slug() == cur.Slug {
			canon = circuitCanon(o)
		}
	}

	res := matchedResolution(&cur, dec)
	target, changed, aliases := r.renameTarget(entity.TypeCircuit, cur.ID, cur.Name, in.Name, canon, "")
	aliases = r.abbreviationAlias(aliases, cur.ID, raw, in.Name)
	if changed {
		res.NameChanged = true
		res.OldName = cur.Name
		cur.Name = target
		if slug := entity.CircuitSlug(target); !slugTaken(&r.cache.circuits, slug, cur.ID) {
			cur.Slug = slug
		}
	}

	cur.Location = firstNonEmpty(in.Location, cur.Location)
	cur.Country = firstNonEmpty(in.Country, cur.Country)
	if canon != nil {
		cur.Location = firstNonEmpty(canon.location, cur.Location)
		cur.Country = firstNonEmpty(canon.country, cur.Country)
	}
	if in.Latitude != nil && in.Longitude != nil {
		lat, lon := *in.Latitude, *in.Longitude
		cur.Latitude, cur.Longitude = &lat, &lon
	}
	cur.UpdatedAt = r.now()

	res.AliasesToAdd = r.dedupeAliases(aliases)
	return res
}

func (r *Resolver) createCircuit(in matcher.CircuitInput, raw string, canon *canonical) *ResolvedCircuit {
	now := r.now()
	c := &entity.Circuit{
		ID:        r.newID(),
		Name:      in.Name,
		Location:  in.Location,
		Country:   in.Country,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Latitude != nil && in.Longitude != nil {
		lat, lon := *in.Latitude, *in.Longitude
		c.Latitude, c.Longitude = &lat, &lon
	}

	var aliases []entity.Alias
	if canon != nil {
		c.Name = canon.name
		c.Location = firstNonEmpty(canon.location, c.Location)
		c.Country = firstNonEmpty(canon.country, c.Country)
		if in.Name != canon.name {
			if a, ok := r.alias(entity.TypeCircuit, c.ID, in.Name, "", SourceOverride); ok {
				aliases = append(aliases, a)
			}
		}
	}
	aliases = r.abbreviationAlias(aliases, c.ID, raw, in.Name)
	c.Slug = uniqueSlug(&r.cache.circuits, entity.CircuitSlug(c.Name), c.ID)

	res := newResolution(c)
	if canon != nil {
		res.Via = ViaOverride
	}
	res.AliasesToAdd = r.dedupeAliases(aliases)
	return res
}

func (r *Resolver) circuitByID(ctx context.Context, id string) (*entity.Circuit, error) {
	c, err := readThrough(ctx, r, &r.cache.circuits, id, false, Repository.CircuitByID, r.cache.ObserveCircuit)
	if err != nil {
		return nil, fmt.Errorf("loading circuit %s: %w", id, err)
	}
	return c, nil
}

func (r *Resolver) circuitBySlug(ctx context.Context, slug string) (*entity.Circuit, error) {
	c, err := readThrough(ctx, r, &r.cache.circuits, slug, true, Repository.CircuitBySlug, r.cache.ObserveCircuit)
	if err != nil {
		return nil, fmt.Errorf("loading circuit %s: %w", slug, err)
	}
	return c, nil
}

func (r *Resolver) abbreviationAlias(aliases []entity.Alias, id, raw, expanded string) []entity.Alias {
	if raw == "" || raw == expanded {
		return aliases
	}
	if a, ok := r.alias(entity.TypeCircuit, id, raw, "", SourceAbbreviation); ok {
		aliases = append(aliases, a)
	}
	return aliases
}

func circuitCanon(o *CircuitOverride) *canonical {
	return &canonical{name: o.Name, location: o.Location, country: o.Country}
}
