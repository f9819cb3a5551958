package resolver

import (
	"context"
	"fmt"

	"github.com/sydlexius/pitwall/internal/entity"
	"github.com/sydlexius/pitwall/internal/matcher"
	"github.com/sydlexius/pitwall/internal/normalize"
	"github.com/sydlexius/pitwall/internal/similarity"
)

// ResolveDriver maps an incoming driver onto a canonical driver, or proposes
// a new one. The caller persists Entity and AliasesToAdd, then reports them
// back through the cache.
func (r *Resolver) ResolveDriver(ctx context.Context, in matcher.DriverInput) (*ResolvedDriver, error) {
	name := in.Name()
	if name == "" {
		return nil, ErrEmptyName
	}
	dec, ok, err := runChain(ctx, in, r.driverChain())
	if err != nil {
		return nil, fmt.Errorf("resolving driver %q: %w", name, err)
	}

	var res *ResolvedDriver
	switch {
	case ok && dec.review:
		r.logReview("driver", name, dec.entity.Name, dec.score)
		return reviewResolution(dec), nil
	case ok && dec.found:
		res = r.updateDriver(in, dec)
	default:
		res = r.createDriver(in, dec.canon)
	}
	r.logResolution("driver", name, res.Via, res.Entity.ID, res.IsNew, res.Score)
	return res, nil
}

func (r *Resolver) driverChain() []strategy[matcher.DriverInput, *entity.Driver] {
	return []strategy[matcher.DriverInput, *entity.Driver]{
		r.driverExact,
		r.driverOverride,
		r.driverAlias,
		r.driverFuzzy,
	}
}

// driverExact matches on racing number with a surname check, then on a
// number-scoped alias, then on the slug.
func (r *Resolver) driverExact(ctx context.Context, in matcher.DriverInput) (decision[*entity.Driver], bool, error) {
	if in.Number != 0 {
		last := normalize.Name(in.Parts().Last)
		for _, d := range r.cache.Drivers() {
			if d.Number != in.Number || !d.NumberValidIn(in.Year) {
				continue
			}
			if similarity.JaroWinkler(last, normalize.Name(lastName(d))) >= nameSanityThreshold {
				return certain(d, ViaExact), true, nil
			}
		}

		id, ok, err := r.lookupAlias(ctx, entity.TypeDriver, in.Name(), entity.NumberScope(in.Number))
		if err != nil {
			return decision[*entity.Driver]{}, false, err
		}
		if ok {
			d, err := r.driverByID(ctx, id)
			if err != nil {
				return decision[*entity.Driver]{}, false, err
			}
			if d != nil {
				return certain(d, ViaExact), true, nil
			}
		}
	}

	d, err := r.driverBySlug(ctx, entity.DriverSlug(in.Name()))
	if err != nil || d == nil {
		return decision[*entity.Driver]{}, false, err
	}
	return certain(d, ViaExact), true, nil
}

// driverOverride applies the curated table. An override with no stored
// entity yet answers anyway, so the new entity is created under its
// canonical identity.
func (r *Resolver) driverOverride(ctx context.Context, in matcher.DriverInput) (decision[*entity.Driver], bool, error) {
	o := r.overrides.Driver(in)
	if o == nil {
		return decision[*entity.Driver]{}, false, nil
	}
	canon := driverCanon(o)
	for _, spelling := range append([]string{o.Name()}, o.Aliases...) {
		d, err := r.driverBySlug(ctx, entity.DriverSlug(spelling))
		if err != nil {
			return decision[*entity.Driver]{}, false, err
		}
		if d != nil {
			dec := certain(d, ViaOverride)
			dec.canon = canon
			return dec, true, nil
		}
	}
	return decision[*entity.Driver]{via: ViaOverride, canon: canon}, true, nil
}

func (r *Resolver) driverAlias(ctx context.Context, in matcher.DriverInput) (decision[*entity.Driver], bool, error) {
	id, ok, err := r.lookupAlias(ctx, entity.TypeDriver, in.Name(), "")
	if err != nil || !ok {
		return decision[*entity.Driver]{}, false, err
	}
	d, err := r.driverByID(ctx, id)
	if err != nil || d == nil {
		return decision[*entity.Driver]{}, false, err
	}
	return certain(d, ViaAlias), true, nil
}

func (r *Resolver) driverFuzzy(_ context.Context, in matcher.DriverInput) (decision[*entity.Driver], bool, error) {
	dec, ok := fromMatch(r.drivers.Match(in, r.cache.Drivers()))
	return dec, ok, nil
}

func (r *Resolver) updateDriver(in matcher.DriverInput, dec decision[*entity.Driver]) *ResolvedDriver {
	cur := *dec.entity
	oldName := cur.Name
	canon := dec.canon
	if canon == nil {
		if o := r.overrides.Driver(in); o != nil && o.Slug() == cur.Slug {
			canon = driverCanon(o)
		}
	}

	res := matchedResolution(&cur, dec)
	target, changed, aliases := r.renameTarget(entity.TypeDriver, cur.ID, cur.Name, in.Name(), canon, "")
	if changed {
		res.NameChanged = true
		res.OldName = oldName
		cur.Name = target
		if slug := entity.DriverSlug(target); !slugTaken(&r.cache.drivers, slug, cur.ID) {
			cur.Slug = slug
		}
	}

	switch {
	case canon != nil:
		cur.FirstName, cur.LastName = canon.firstName, canon.lastName
	case changed || cur.LastName == "":
		p := in.Parts()
		cur.FirstName, cur.LastName = p.First, p.Last
	}

	if in.Number != 0 && in.Number != cur.Number {
		if in.Year == 0 || in.Year >= cur.NumberValidFrom {
			if cur.Number != 0 {
				if a, ok := r.alias(entity.TypeDriver, cur.ID, oldName, entity.NumberScope(cur.Number), SourceNumberChange); ok {
					aliases = append(aliases, a)
				}
			}
			cur.Number = in.Number
			cur.NumberValidFrom = in.Year
			cur.NumberValidUntil = 0
		} else if a, ok := r.alias(entity.TypeDriver, cur.ID, in.Name(), entity.NumberScope(in.Number), SourceNumberChange); ok {
			// An older season under a number the driver no longer carries.
			aliases = append(aliases, a)
		}
	}

	cur.Abbreviation = firstNonEmpty(in.Abbreviation, cur.Abbreviation)
	cur.Nationality = firstNonEmpty(in.Nationality, cur.Nationality)
	cur.HeadshotURL = firstNonEmpty(in.HeadshotURL, cur.HeadshotURL)
	if canon != nil {
		cur.Abbreviation = firstNonEmpty(canon.abbreviation, cur.Abbreviation)
		cur.Nationality = firstNonEmpty(canon.nationality, cur.Nationality)
	}
	cur.UpdatedAt = r.now()

	res.AliasesToAdd = r.dedupeAliases(aliases)
	return res
}

func (r *Resolver) createDriver(in matcher.DriverInput, canon *canonical) *ResolvedDriver {
	now := r.now()
	p := in.Parts()
	d := &entity.Driver{
		ID:           r.newID(),
		Name:         in.Name(),
		FirstName:    p.First,
		LastName:     p.Last,
		Number:       in.Number,
		Abbreviation: in.Abbreviation,
		Nationality:  in.Nationality,
		HeadshotURL:  in.HeadshotURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Number != 0 {
		d.NumberValidFrom = in.Year
	}

	var aliases []entity.Alias
	if canon != nil {
		d.Name = canon.name
		d.FirstName, d.LastName = canon.firstName, canon.lastName
		d.Abbreviation = firstNonEmpty(canon.abbreviation, d.Abbreviation)
		d.Nationality = firstNonEmpty(canon.nationality, d.Nationality)
		if in.Name() != canon.name {
			if a, ok := r.alias(entity.TypeDriver, d.ID, in.Name(), "", SourceOverride); ok {
				aliases = append(aliases, a)
			}
		}
	}
	d.Slug = uniqueSlug(&r.cache.drivers, entity.DriverSlug(d.Name), d.ID)

	res := newResolution(d)
	if canon != nil {
		res.Via = ViaOverride
	}
	res.AliasesToAdd = r.dedupeAliases(aliases)
	return res
}

func (r *Resolver) driverByID(ctx context.Context, id string) (*entity.Driver, error) {
	d, err := readThrough(ctx, r, &r.cache.drivers, id, false, Repository.DriverByID, r.cache.ObserveDriver)
	if err != nil {
		return nil, fmt.Errorf("loading driver %s: %w", id, err)
	}
	return d, nil
}

func (r *Resolver) driverBySlug(ctx context.Context, slug string) (*entity.Driver, error) {
	d, err := readThrough(ctx, r, &r.cache.drivers, slug, true, Repository.DriverBySlug, r.cache.ObserveDriver)
	if err != nil {
		return nil, fmt.Errorf("loading driver %s: %w", slug, err)
	}
	return d, nil
}

func driverCanon(o *DriverOverride) *canonical {
	return &canonical{
		name:         o.Name(),
		firstName:    o.FirstName,
		lastName:     o.LastName,
		abbreviation: o.Abbreviation,
		nationality:  o.Nationality,
	}
}

func lastName(d *entity.Driver) string {
	if d.LastName != "" {
		return d.LastName
	}
	return normalize.ExtractNameParts(d.Name).Last
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
