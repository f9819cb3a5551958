package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sydlexius/pitwall/internal/entity"
	"github.com/sydlexius/pitwall/internal/event"
	"github.com/sydlexius/pitwall/internal/resolver"
	"github.com/sydlexius/pitwall/internal/review"
	"github.com/sydlexius/pitwall/internal/source"
	"github.com/sydlexius/pitwall/internal/store"
)

// kind binds an entity type to its store and cache operations.
type kind[E any] struct {
	typ     entity.Type
	upsert  func(*store.Store, context.Context, E) (string, error)
	observe func(*resolver.Cache, E)
	ref     func(E) (id, name string)
}

var (
	drivers = kind[*entity.Driver]{
		typ:     entity.TypeDriver,
		upsert:  (*store.Store).UpsertDriver,
		observe: func(c *resolver.Cache, d *entity.Driver) { c.ObserveDriver(*d) },
		ref:     func(d *entity.Driver) (string, string) { return d.ID, d.Name },
	}
	teams = kind[*entity.Team]{
		typ:     entity.TypeTeam,
		upsert:  (*store.Store).UpsertTeam,
		observe: func(c *resolver.Cache, t *entity.Team) { c.ObserveTeam(*t) },
		ref:     func(t *entity.Team) (string, string) { return t.ID, t.Name },
	}
	circuits = kind[*entity.Circuit]{
		typ:     entity.TypeCircuit,
		upsert:  (*store.Store).UpsertCircuit,
		observe: func(c *resolver.Cache, ci *entity.Circuit) { c.ObserveCircuit(*ci) },
		ref:     func(ci *entity.Circuit) (string, string) { return ci.ID, ci.Name },
	}
	rounds = kind[*entity.Round]{
		typ:     entity.TypeRound,
		upsert:  (*store.Store).UpsertRound,
		observe: func(c *resolver.Cache, r *entity.Round) { c.ObserveRound(*r) },
		ref:     func(r *entity.Round) (string, string) { return r.ID, r.Name },
	}
)

// apply acts on one resolution: a needs-review outcome is filed as a pending
// match, anything else is persisted. It returns the canonical ID, or "" when
// the record went to review.
func apply[E any](ctx context.Context, p *Pipeline, k kind[E], src source.Name, res *resolver.Resolution[E], in any, incoming string, sum *RunSummary) (string, error) {
	p.metrics.Resolution(string(k.typ), string(res.Via), res.Score)

	if res.NeedsReview {
		if resolver.IncomingSlug(k.typ, incoming) == "" {
			sum.add(k.typ, OutcomeSkipped, 1)
			return "", nil
		}
		if err := fileReview(ctx, p, k, src, res, in, incoming); err != nil {
			return "", err
		}
		sum.add(k.typ, OutcomeReview, 1)
		return "", nil
	}

	added, err := persist(ctx, p, k, res)
	if err != nil {
		return "", err
	}
	switch {
	case res.IsNew:
		sum.add(k.typ, OutcomeCreated, 1)
	case res.NameChanged:
		sum.add(k.typ, OutcomeRenamed, 1)
	default:
		sum.add(k.typ, OutcomeMatched, 1)
	}
	sum.add(k.typ, OutcomeAliases, added)
	id, _ := k.ref(res.Entity)
	return id, nil
}

// persist writes the entity and its new aliases, then reports them to the
// resolver cache so later records in the same run see them.
func persist[E any](ctx context.Context, p *Pipeline, k kind[E], res *resolver.Resolution[E]) (int, error) {
	id, name := k.ref(res.Entity)
	if _, err := k.upsert(p.store, ctx, res.Entity); err != nil {
		return 0, fmt.Errorf("saving %s %q: %w", k.typ, name, err)
	}
	k.observe(p.resolver.Cache(), res.Entity)

	added := 0
	for i := range res.AliasesToAdd {
		a := res.AliasesToAdd[i]
		created, err := p.store.UpsertAlias(ctx, &a)
		if err != nil {
			return added, fmt.Errorf("saving alias %q of %s %s: %w", a.Alias, k.typ, id, err)
		}
		if !created {
			continue
		}
		p.resolver.Cache().ObserveAlias(a)
		added++
		p.publish(event.AliasAdded, map[string]any{
			"entity_type": string(k.typ),
			"entity_id":   id,
			"alias":       a.Alias,
			"scope":       a.Scope,
			"source":      a.Source,
		})
	}
	p.metrics.AliasesAdded(string(k.typ), added)

	switch {
	case res.IsNew:
		p.publish(event.EntityCreated, map[string]any{
			"entity_type": string(k.typ),
			"entity_id":   id,
			"name":        name,
			"via":         string(res.Via),
		})
	case res.NameChanged:
		p.publish(event.EntityRenamed, map[string]any{
			"entity_type": string(k.typ),
			"entity_id":   id,
			"old_name":    res.OldName,
			"name":        name,
		})
	}
	return added, nil
}

// fileReview records a needs-review outcome. The payload keeps the incoming
// record so a decision can be applied later without the source.
func fileReview[E any](ctx context.Context, p *Pipeline, k kind[E], src source.Name, res *resolver.Resolution[E], in any, incoming string) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", k.typ, err)
	}
	candidateID, candidateName := k.ref(res.Candidate)
	m := &review.PendingMatch{
		EntityType:    k.typ,
		IncomingName:  incoming,
		IncomingSlug:  resolver.IncomingSlug(k.typ, incoming),
		Payload:       payload,
		CandidateID:   candidateID,
		CandidateName: candidateName,
		Score:         res.Score,
		Confidence:    res.Confidence,
		Signals:       res.Signals,
		Source:        string(src),
	}
	created, err := p.reviews.Create(ctx, m)
	if err != nil {
		return fmt.Errorf("filing %s review for %q: %w", k.typ, incoming, err)
	}
	if !created {
		return nil
	}
	p.metrics.ReviewFiled(string(k.typ))
	p.publish(event.ReviewNeeded, map[string]any{
		"id":             m.ID,
		"entity_type":    string(k.typ),
		"incoming_name":  incoming,
		"candidate_id":   candidateID,
		"candidate_name": candidateName,
		"score":          res.Score,
	})
	return nil
}
