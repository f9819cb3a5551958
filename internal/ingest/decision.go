package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sydlexius/pitwall/internal/entity"
	"github.com/sydlexius/pitwall/internal/event"
	"github.com/sydlexius/pitwall/internal/resolver"
	"github.com/sydlexius/pitwall/internal/review"
)

// ApplyDecision materializes a reviewer's decision on a pending match and
// then closes the record. MatchExisting files the incoming name as an alias
// of the candidate, CreateNew creates the entity from the payload snapshot,
// and Skip only closes the record.
func (p *Pipeline) ApplyDecision(ctx context.Context, id string, res review.Resolution, reviewer string) (*review.PendingMatch, error) {
	if _, ok := res.Status(); !ok {
		return nil, fmt.Errorf("%w: %q", review.ErrInvalidResolution, res)
	}
	m, err := p.reviews.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s is %s", review.ErrAlreadyDecided, id, m.Status)
	}

	entityID := ""
	if res != review.Skip {
		if err := p.resolver.Warm(ctx); err != nil {
			return nil, fmt.Errorf("warming resolver: %w", err)
		}
		entityID, err = p.materialize(ctx, m, res)
		if err != nil {
			return nil, fmt.Errorf("applying %s to %s: %w", res, id, err)
		}
	}

	decided, err := p.reviews.Decide(ctx, id, res, reviewer)
	if err != nil {
		return nil, err
	}
	p.logger.Info("review decided",
		slog.String("id", id),
		slog.String("entity_type", string(m.EntityType)),
		slog.String("incoming_name", m.IncomingName),
		slog.String("resolution", string(res)),
		slog.String("entity_id", entityID),
		slog.String("reviewer", reviewer))
	p.publish(event.ReviewDecided, map[string]any{
		"id":          id,
		"entity_type": string(m.EntityType),
		"resolution":  string(res),
		"status":      string(decided.Status),
		"entity_id":   entityID,
		"reviewer":    reviewer,
	})
	return decided, nil
}

func (p *Pipeline) materialize(ctx context.Context, m *review.PendingMatch, res review.Resolution) (string, error) {
	r := p.resolver
	switch m.EntityType {
	case entity.TypeDriver:
		return decide(ctx, p, drivers, m, res, r.AcceptDriver, r.CreateDriver)
	case entity.TypeTeam:
		return decide(ctx, p, teams, m, res, r.AcceptTeam, r.CreateTeam)
	case entity.TypeCircuit:
		return decide(ctx, p, circuits, m, res, r.AcceptCircuit, r.CreateCircuit)
	case entity.TypeRound:
		return decide(ctx, p, rounds, m, res, r.AcceptRound, r.CreateRound)
	default:
		return "", fmt.Errorf("unknown entity type %q", m.EntityType)
	}
}

func decide[In, E any](
	ctx context.Context,
	p *Pipeline,
	k kind[E],
	m *review.PendingMatch,
	res review.Resolution,
	accept func(context.Context, In, string) (*resolver.Resolution[E], error),
	create func(context.Context, In) (*resolver.Resolution[E], error),
) (string, error) {
	var in In
	if err := json.Unmarshal(m.Payload, &in); err != nil {
		return "", fmt.Errorf("decoding %s payload: %w", k.typ, err)
	}

	var (
		out *resolver.Resolution[E]
		err error
	)
	if res == review.MatchExisting {
		out, err = accept(ctx, in, m.CandidateID)
	} else {
		out, err = create(ctx, in)
	}
	if err != nil {
		return "", err
	}

	added, err := persist(ctx, p, k, out)
	if err != nil {
		return "", err
	}
	id, _ := k.ref(out.Entity)
	p.metrics.Resolution(string(k.typ), string(out.Via), out.Score)
	p.logger.Debug("review materialized",
		slog.String("entity_type", string(k.typ)),
		slog.String("entity_id", id),
		slog.Int("aliases", added))
	return id, nil
}
