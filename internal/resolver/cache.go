package resolver

import (
	"context"
	"fmt"

	"github.com/sydlexius/pitwall/internal/entity"
)

// Repository is the durable store the resolver warms from and reads through
// on a cache miss. Lookups return nil, nil when nothing matches. The resolver
// never writes; callers persist its decisions and report them back through
// the Cache observe methods.
type Repository interface {
	ListDrivers(ctx context.Context) ([]entity.Driver, error)
	ListTeams(ctx context.Context) ([]entity.Team, error)
	ListCircuits(ctx context.Context) ([]entity.Circuit, error)
	ListRounds(ctx context.Context) ([]entity.Round, error)
	ListAliases(ctx context.Context, t entity.Type) ([]entity.Alias, error)

	DriverByID(ctx context.Context, id string) (*entity.Driver, error)
	DriverBySlug(ctx context.Context, slug string) (*entity.Driver, error)
	TeamByID(ctx context.Context, id string) (*entity.Team, error)
	TeamBySlug(ctx context.Context, slug string) (*entity.Team, error)
	CircuitByID(ctx context.Context, id string) (*entity.Circuit, error)
	CircuitBySlug(ctx context.Context, slug string) (*entity.Circuit, error)
	RoundByID(ctx context.Context, id string) (*entity.Round, error)
	RoundBySlug(ctx context.Context, slug string) (*entity.Round, error)
	AliasBySlug(ctx context.Context, t entity.Type, slug, scope string) (*entity.Alias, error)
}

// index keeps entities in first-seen order with an ID and slug lookup.
type index[E any] struct {
	order  []string
	byID   map[string]*E
	bySlug map[string]string
	slugOf map[string]string
}

func newIndex[E any]() index[E] {
	return index[E]{
		byID:   make(map[string]*E),
		bySlug: make(map[string]string),
		slugOf: make(map[string]string),
	}
}

func (ix *index[E]) put(id, slug string, e E) {
	if _, ok := ix.byID[id]; !ok {
		ix.order = append(ix.order, id)
	}
	if old, ok := ix.slugOf[id]; ok && old != slug && ix.bySlug[old] == id {
		delete(ix.bySlug, old)
	}
	ix.byID[id] = &e
	ix.slugOf[id] = slug
	if slug != "" {
		ix.bySlug[slug] = id
	}
}

func (ix *index[E]) get(id string) (*E, bool) {
	e, ok := ix.byID[id]
	return e, ok
}

func (ix *index[E]) getBySlug(slug string) (*E, bool) {
	id, ok := ix.bySlug[slug]
	if !ok {
		return nil, false
	}
	return ix.get(id)
}

func (ix *index[E]) all() []*E {
	out := make([]*E, 0, len(ix.order))
	for _, id := range ix.order {
		out = append(out, ix.byID[id])
	}
	return out
}

// Cache holds one sync run's view of the canonical store. It is owned by a
// single Resolver, is not safe for concurrent use, and is rebuilt by Warm at
// the start of every run.
type Cache struct {
	drivers  index[entity.Driver]
	teams    index[entity.Team]
	circuits index[entity.Circuit]
	rounds   index[entity.Round]
	aliases  map[string]entity.Alias
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	c := &Cache{}
	c.reset()
	return c
}

func (c *Cache) reset() {
	c.drivers = newIndex[entity.Driver]()
	c.teams = newIndex[entity.Team]()
	c.circuits = newIndex[entity.Circuit]()
	c.rounds = newIndex[entity.Round]()
	c.aliases = make(map[string]entity.Alias)
}

// Warm discards everything and reloads it with one bulk read per entity type.
func (c *Cache) Warm(ctx context.Context, repo Repository) error {
	c.reset()

	drivers, err := repo.ListDrivers(ctx)
	if err != nil {
		return fmt.Errorf("warming drivers: %w", err)
	}
	for _, d := range drivers {
		c.ObserveDriver(d)
	}

	teams, err := repo.ListTeams(ctx)
	if err != nil {
		return fmt.Errorf("warming teams: %w", err)
	}
	for _, t := range teams {
		c.ObserveTeam(t)
	}

	circuits, err := repo.ListCircuits(ctx)
	if err != nil {
		return fmt.Errorf("warming circuits: %w", err)
	}
	for _, ci := range circuits {
		c.ObserveCircuit(ci)
	}

	rounds, err := repo.ListRounds(ctx)
	if err != nil {
		return fmt.Errorf("warming rounds: %w", err)
	}
	for _, r := range rounds {
		c.ObserveRound(r)
	}

	for _, t := range []entity.Type{entity.TypeDriver, entity.TypeTeam, entity.TypeCircuit, entity.TypeRound} {
		aliases, err := repo.ListAliases(ctx, t)
		if err != nil {
			return fmt.Errorf("warming %s aliases: %w", t, err)
		}
		for _, a := range aliases {
			c.ObserveAlias(a)
		}
	}
	return nil
}

// ObserveDriver records a persisted driver.
func (c *Cache) ObserveDriver(d entity.Driver) { c.drivers.put(d.ID, d.Slug, d) }

// ObserveTeam records a persisted team.
func (c *Cache) ObserveTeam(t entity.Team) { c.teams.put(t.ID, t.Slug, t) }

// ObserveCircuit records a persisted circuit.
func (c *Cache) ObserveCircuit(ci entity.Circuit) { c.circuits.put(ci.ID, ci.Slug, ci) }

// ObserveRound records a persisted round.
func (c *Cache) ObserveRound(r entity.Round) { c.rounds.put(r.ID, r.Slug, r) }

// ObserveAlias records a persisted alias. The first alias seen for a key wins,
// matching the store's append-only rule.
func (c *Cache) ObserveAlias(a entity.Alias) {
	if _, ok := c.aliases[a.Key()]; ok {
		return
	}
	c.aliases[a.Key()] = a
}

// Alias returns the alias recorded for (type, slug, scope).
func (c *Cache) Alias(t entity.Type, slug, scope string) (entity.Alias, bool) {
	a, ok := c.aliases[entity.Alias{EntityType: t, Slug: slug, Scope: scope}.Key()]
	return a, ok
}

// HasAlias reports whether the alias key is already taken.
func (c *Cache) HasAlias(a entity.Alias) bool {
	_, ok := c.aliases[a.Key()]
	return ok
}

// Drivers returns cached drivers in first-seen order.
func (c *Cache) Drivers() []*entity.Driver { return c.drivers.all() }

// Teams returns cached teams in first-seen order.
func (c *Cache) Teams() []*entity.Team { return c.teams.all() }

// Circuits returns cached circuits in first-seen order.
func (c *Cache) Circuits() []*entity.Circuit { return c.circuits.all() }

// Rounds returns cached rounds in first-seen order.
func (c *Cache) Rounds() []*entity.Round { return c.rounds.all() }

// Len returns the number of cached entities and aliases.
func (c *Cache) Len() int {
	return len(c.drivers.order) + len(c.teams.order) + len(c.circuits.order) + len(c.rounds.order) + len(c.aliases)
}
