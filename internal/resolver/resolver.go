// Package resolver decides, for each incoming driver, team, circuit, or round,
// whether it refers to an existing canonical entity. Each entity type runs
// an ordered chain of strategies (exact key, curated override, recorded
// alias, fuzzy match); the first strategy with an answer wins, and a record
// nobody claims becomes a new entity. Low-confidence fuzzy matches are never
// resolved automatically and come back flagged for review.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sydlexius/pitwall/internal/entity"
	"github.com/sydlexius/pitwall/internal/match"
	"github.com/sydlexius/pitwall/internal/matcher"
	"github.com/sydlexius/pitwall/internal/normalize"
)

// nameSanityThreshold is the surname similarity an exact number match must
// also meet, so a reused racing number never merges two people.
const nameSanityThreshold = 0.85

// Input errors. Nothing else the resolver returns is about the record itself.
var (
	ErrEmptyName     = errors.New("incoming record has no name")
	ErrMissingSeason = errors.New("incoming round has no season")
)

// NamePolicy controls what happens to a canonical name when an existing
// entity is matched under a different name.
type NamePolicy string

// Name policies.
const (
	// PolicyLatest adopts the incoming name and files the old one as an alias.
	PolicyLatest NamePolicy = "latest"
	// PolicyPreserve keeps the canonical name and files the incoming one as an alias.
	PolicyPreserve NamePolicy = "preserve"
)

// ParseNamePolicy converts a config value. Empty means PolicyLatest.
func ParseNamePolicy(s string) (NamePolicy, error) {
	switch NamePolicy(s) {
	case "", PolicyLatest:
		return PolicyLatest, nil
	case PolicyPreserve:
		return PolicyPreserve, nil
	default:
		return "", fmt.Errorf("unknown name policy %q (want latest or preserve)", s)
	}
}

// Via names the strategy that produced a resolution.
type Via string

// Resolution strategies.
const (
	ViaExact    Via = "exact"
	ViaOverride Via = "override"
	ViaAlias    Via = "alias"
	ViaFuzzy    Via = "fuzzy"
	ViaNew      Via = "new"
	ViaReview   Via = "review"
	ViaReviewed Via = "reviewed"
)

// Alias sources recorded on the aliases the resolver proposes.
const (
	SourceRename       = "rename"
	SourceIncoming     = "incoming"
	SourceOverride     = "override"
	SourceNumberChange = "number_change"
	SourceAbbreviation = "abbreviation"
)

// Resolution is the outcome for one incoming record. Entity is the canonical
// entity to persist, already carrying any refreshed attributes; it is nil
// when NeedsReview is set, in which case Candidate is the best guess.
// AliasesToAdd has already been checked against the cache.
type Resolution[E any] struct {
	Entity       E
	IsNew        bool
	AliasesToAdd []entity.Alias
	NameChanged  bool
	OldName      string
	NeedsReview  bool
	Candidate    E

	Via        Via
	Score      float64
	Confidence match.Confidence
	Signals    []match.SignalResult
}

// Resolution shapes for each entity type.
type (
	ResolvedDriver  = Resolution[*entity.Driver]
	ResolvedTeam    = Resolution[*entity.Team]
	ResolvedCircuit = Resolution[*entity.Circuit]
	ResolvedRound   = Resolution[*entity.Round]
)

// Options configures a Resolver.
type Options struct {
	Policy    NamePolicy
	Overrides *Overrides
	Logger    *slog.Logger
}

// Resolver maps incoming records onto canonical entities. It owns its cache
// and is meant for a single sync run on a single goroutine.
type Resolver struct {
	repo      Repository
	cache     *Cache
	overrides *Overrides
	policy    NamePolicy
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string

	drivers  *matcher.DriverMatcher
	teams    *matcher.TeamMatcher
	circuits *matcher.CircuitMatcher
	rounds   *matcher.RoundMatcher
}

// New creates a resolver. repo may be nil, in which case the resolver works
// from whatever the cache has been told about.
func New(repo Repository, opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := opts.Policy
	if policy == "" {
		policy = PolicyLatest
	}
	return &Resolver{
		repo:      repo,
		cache:     NewCache(),
		overrides: opts.Overrides,
		policy:    policy,
		logger:    logger.With(slog.String("component", "resolver")),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     newUUID,
		drivers:   matcher.NewDriverMatcher(),
		teams:     matcher.NewTeamMatcher(),
		circuits:  matcher.NewCircuitMatcher(),
		rounds:    matcher.NewRoundMatcher(),
	}
}

// Cache exposes the resolver's cache so callers can report what they
// persisted.
func (r *Resolver) Cache() *Cache { return r.cache }

// Policy returns the active name policy.
func (r *Resolver) Policy() NamePolicy { return r.policy }

// Warm rebuilds the cache from the repository.
func (r *Resolver) Warm(ctx context.Context) error {
	if r.repo == nil {
		r.cache.reset()
		return nil
	}
	if err := r.cache.Warm(ctx, r.repo); err != nil {
		return err
	}
	r.logger.Debug("cache warmed", slog.Int("entries", r.cache.Len()))
	return nil
}

func newUUID() string { return uuid.New().String() }

// canonical carries the identity an override dictates.
type canonical struct {
	name         string
	firstName    string
	lastName     string
	abbreviation string
	nationality  string
	color        string
	location     string
	country      string
}

// decision is a strategy's answer. found means an existing entity was
// selected; review means a low-confidence candidate was found instead.
type decision[E any] struct {
	entity     E
	found      bool
	review     bool
	via        Via
	score      float64
	confidence match.Confidence
	signals    []match.SignalResult
	canon      *canonical
}

// strategy inspects an incoming record and either answers or passes.
type strategy[In, E any] func(ctx context.Context, in In) (decision[E], bool, error)

// runChain returns the first strategy answer, in priority order.
func runChain[In, E any](ctx context.Context, in In, chain []strategy[In, E]) (decision[E], bool, error) {
	for _, s := range chain {
		d, ok, err := s(ctx, in)
		if err != nil {
			return decision[E]{}, false, err
		}
		if ok {
			return d, true, nil
		}
	}
	return decision[E]{}, false, nil
}

func certain[E any](e E, via Via) decision[E] {
	return decision[E]{entity: e, found: true, via: via, score: 1.0, confidence: match.High}
}

// fromMatch converts a fuzzy match result. Medium or better is accepted,
// low goes to review, anything else passes.
func fromMatch[E any](res match.Result[E]) (decision[E], bool) {
	switch {
	case res.IsNew:
		return decision[E]{}, false
	case res.Confidence.AtLeast(match.Medium):
		return decision[E]{
			entity: res.Candidate, found: true, via: ViaFuzzy,
			score: res.Score, confidence: res.Confidence, signals: res.Signals,
		}, true
	default:
		return decision[E]{
			entity: res.Candidate, review: true, via: ViaReview,
			score: res.Score, confidence: res.Confidence, signals: res.Signals,
		}, true
	}
}

func reviewResolution[E any](d decision[E]) *Resolution[E] {
	return &Resolution[E]{
		NeedsReview: true,
		Candidate:   d.entity,
		Via:         ViaReview,
		Score:       d.score,
		Confidence:  d.confidence,
		Signals:     d.signals,
	}
}

func newResolution[E any](e E) *Resolution[E] {
	return &Resolution[E]{Entity: e, IsNew: true, Via: ViaNew, Confidence: match.NoMatch}
}

func matchedResolution[E any](e E, d decision[E]) *Resolution[E] {
	return &Resolution[E]{
		Entity:     e,
		Via:        d.via,
		Score:      d.score,
		Confidence: d.confidence,
		Signals:    d.signals,
	}
}

// alias builds an alias record for an entity. It returns false when the text
// has no usable slug.
func (r *Resolver) alias(t entity.Type, entityID, text, scope, source string) (entity.Alias, bool) {
	slug := aliasSlug(t, text)
	if slug == "" {
		return entity.Alias{}, false
	}
	return entity.Alias{
		ID:         r.newID(),
		EntityType: t,
		EntityID:   entityID,
		Alias:      text,
		Slug:       slug,
		Scope:      scope,
		Source:     source,
		CreatedAt:  r.now(),
	}, true
}

// dedupeAliases drops aliases whose key is already recorded, in the cache
// or earlier in the list.
func (r *Resolver) dedupeAliases(in []entity.Alias) []entity.Alias {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	var out []entity.Alias
	for _, a := range in {
		if seen[a.Key()] || r.cache.HasAlias(a) {
			continue
		}
		seen[a.Key()] = true
		out = append(out, a)
	}
	return out
}

// lookupAlias finds the entity an alias text points at, reading through to
// the repository on a cache miss.
func (r *Resolver) lookupAlias(ctx context.Context, t entity.Type, text, scope string) (string, bool, error) {
	slug := aliasSlug(t, text)
	if slug == "" {
		return "", false, nil
	}
	if a, ok := r.cache.Alias(t, slug, scope); ok {
		return a.EntityID, true, nil
	}
	if r.repo == nil {
		return "", false, nil
	}
	a, err := r.repo.AliasBySlug(ctx, t, slug, scope)
	if err != nil {
		return "", false, fmt.Errorf("looking up %s alias %s: %w", t, slug, err)
	}
	if a == nil {
		return "", false, nil
	}
	r.cache.ObserveAlias(*a)
	return a.EntityID, true, nil
}

// loader is a Repository method expression, such as Repository.DriverBySlug.
type loader[E any] func(Repository, context.Context, string) (*E, error)

// readThrough returns a cached entity by ID or slug, loading and caching it
// on a miss. It returns nil, nil when nothing matches.
func readThrough[E any](ctx context.Context, r *Resolver, ix *index[E], key string, bySlug bool, load loader[E], observe func(E)) (*E, error) {
	if key == "" {
		return nil, nil
	}
	var (
		e  *E
		ok bool
	)
	if bySlug {
		e, ok = ix.getBySlug(key)
	} else {
		e, ok = ix.get(key)
	}
	if ok {
		return e, nil
	}
	if r.repo == nil {
		return nil, nil
	}
	got, err := load(r.repo, ctx, key)
	if err != nil || got == nil {
		return nil, err
	}
	observe(*got)
	return got, nil
}

// aliasSlug is the lookup key an alias text is filed under. Round aliases
// drop sponsor text so a title sponsor change does not defeat the lookup.
func aliasSlug(t entity.Type, text string) string {
	if t == entity.TypeRound {
		return normalize.Slugify(normalize.GrandPrixName(text))
	}
	return normalize.Slugify(text)
}

// uniqueSlug returns base, or base with a numeric suffix when another cached
// entity already holds it. An empty base falls back to the entity ID.
func uniqueSlug[E any](ix *index[E], base, id string) string {
	if base == "" {
		base = id
	}
	slug := base
	for i := 2; slugTaken(ix, slug, id); i++ {
		slug = fmt.Sprintf("%s-%d", base, i)
	}
	return slug
}

// slugTaken reports whether slug already belongs to an entity other than id.
// An empty slug is never free.
func slugTaken[E any](ix *index[E], slug, id string) bool {
	if slug == "" {
		return true
	}
	owner, ok := ix.bySlug[slug]
	return ok && owner != id
}

// renameTarget is the name an existing entity should carry after a match,
// and the aliases that change implies. It applies the override first, then
// the configured policy.
func (r *Resolver) renameTarget(t entity.Type, id, current, incoming string, canon *canonical, scope string) (target string, changed bool, aliases []entity.Alias) {
	add := func(text, source string) {
		if a, ok := r.alias(t, id, text, scope, source); ok {
			aliases = append(aliases, a)
		}
	}

	switch {
	case canon != nil:
		target = canon.name
		if incoming != target {
			add(incoming, SourceOverride)
		}
	case r.policy == PolicyLatest:
		target = incoming
	default:
		if incoming != current {
			add(incoming, SourceIncoming)
		}
		return current, false, aliases
	}

	if target != current {
		add(current, SourceRename)
		return target, true, aliases
	}
	return current, false, aliases
}

func (r *Resolver) logResolution(kind, name string, via Via, id string, isNew bool, score float64) {
	r.logger.Debug("resolved "+kind,
		slog.String("name", name),
		slog.String("via", string(via)),
		slog.String("entity_id", id),
		slog.Bool("new", isNew),
		slog.Float64("score", score))
}

func (r *Resolver) logReview(kind, name, candidate string, score float64) {
	r.logger.Info(kind+" needs review",
		slog.String("name", name),
		slog.String("candidate", candidate),
		slog.Float64("score", score))
}
