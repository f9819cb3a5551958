package resolver

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/sydlexius/pitwall/internal/entity"
	"github.com/sydlexius/pitwall/internal/matcher"
	"github.com/sydlexius/pitwall/internal/normalize"
	"github.com/sydlexius/pitwall/internal/similarity"
)

//go:embed overrides.yaml
var defaultOverrides []byte

// DriverOverride is the curated identity of one driver.
type DriverOverride struct {
	FirstName    string   `yaml:"first_name"`
	LastName     string   `yaml:"last_name"`
	Abbreviation string   `yaml:"abbreviation"`
	Nationality  string   `yaml:"nationality"`
	Numbers      []int    `yaml:"numbers"`
	Aliases      []string `yaml:"aliases"`

	slug string
}

// Name is the canonical full name.
func (o *DriverOverride) Name() string {
	return normalize.NameParts{First: o.FirstName, Last: o.LastName}.Full()
}

// Slug is the canonical slug.
func (o *DriverOverride) Slug() string { return o.slug }

// TeamOverride is the curated identity of one constructor.
type TeamOverride struct {
	Name    string   `yaml:"name"`
	Color   string   `yaml:"color"`
	Aliases []string `yaml:"aliases"`

	slug string
}

// Slug is the canonical slug.
func (o *TeamOverride) Slug() string { return o.slug }

// CircuitOverride is the curated identity of one venue.
type CircuitOverride struct {
	Name     string   `yaml:"name"`
	Location string   `yaml:"location"`
	Country  string   `yaml:"country"`
	Aliases  []string `yaml:"aliases"`

	slug string
}

// Slug is the canonical slug.
func (o *CircuitOverride) Slug() string { return o.slug }

// Overrides is the curated table of known identity quirks. It is loaded once
// and read-only afterwards; a nil *Overrides matches nothing.
type Overrides struct {
	Version  int                         `yaml:"version"`
	Drivers  map[string]*DriverOverride  `yaml:"drivers"`
	Teams    map[string]*TeamOverride    `yaml:"teams"`
	Circuits map[string]*CircuitOverride `yaml:"circuits"`

	driverIndex  map[string]*DriverOverride
	teamIndex    map[string]*TeamOverride
	circuitIndex map[string]*CircuitOverride
}

// ParseOverrides decodes and validates an override table.
func ParseOverrides(data []byte) (*Overrides, error) {
	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parsing overrides: %w", err)
	}
	if err := o.build(); err != nil {
		return nil, err
	}
	return &o, nil
}

// DefaultOverrides returns the table compiled into the binary.
func DefaultOverrides() (*Overrides, error) {
	return ParseOverrides(defaultOverrides)
}

// LoadOverrides returns the built-in table, extended by the file at path when
// path is non-empty. File entries replace built-in entries with the same key.
func LoadOverrides(path string) (*Overrides, error) {
	base, err := DefaultOverrides()
	if err != nil {
		return nil, fmt.Errorf("built-in overrides: %w", err)
	}
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return base, nil
		}
		return nil, fmt.Errorf("reading overrides file: %w", err)
	}
	extra, err := ParseOverrides(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return base.Merge(extra)
}

// Merge returns a new table holding o's entries overlaid with other's.
func (o *Overrides) Merge(other *Overrides) (*Overrides, error) {
	out := &Overrides{
		Version:  max(o.Version, other.Version),
		Drivers:  make(map[string]*DriverOverride),
		Teams:    make(map[string]*TeamOverride),
		Circuits: make(map[string]*CircuitOverride),
	}
	for _, src := range []*Overrides{o, other} {
		for k, v := range src.Drivers {
			out.Drivers[k] = v
		}
		for k, v := range src.Teams {
			out.Teams[k] = v
		}
		for k, v := range src.Circuits {
			out.Circuits[k] = v
		}
	}
	if err := out.build(); err != nil {
		return nil, err
	}
	return out, nil
}

// build validates keys against the canonical names and indexes every alias.
func (o *Overrides) build() error {
	o.driverIndex = make(map[string]*DriverOverride)
	o.teamIndex = make(map[string]*TeamOverride)
	o.circuitIndex = make(map[string]*CircuitOverride)

	for key, d := range o.Drivers {
		if d == nil || d.LastName == "" {
			return fmt.Errorf("driver override %q: last_name is required", key)
		}
		if got := entity.DriverSlug(d.Name()); got != key {
			return fmt.Errorf("driver override %q: key does not match canonical slug %q", key, got)
		}
		d.slug = key
		for _, s := range append([]string{d.Name()}, d.Aliases...) {
			if err := indexOverride(o.driverIndex, entity.DriverSlug(s), d, "driver", key); err != nil {
				return err
			}
		}
	}

	for key, t := range o.Teams {
		if t == nil || t.Name == "" {
			return fmt.Errorf("team override %q: name is required", key)
		}
		if got := entity.TeamSlug(t.Name); got != key {
			return fmt.Errorf("team override %q: key does not match canonical slug %q", key, got)
		}
		t.slug = key
		for _, s := range append([]string{t.Name}, t.Aliases...) {
			if err := indexOverride(o.teamIndex, entity.TeamSlug(s), t, "team", key); err != nil {
				return err
			}
		}
	}

	for key, c := range o.Circuits {
		if c == nil || c.Name == "" {
			return fmt.Errorf("circuit override %q: name is required", key)
		}
		if got := entity.CircuitSlug(c.Name); got != key {
			return fmt.Errorf("circuit override %q: key does not match canonical slug %q", key, got)
		}
		c.slug = key
		for _, s := range append([]string{c.Name}, c.Aliases...) {
			if err := indexOverride(o.circuitIndex, entity.CircuitSlug(s), c, "circuit", key); err != nil {
				return err
			}
		}
	}
	return nil
}

func indexOverride[T comparable](idx map[string]T, slug string, v T, kind, key string) error {
	if slug == "" {
		return nil
	}
	if prev, ok := idx[slug]; ok && prev != v {
		return fmt.Errorf("%s override %q: alias %q already belongs to another entry", kind, key, slug)
	}
	idx[slug] = v
	return nil
}

// Driver returns the override entry for an incoming driver: by any known
// spelling, or by a listed number when the surname agrees.
func (o *Overrides) Driver(in matcher.DriverInput) *DriverOverride {
	if o == nil {
		return nil
	}
	if d, ok := o.driverIndex[entity.DriverSlug(in.Name())]; ok {
		return d
	}
	if in.Number == 0 {
		return nil
	}
	last := normalize.Name(in.Parts().Last)
	for _, key := range sortedKeys(o.Drivers) {
		d := o.Drivers[key]
		if !slices.Contains(d.Numbers, in.Number) {
			continue
		}
		if similarity.JaroWinkler(last, normalize.Name(d.LastName)) >= nameSanityThreshold {
			return d
		}
	}
	return nil
}

// Team returns the override entry for an incoming constructor name.
func (o *Overrides) Team(name string) *TeamOverride {
	if o == nil {
		return nil
	}
	return o.teamIndex[entity.TeamSlug(name)]
}

// Circuit returns the override entry for an incoming venue name.
func (o *Overrides) Circuit(name string) *CircuitOverride {
	if o == nil {
		return nil
	}
	return o.circuitIndex[entity.CircuitSlug(name)]
}

// Len returns the number of entries across all entity types.
func (o *Overrides) Len() int {
	if o == nil {
		return 0
	}
	return len(o.Drivers) + len(o.Teams) + len(o.Circuits)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
