// Package entity defines the canonical motorsport entities and the aliases
// that record every name and number variant they have been known by.
package entity

import (
	"fmt"
	"strconv"
	"time"

	"github.com/sydlexius/pitwall/internal/normalize"
)

// Type names the kind of canonical entity.
type Type string

// Entity types.
const (
	TypeDriver  Type = "driver"
	TypeTeam    Type = "team"
	TypeCircuit Type = "circuit"
	TypeRound   Type = "round"
)

// Valid reports whether t is a known entity type.
func (t Type) Valid() bool {
	switch t {
	case TypeDriver, TypeTeam, TypeCircuit, TypeRound:
		return true
	}
	return false
}

// ParseType converts a string into a Type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown entity type: %q", s)
	}
	return t, nil
}

// Driver is a canonical racing driver. Number is 0 when unknown. The number
// validity window is in seasons; 0 leaves that side open.
type Driver struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Slug             string    `json:"slug"`
	Number           int       `json:"number,omitempty"`
	NumberValidFrom  int       `json:"number_valid_from,omitempty"`
	NumberValidUntil int       `json:"number_valid_until,omitempty"`
	Abbreviation     string    `json:"abbreviation,omitempty"`
	Nationality      string    `json:"nationality,omitempty"`
	HeadshotURL      string    `json:"headshot_url,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NumberValidIn reports whether the driver's number applies in the given
// season. A zero season is treated as "any".
func (d *Driver) NumberValidIn(season int) bool {
	if d.Number == 0 {
		return false
	}
	if season == 0 {
		return true
	}
	if d.NumberValidFrom != 0 && season < d.NumberValidFrom {
		return false
	}
	if d.NumberValidUntil != 0 && season > d.NumberValidUntil {
		return false
	}
	return true
}

// Team is a canonical constructor. Color is a hex RGB string. The active
// range is in seasons; 0 leaves that side open.
type Team struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Color       string    `json:"color,omitempty"`
	Nationality string    `json:"nationality,omitempty"`
	ActiveFrom  int       `json:"active_from,omitempty"`
	ActiveUntil int       `json:"active_until,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ActiveIn reports whether the team raced under this identity in season.
func (t *Team) ActiveIn(season int) bool {
	if t.ActiveFrom != 0 && season < t.ActiveFrom {
		return false
	}
	if t.ActiveUntil != 0 && season > t.ActiveUntil {
		return false
	}
	return true
}

// Circuit is a canonical venue. Coordinates are nil when unknown.
type Circuit struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Location  string    `json:"location,omitempty"`
	Country   string    `json:"country,omitempty"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasCoordinates reports whether both latitude and longitude are known.
func (c *Circuit) HasCoordinates() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// Round is one race weekend of a season. Dates are zero when unknown.
type Round struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Year        int       `json:"year"`
	RoundNumber int       `json:"round_number,omitempty"`
	CircuitID   string    `json:"circuit_id,omitempty"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Alias is an append-only record of a name or number an entity has been known
// by. Scope narrows the slug, for instance to a racing number, so that the
// same text can point to different entities in different scopes.
type Alias struct {
	ID         string    `json:"id"`
	EntityType Type      `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Alias      string    `json:"alias"`
	Slug       string    `json:"slug"`
	Scope      string    `json:"scope,omitempty"`
	Source     string    `json:"source,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Key identifies the alias within its uniqueness domain.
func (a Alias) Key() string {
	return string(a.EntityType) + "|" + a.Slug + "|" + a.Scope
}

// NumberScope is the alias scope for a racing number.
func NumberScope(number int) string {
	if number == 0 {
		return ""
	}
	return "number:" + strconv.Itoa(number)
}

// SeasonScope is the alias scope for a season, used by round aliases.
func SeasonScope(year int) string {
	if year == 0 {
		return ""
	}
	return "season:" + strconv.Itoa(year)
}

// DriverSlug derives the canonical slug for a driver's full name.
func DriverSlug(fullName string) string {
	return normalize.Slugify(fullName)
}

// TeamSlug derives the canonical slug for a team, ignoring sponsor decoration.
func TeamSlug(name string) string {
	return normalize.Slugify(normalize.TeamName(name))
}

// CircuitSlug derives the canonical slug for a circuit.
func CircuitSlug(name string) string {
	return normalize.Slugify(name)
}

// RoundSlug derives the canonical slug for a round: season plus the
// normalized Grand Prix name.
func RoundSlug(year int, name string) string {
	return strconv.Itoa(year) + "-" + normalize.Slugify(normalize.GrandPrixName(name))
}
