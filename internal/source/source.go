// Package source defines the contract for the external systems results are
// ingested from, along with the rate limiting and registry shared by every
// adapter.
package source

import (
	"context"
	"fmt"
	"time"
)

// Name uniquely identifies a source.
type Name string

// Known source names.
const (
	NameOpenF1  Name = "openf1"
	NameArchive Name = "archive"
)

// AllNames returns all known source names in display order.
func AllNames() []Name {
	return []Name{NameOpenF1, NameArchive}
}

// ParseName converts a string into a known source Name.
func ParseName(s string) (Name, error) {
	for _, n := range AllNames() {
		if string(n) == s {
			return n, nil
		}
	}
	return "", fmt.Errorf("unknown source %q", s)
}

// Source is a read-only client for one external results system. Fields a
// source does not carry are left at their zero value.
type Source interface {
	Name() Name
	Meetings(ctx context.Context, year int) ([]Meeting, error)
	Entrants(ctx context.Context, meetingKey string) ([]Entrant, error)
}

// Meeting is one race weekend as a source reports it, with its venue.
type Meeting struct {
	Key          string    `json:"key"`
	Name         string    `json:"name"`
	OfficialName string    `json:"official_name,omitempty"`
	Year         int       `json:"year"`
	RoundNumber  int       `json:"round_number,omitempty"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`

	CircuitName string   `json:"circuit_name"`
	Location    string   `json:"location,omitempty"`
	Country     string   `json:"country,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

// Entrant is one car in a meeting: the driver, the team, and the number.
type Entrant struct {
	FullName     string `json:"full_name"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	Abbreviation string `json:"abbreviation,omitempty"`
	Nationality  string `json:"nationality,omitempty"`
	HeadshotURL  string `json:"headshot_url,omitempty"`
	Number       int    `json:"number,omitempty"`

	TeamName        string `json:"team_name"`
	TeamColor       string `json:"team_color,omitempty"`
	TeamNationality string `json:"team_nationality,omitempty"`
}

// ErrUnavailable indicates a transient failure (rate-limited, timeout, server error).
type ErrUnavailable struct {
	Source     Name
	Cause      error
	RetryAfter time.Duration
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Cause)
}

func (e *ErrUnavailable) Unwrap() error { return e.Cause }

// ErrNotFound indicates the source has no data for the requested key.
type ErrNotFound struct {
	Source Name
	Key    string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("source %s: %s not found", e.Source, e.Key)
}
