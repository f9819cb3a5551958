package review

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/sydlexius/pitwall/internal/entity"
	"github.com/sydlexius/pitwall/internal/match"
)

// Status is the lifecycle state of a pending match. A record leaves
// StatusPending exactly once.
type Status string

// Pending match states.
const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusMerged   Status = "merged"
	StatusRejected Status = "rejected"
)

// Terminal reports whether no further decision is allowed.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusMerged || s == StatusRejected
}

// Resolution is a reviewer's decision.
type Resolution string

// Reviewer decisions.
const (
	// MatchExisting confirms the candidate; the incoming name becomes its alias.
	MatchExisting Resolution = "match_existing"
	// CreateNew rejects the candidate; the incoming record becomes a new entity.
	CreateNew Resolution = "create_new"
	// Skip discards the record.
	Skip Resolution = "skip"
)

// Status returns the terminal state a resolution moves a record to.
func (r Resolution) Status() (Status, bool) {
	switch r {
	case MatchExisting:
		return StatusMerged, true
	case CreateNew:
		return StatusApproved, true
	case Skip:
		return StatusRejected, true
	default:
		return "", false
	}
}

// Errors returned by Service.
var (
	ErrNotFound          = errors.New("pending match not found")
	ErrAlreadyDecided    = errors.New("pending match already decided")
	ErrInvalidResolution = errors.New("invalid resolution")
)

// PendingMatch is a low-confidence resolution waiting for a human. Payload
// is the incoming record as the pipeline saw it, so that a later decision can
// be applied without refetching the source.
type PendingMatch struct {
	ID            string               `json:"id"`
	EntityType    entity.Type          `json:"entity_type"`
	IncomingName  string               `json:"incoming_name"`
	IncomingSlug  string               `json:"incoming_slug"`
	Payload       json.RawMessage      `json:"payload,omitempty"`
	CandidateID   string               `json:"candidate_id,omitempty"`
	CandidateName string               `json:"candidate_name,omitempty"`
	Score         float64              `json:"score"`
	Confidence    match.Confidence     `json:"confidence"`
	Signals       []match.SignalResult `json:"signals,omitempty"`
	Source        string               `json:"source,omitempty"`
	Status        Status               `json:"status"`
	Resolution    Resolution           `json:"resolution,omitempty"`
	ResolvedBy    string               `json:"resolved_by,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	ResolvedAt    *time.Time           `json:"resolved_at,omitempty"`
}
