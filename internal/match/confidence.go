package match

// Confidence is an ordered tier derived from a total match score.
type Confidence int

// Confidence tiers, lowest first so that tiers compare with < and >=.
const (
	NoMatch Confidence = iota
	Low
	Medium
	High
)

// Tier boundaries. A score equal to a boundary belongs to the higher tier.
const (
	HighThreshold   = 0.9
	MediumThreshold = 0.7
	LowThreshold    = 0.5
)

// FromScore classifies a score. It is a monotonic step function of its input.
func FromScore(score float64) Confidence {
	switch {
	case score >= HighThreshold:
		return High
	case score >= MediumThreshold:
		return Medium
	case score >= LowThreshold:
		return Low
	default:
		return NoMatch
	}
}

// String returns the lowercase tier name used in logs and storage.
func (c Confidence) String() string {
	switch c {
	case High:
		return "high"
	case Medium:
		return "medium"
	case Low:
		return "low"
	default:
		return "no_match"
	}
}

// ParseConfidence is the inverse of String. Unknown values map to NoMatch.
func ParseConfidence(s string) Confidence {
	switch s {
	case "high":
		return High
	case "medium":
		return Medium
	case "low":
		return Low
	default:
		return NoMatch
	}
}

// AtLeast reports whether c is the same tier as floor or higher.
func (c Confidence) AtLeast(floor Confidence) bool {
	return c >= floor
}

// MarshalText encodes the tier by name.
func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a tier name.
func (c *Confidence) UnmarshalText(b []byte) error {
	*c = ParseConfidence(string(b))
	return nil
}
