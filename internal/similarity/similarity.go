// Package similarity provides deterministic string and geographic similarity
// scores. Every function is pure; scores are in [0, 1] unless documented
// otherwise.
package similarity

import (
	"math"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/antzucaro/matchr"
	"github.com/hbollon/go-edlib"
)

// Levenshtein returns the classic edit distance (insert, delete, substitute)
// between a and b, counted in runes.
func Levenshtein(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// LevenshteinRatio scales the edit distance into a similarity:
// 1 - distance / max(len). Two empty strings are identical.
func LevenshteinRatio(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := max(la, lb)
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(Levenshtein(a, b))/float64(longest)
}

// DamerauLevenshtein is Levenshtein plus adjacent transposition as a single
// edit (optimal string alignment).
func DamerauLevenshtein(a, b string) int {
	return edlib.OSADamerauLevenshteinDistance(a, b)
}

// Jaro returns the Jaro similarity. The match window is
// floor(max(len)/2) - 1 and matched characters out of order count as half a
// transposition each.
func Jaro(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	return round(float64(edlib.JaroSimilarity(a, b)))
}

// JaroWinkler boosts Jaro by 0.1 per shared leading character, up to four.
func JaroWinkler(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	return round(float64(edlib.JaroWinklerSimilarity(a, b)))
}

// PhoneticMatch reports whether a and b share a Double Metaphone code, which
// catches transliteration drift such as "Tsunoda"/"Tsunodah".
func PhoneticMatch(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	pa, sa := matchr.DoubleMetaphone(a)
	pb, sb := matchr.DoubleMetaphone(b)
	if pa == "" || pb == "" {
		return false
	}
	return pa == pb || (sa != "" && sa == pb) || (sb != "" && pa == sb) || (sa != "" && sa == sb)
}

// ContainmentScore is 1.0 when either string contains the other. Otherwise
// it is the fraction of the shorter string's words found in the longer one.
// Empty input scores 0.
func ContainmentScore(a, b string) float64 {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return 0.0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 1.0
	}

	shorter, longer := strings.Fields(a), strings.Fields(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) == 0 {
		return 0.0
	}
	words := make(map[string]struct{}, len(longer))
	for _, w := range longer {
		words[w] = struct{}{}
	}
	hits := 0
	for _, w := range shorter {
		if _, ok := words[w]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(shorter))
}

// round trims float32 noise from library scores to six decimal places.
func round(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
