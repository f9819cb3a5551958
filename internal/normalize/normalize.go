// Package normalize converts raw driver, team, circuit, and event names from
// external sources into comparable forms. Every function is total: input that
// cannot be parsed is returned unchanged rather than producing an error.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD and drops combining marks (Mn). Chained
// transformers carry state, so each call builds its own.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// foldRunes covers letters that have no canonical decomposition.
var foldRunes = strings.NewReplacer(
	"ø", "o", "Ø", "o",
	"æ", "ae", "Æ", "ae",
	"œ", "oe", "Œ", "oe",
	"ß", "ss",
	"ł", "l", "Ł", "l",
	"đ", "d", "Đ", "d",
	"ð", "d", "þ", "th",
	"ı", "i",
)

var (
	reSpaces     = regexp.MustCompile(`\s+`)
	reSeparators = regexp.MustCompile(`[\s_./,:;+&]+`)
	reNonSlug    = regexp.MustCompile(`[^\p{L}\p{N}-]`)
	reHyphens    = regexp.MustCompile(`-{2,}`)
)

// Name folds diacritics, lowercases, collapses internal whitespace, and trims.
// "Nico Hülkenberg" and "Nico Hulkenberg" both become "nico hulkenberg".
func Name(s string) string {
	if s == "" {
		return ""
	}
	folded, _, err := transform.String(stripMarks(), s)
	if err != nil {
		folded = s
	}
	folded = foldRunes.Replace(folded)
	folded = strings.ToLower(folded)
	folded = reSpaces.ReplaceAllString(folded, " ")
	return strings.TrimSpace(folded)
}

// Slugify returns a URL-safe key: normalized, separators turned into hyphens,
// everything except letters, digits, and hyphens removed, and hyphen runs
// collapsed. Scripts without a Latin folding keep their letters, so
// "周冠宇" stays "周冠宇". Input with nothing left to keep comes back
// trimmed but otherwise unchanged.
func Slugify(s string) string {
	if slug := slugify(s); slug != "" {
		return slug
	}
	return strings.TrimSpace(s)
}

func slugify(s string) string {
	n := Name(s)
	n = strings.ReplaceAll(n, "'", "")
	n = strings.ReplaceAll(n, "’", "")
	n = reSeparators.ReplaceAllString(n, "-")
	n = reNonSlug.ReplaceAllString(n, "")
	n = reHyphens.ReplaceAllString(n, "-")
	return strings.Trim(n, "-")
}

// Compact removes every non-alphanumeric character from the normalized form,
// so "Red Bull" and "RedBull" compare equal.
func Compact(s string) string {
	n := Name(s)
	var b strings.Builder
	b.Grow(len(n))
	for _, r := range n {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Tokens splits the normalized form on whitespace and hyphens.
func Tokens(s string) []string {
	return strings.FieldsFunc(Name(s), func(r rune) bool {
		return unicode.IsSpace(r) || r == '-'
	})
}

// stripWords removes each phrase (already normalized) from s as whole words.
// Phrases are applied in the given order.
func stripWords(s string, phrases []*regexp.Regexp) string {
	for _, re := range phrases {
		s = re.ReplaceAllString(s, " ")
	}
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

// wordPatterns compiles phrases into whole-word, case-insensitive patterns.
func wordPatterns(phrases ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(phrases))
	for _, p := range phrases {
		out = append(out, regexp.MustCompile(`(?i)(^|[\s-])`+regexp.QuoteMeta(p)+`($|[\s-])`))
	}
	return out
}
