package normalize

import "strings"

// NameParts is a person's name split into comparable pieces. Values keep the
// original casing and diacritics; callers normalize before comparing.
type NameParts struct {
	First  string
	Last   string
	Suffix string
}

// generational suffixes recognised at the end of a name.
var nameSuffixes = map[string]string{
	"jr":  "Jr",
	"jr.": "Jr",
	"sr":  "Sr",
	"sr.": "Sr",
	"ii":  "II",
	"iii": "III",
	"iv":  "IV",
}

// ExtractNameParts splits a full name. It understands "Last, First" (with the
// suffix on either side of the comma), a trailing generational suffix, and single-token names (which become Last).
// Multi-word surnames keep everything after the first token:
// "Andrea Kimi Antonelli" gives First "Andrea", Last "Kimi Antonelli".
func ExtractNameParts(full string) NameParts {
	trimmed := strings.TrimSpace(reSpaces.ReplaceAllString(full, " "))
	if trimmed == "" {
		return NameParts{}
	}

	if before, after, ok := strings.Cut(trimmed, ","); ok {
		lastFields := strings.Fields(before)
		rest := strings.Fields(after)
		var suffix string
		if n := len(lastFields); n > 1 {
			if s, ok := nameSuffixes[strings.ToLower(lastFields[n-1])]; ok {
				suffix = s
				lastFields = lastFields[:n-1]
			}
		}
		last := strings.Join(lastFields, " ")
		if n := len(rest); n > 0 && suffix == "" {
			if s, ok := nameSuffixes[strings.ToLower(rest[n-1])]; ok {
				suffix = s
				rest = rest[:n-1]
			}
		}
		if last == "" {
			return NameParts{Last: strings.Join(rest, " "), Suffix: suffix}
		}
		return NameParts{First: strings.Join(rest, " "), Last: last, Suffix: suffix}
	}

	fields := strings.Fields(trimmed)
	var suffix string
	if n := len(fields); n > 1 {
		if s, ok := nameSuffixes[strings.ToLower(fields[n-1])]; ok {
			suffix = s
			fields = fields[:n-1]
		}
	}

	if len(fields) == 1 {
		return NameParts{Last: fields[0], Suffix: suffix}
	}
	return NameParts{
		First:  fields[0],
		Last:   strings.Join(fields[1:], " "),
		Suffix: suffix,
	}
}

// Full reassembles the parts as "First Last Suffix".
func (p NameParts) Full() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.First, p.Last, p.Suffix} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Initial reports whether s looks like a bare initial ("M" or "M.").
func Initial(s string) bool {
	s = strings.TrimSuffix(strings.TrimSpace(s), ".")
	return len([]rune(s)) == 1
}
