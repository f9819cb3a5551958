package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// sponsorTokens is ordered longest-first so that multi-word sponsors are
// removed before any single word they contain.
var sponsorTokens = wordPatterns(
	"fia formula one world championship",
	"formula 1",
	"formula one",
	"heineken silver",
	"qatar airways",
	"etihad airways",
	"singapore airlines",
	"gulf air",
	"msc cruises",
	"crypto.com",
	"louis vuitton",
	"aws",
	"heineken",
	"aramco",
	"rolex",
	"pirelli",
	"lenovo",
	"emirates",
	"stc",
	"vtb",
	"liqui moly",
	"tag heuer",
	"dhl",
	"santander",
	"unicredit",
	"ubs",
	"petronas",
	"airtel",
	"gp2",
	"f1",
)

var (
	reTrailingYear = regexp.MustCompile(`\s*\b(19|20)\d{2}$`)
	reLeadingYear  = regexp.MustCompile(`^(19|20)\d{2}\b\s*`)
)

// titleCase builds a fresh Caser per call; a Caser is not safe to share.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// StripSponsorText removes sponsor and branding tokens plus a leading or
// trailing year, then title-cases what is left.
// "FORMULA 1 HEINEKEN CHINESE GRAND PRIX 2025" becomes "Chinese Grand Prix".
func StripSponsorText(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	lower := strings.ToLower(reSpaces.ReplaceAllString(trimmed, " "))
	lower = reTrailingYear.ReplaceAllString(lower, "")
	lower = reLeadingYear.ReplaceAllString(lower, "")
	lower = stripWords(lower, sponsorTokens)
	lower = reTrailingYear.ReplaceAllString(lower, "")
	lower = strings.Trim(lower, " -")
	if lower == "" {
		return s
	}
	return titleCase(lower)
}

// localizedGP matches "Gran Premio de X", "GP de X", "Grand Prix de X" and the
// like, capturing X.
var localizedGP = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?:gran premio|grande pr[eê]mio|grand prix|gp|großer preis|grosser preis|premio)\s+(?:de la|del|de|do|da|di|d'|du|of the|of|von|der|des)\s*(.+)$`),
	regexp.MustCompile(`(?i)^(?:gran premio|grande pr[eê]mio|grand prix|großer preis|grosser preis|gp)\s+(.+)$`),
	regexp.MustCompile(`(?i)^(.+?)\s+(?:gp|g\.p\.|grand prix|grandprix)$`),
}

// gpPlaces maps localized place names to the English form used in event titles.
var gpPlaces = map[string]string{
	"espana":                  "Spanish",
	"españa":                  "Spanish",
	"italia":                  "Italian",
	"france":                  "French",
	"belgique":                "Belgian",
	"belgium":                 "Belgian",
	"brasil":                  "Brazilian",
	"brazil":                  "Brazilian",
	"portugal":                "Portuguese",
	"deutschland":             "German",
	"germany":                 "German",
	"osterreich":              "Austrian",
	"österreich":              "Austrian",
	"austria":                 "Austrian",
	"ungarn":                  "Hungarian",
	"hungary":                 "Hungarian",
	"canada":                  "Canadian",
	"mexico":                  "Mexican",
	"méxico":                  "Mexican",
	"ciudad de mexico":        "Mexico City",
	"ciudad de méxico":        "Mexico City",
	"la ciudad de mexico":     "Mexico City",
	"la ciudad de méxico":     "Mexico City",
	"sao paulo":               "São Paulo",
	"são paulo":               "São Paulo",
	"monaco":                  "Monaco",
	"japan":                   "Japanese",
	"china":                   "Chinese",
	"australia":               "Australian",
	"bahrain":                 "Bahrain",
	"saudi arabia":            "Saudi Arabian",
	"great britain":           "British",
	"the netherlands":         "Dutch",
	"netherlands":             "Dutch",
	"singapore":               "Singapore",
	"azerbaijan":              "Azerbaijan",
	"qatar":                   "Qatar",
	"abu dhabi":               "Abu Dhabi",
	"las vegas":               "Las Vegas",
	"miami":                   "Miami",
	"emilia romagna":          "Emilia Romagna",
	"emilia-romagna":          "Emilia Romagna",

	"made in italy e dell'emilia-romagna": "Emilia Romagna",
}

// GrandPrixName normalizes an event title to "<Place> Grand Prix" form. It
// strips sponsors first, then rewrites locale patterns. The result always ends
// in "Grand Prix".
func GrandPrixName(s string) string {
	base := StripSponsorText(s)
	if strings.TrimSpace(base) == "" {
		return s
	}
	lower := strings.ToLower(base)
	if strings.HasSuffix(lower, "grand prix") && !strings.HasPrefix(lower, "grand prix ") {
		return base
	}

	place := ""
	for _, re := range localizedGP {
		if m := re.FindStringSubmatch(base); m != nil {
			place = strings.TrimSpace(m[1])
			break
		}
	}
	if place == "" {
		place = base
	}

	if mapped, ok := gpPlaces[strings.ToLower(place)]; ok {
		place = mapped
	} else if mapped, ok := gpPlaces[Name(place)]; ok {
		place = mapped
	} else {
		place = titleCase(strings.ToLower(place))
	}
	return place + " Grand Prix"
}
