package normalize

import (
	"regexp"
	"strings"
)

// teamDecoration lists title sponsors and constructor honorifics, longest
// first. The core identity token ("red bull", "ferrari", "sauber") is never
// in this list.
var teamDecoration = wordPatterns(
	"formula one team",
	"formula 1 team",
	"f1 team",
	"racing team",
	"visa cash app",
	"cash app",
	"money gram",
	"moneygram",
	"scuderia",
	"oracle",
	"petronas",
	"aramco",
	"cognizant",
	"bwt",
	"stake",
	"kick",
	"hp",
	"team",
	"mastercard",
	"uralkali",
	"rokit",
	"martini",
	"orlen",
	"atlassian",
)

// teamTrailer is a generic constructor word that only decorates the end of a
// name. "Red Bull Racing" loses it, "Racing Bulls" and "Racing Point" keep it.
var teamTrailer = regexp.MustCompile(`[\s-]+racing$`)

// TeamName strips sponsors, honorifics, "F1 Team", and a trailing "Racing"
// from a constructor name and returns the normalized remainder.
// "Oracle Red Bull Racing" and "Red Bull" both give "red bull", and
// "Stake F1 Team Kick Sauber" gives "sauber".
func TeamName(s string) string {
	n := Name(s)
	if n == "" {
		return ""
	}
	// "Mercedes-AMG Petronas" reduces to the constructor, not an empty string.
	n = strings.ReplaceAll(n, "mercedes-amg", "mercedes")
	out := stripWords(n, teamDecoration)
	out = teamTrailer.ReplaceAllString(strings.Trim(out, " -"), "")
	if out == "" {
		return n
	}
	return out
}

// coreTeamTokens is a closed, hand-maintained list of constructor identities
// used as a last-resort containment fallback. Teams not listed here get no
// help from it.
var coreTeamTokens = []string{
	"redbull",
	"ferrari",
	"mercedes",
	"mclaren",
	"williams",
	"alpine",
	"astonmartin",
	"haas",
	"sauber",
	"alphatauri",
	"tororosso",
	"racingpoint",
	"renault",
	"forceindia",
	"lotus",
	"alfaromeo",
}

// CoreTeamToken returns the known core constructor token contained in s,
// or "" when none is found.
func CoreTeamToken(s string) string {
	c := Compact(s)
	for _, tok := range coreTeamTokens {
		if strings.Contains(c, tok) {
			return tok
		}
	}
	return ""
}
