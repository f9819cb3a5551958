package normalize

import "strings"

// circuitSuffixes are removed from the end of a circuit name, longest first.
var circuitSuffixes = []string{
	" international racing circuit",
	" international racing course",
	" international street circuit",
	" international circuit",
	" grand prix circuit",
	" street circuit",
	" racing circuit",
	" motor speedway",
	" circuit",
	" raceway",
	" autodrome",
}

// circuitPrefixes are removed from the start of a circuit name, longest first.
var circuitPrefixes = []string{
	"autodromo internazionale del ",
	"autodromo internazionale ",
	"autodromo nazionale ",
	"autodromo ",
	"circuit de ",
	"circuito de ",
	"circuit ",
	"circuito ",
}

// CircuitName strips facility decoration ("Circuit", "International
// Circuit", "Autodromo Nazionale") and returns the normalized core name.
// Names where the decoration is the identity, such as "Circuit of the
// Americas", keep it.
func CircuitName(s string) string {
	n := Name(s)
	if n == "" {
		return ""
	}
	out := n
	for _, suf := range circuitSuffixes {
		if strings.HasSuffix(out, suf) && len(out) > len(suf) {
			out = strings.TrimSuffix(out, suf)
			break
		}
	}
	for _, pre := range circuitPrefixes {
		if !strings.HasPrefix(out, pre) {
			continue
		}
		rest := strings.TrimPrefix(out, pre)
		if rest == "" || strings.HasPrefix(rest, "of ") {
			break
		}
		out = rest
		break
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return n
	}
	return out
}

// KnownCircuit is the expansion of a colloquial circuit abbreviation.
type KnownCircuit struct {
	Name     string
	Location string
	Country  string
}

// circuitAbbreviations maps colloquial names (keyed by Slugify) to the
// circuit's formal identity.
var circuitAbbreviations = map[string]KnownCircuit{
	"cota":       {Name: "Circuit of the Americas", Location: "Austin", Country: "United States"},
	"interlagos": {Name: "Autódromo José Carlos Pace", Location: "São Paulo", Country: "Brazil"},
	"imola":      {Name: "Autodromo Enzo e Dino Ferrari", Location: "Imola", Country: "Italy"},
	"spa":        {Name: "Circuit de Spa-Francorchamps", Location: "Stavelot", Country: "Belgium"},
	"the-ring":   {Name: "Nürburgring", Location: "Nürburg", Country: "Germany"},
	"bic":        {Name: "Bahrain International Circuit", Location: "Sakhir", Country: "Bahrain"},
	"hermanos-rodriguez": {
		Name: "Autódromo Hermanos Rodríguez", Location: "Mexico City", Country: "Mexico",
	},
	"gilles-villeneuve": {
		Name: "Circuit Gilles Villeneuve", Location: "Montreal", Country: "Canada",
	},
}

// ExpandCircuitAbbreviation looks up a colloquial circuit name. The second
// return value is false when s is not a known abbreviation.
func ExpandCircuitAbbreviation(s string) (KnownCircuit, bool) {
	kc, ok := circuitAbbreviations[Slugify(s)]
	return kc, ok
}
