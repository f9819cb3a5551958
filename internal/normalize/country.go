package normalize

// countryAliases groups the spellings sources use for the same country:
// ISO codes, IOC codes, English names, and demonyms. Keys are ISO 3166-1
// alpha-3 codes.
var countryAliases = map[string][]string{
	"GBR": {"gb", "gbr", "uk", "united kingdom", "great britain", "britain", "british", "england", "english", "scotland", "scottish", "wales", "welsh"},
	"NLD": {"nl", "nld", "ned", "netherlands", "the netherlands", "holland", "dutch"},
	"DEU": {"de", "deu", "ger", "germany", "german", "deutschland"},
	"FRA": {"fr", "fra", "france", "french"},
	"ESP": {"es", "esp", "spain", "spanish", "espana"},
	"ITA": {"it", "ita", "italy", "italian", "italia"},
	"MCO": {"mc", "mco", "mon", "monaco", "monegasque", "monacan"},
	"FIN": {"fi", "fin", "finland", "finnish"},
	"AUS": {"au", "aus", "australia", "australian"},
	"NZL": {"nz", "nzl", "new zealand", "new zealander", "kiwi"},
	"CAN": {"ca", "can", "canada", "canadian"},
	"USA": {"us", "usa", "united states", "united states of america", "america", "american"},
	"MEX": {"mx", "mex", "mexico", "mexican"},
	"BRA": {"br", "bra", "brazil", "brasil", "brazilian"},
	"ARG": {"ar", "arg", "argentina", "argentine", "argentinian"},
	"JPN": {"jp", "jpn", "japan", "japanese"},
	"CHN": {"cn", "chn", "china", "chinese"},
	"THA": {"th", "tha", "thailand", "thai"},
	"DNK": {"dk", "dnk", "den", "denmark", "danish"},
	"SWE": {"se", "swe", "sweden", "swedish"},
	"CHE": {"ch", "che", "sui", "switzerland", "swiss"},
	"AUT": {"at", "aut", "austria", "austrian"},
	"BEL": {"be", "bel", "belgium", "belgian"},
	"POL": {"pl", "pol", "poland", "polish"},
	"RUS": {"ru", "rus", "russia", "russian"},
	"EST": {"ee", "est", "estonia", "estonian"},
	"PRT": {"pt", "prt", "por", "portugal", "portuguese"},
	"HUN": {"hu", "hun", "hungary", "hungarian"},
	"BHR": {"bh", "bhr", "brn", "bahrain", "bahraini"},
	"SAU": {"sa", "sau", "ksa", "saudi arabia", "saudi", "saudi arabian"},
	"ARE": {"ae", "are", "uae", "united arab emirates", "emirati", "abu dhabi"},
	"QAT": {"qa", "qat", "qatar", "qatari"},
	"SGP": {"sg", "sgp", "singapore", "singaporean"},
	"AZE": {"az", "aze", "azerbaijan", "azerbaijani"},
	"IND": {"in", "ind", "india", "indian"},
	"IDN": {"id", "idn", "ina", "indonesia", "indonesian"},
	"MYS": {"my", "mys", "mas", "malaysia", "malaysian"},
	"KOR": {"kr", "kor", "korea", "south korea", "korean"},
	"COL": {"co", "col", "colombia", "colombian"},
	"VEN": {"ve", "ven", "venezuela", "venezuelan"},
	"ZAF": {"za", "zaf", "rsa", "south africa", "south african"},
	"IRL": {"ie", "irl", "ireland", "irish"},
	"CZE": {"cz", "cze", "czech republic", "czechia", "czech"},
	"CHL": {"cl", "chl", "chi", "chile", "chilean"},
}

var countryIndex = func() map[string]string {
	idx := make(map[string]string)
	for code, aliases := range countryAliases {
		idx[Name(code)] = code
		for _, a := range aliases {
			idx[Name(a)] = code
		}
	}
	return idx
}()

// CountryCode maps a country name, code, or demonym onto its alpha-3 code so
// that "UK", "GBR", "Britain", and "British" compare equal. Unknown values
// come back normalized but otherwise untouched.
func CountryCode(s string) string {
	n := Name(s)
	if n == "" {
		return ""
	}
	if code, ok := countryIndex[n]; ok {
		return code
	}
	return n
}

// SameCountry reports whether two country or nationality values refer to the
// same country. Empty values never match.
func SameCountry(a, b string) bool {
	ca, cb := CountryCode(a), CountryCode(b)
	return ca != "" && ca == cb
}
