package collegesearch

import (
	"regexp"
	"strings"
)

var (
	inSeparatorRe = regexp.MustCompile(`(?i)(?:^|\s)in(?:\s|$)`)
	stateTokenRe  = regexp.MustCompile(`[A-Za-z]+`)
)

var stateAbbreviations = map[string]struct{}{
	"AL": {}, "AK": {}, "AZ": {}, "AR": {}, "CA": {}, "CO": {}, "CT": {}, "DE": {}, "DC": {}, "FL": {},
	"GA": {}, "HI": {}, "ID": {}, "IL": {}, "IN": {}, "IA": {}, "KS": {}, "KY": {}, "LA": {}, "ME": {},
	"MD": {}, "MA": {}, "MI": {}, "MN": {}, "MS": {}, "MO": {}, "MT": {}, "NE": {}, "NV": {}, "NH": {},
	"NJ": {}, "NM": {}, "NY": {}, "NC": {}, "ND": {}, "OH": {}, "OK": {}, "OR": {}, "PA": {}, "RI": {},
	"SC": {}, "SD": {}, "TN": {}, "TX": {}, "UT": {}, "VT": {}, "VA": {}, "WA": {}, "WV": {}, "WI": {},
	"WY": {}, "PR": {}, "GU": {}, "VI": {}, "AS": {}, "MP": {},
}

// Lower-case words that collide with an abbreviation only count when the user
// wrote them in capitals.
var ambiguousStateWords = map[string]struct{}{
	"al": {}, "as": {}, "de": {}, "hi": {}, "id": {}, "in": {}, "la": {}, "ma": {},
	"me": {}, "oh": {}, "ok": {}, "or": {}, "pa": {},
}

var stateNames = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR", "california": "CA",
	"colorado": "CO", "connecticut": "CT", "delaware": "DE", "district of columbia": "DC",
	"florida": "FL", "georgia": "GA", "hawaii": "HI", "idaho": "ID", "illinois": "IL",
	"indiana": "IN", "iowa": "IA", "kansas": "KS", "kentucky": "KY", "louisiana": "LA",
	"maine": "ME", "maryland": "MD", "massachusetts": "MA", "michigan": "MI", "minnesota": "MN",
	"mississippi": "MS", "missouri": "MO", "montana": "MT", "nebraska": "NE", "nevada": "NV",
	"new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM", "new york": "NY",
	"north carolina": "NC", "north dakota": "ND", "ohio": "OH", "oklahoma": "OK", "oregon": "OR",
	"pennsylvania": "PA", "rhode island": "RI", "south carolina": "SC", "south dakota": "SD",
	"tennessee": "TN", "texas": "TX", "utah": "UT", "vermont": "VT", "virginia": "VA",
	"washington": "WA", "west virginia": "WV", "wisconsin": "WI", "wyoming": "WY",
	"puerto rico": "PR",
}

// ExtractKeywordAndState splits a query on its first whole-word "in". The
// left side is the search keyword; the right side is scanned for a US state.
// Queries with several clauses can split wrongly; that is accepted.
func ExtractKeywordAndState(query string) KeywordState {
	q := strings.TrimSpace(query)
	loc := inSeparatorRe.FindStringIndex(q)
	if loc == nil {
		return KeywordState{Keyword: q}
	}
	keyword := strings.TrimSpace(q[:loc[0]])
	if keyword == "" {
		keyword = q
	}
	return KeywordState{Keyword: keyword, State: findState(q[loc[1]:])}
}

func findState(s string) string {
	words := stateTokenRe.FindAllString(s, -1)
	for i, w := range words {
		if i+2 < len(words) {
			if abbr, ok := stateNames[strings.ToLower(strings.Join(words[i:i+3], " "))]; ok {
				return abbr
			}
		}
		if i+1 < len(words) {
			if abbr, ok := stateNames[strings.ToLower(w+" "+words[i+1])]; ok {
				return abbr
			}
		}
		if abbr, ok := stateNames[strings.ToLower(w)]; ok {
			return abbr
		}
		if len(w) == 2 {
			if _, ambiguous := ambiguousStateWords[w]; ambiguous {
				continue
			}
			up := strings.ToUpper(w)
			if _, ok := stateAbbreviations[up]; ok {
				return up
			}
		}
	}
	return ""
}
