package collegesearch

import (
	"fmt"
	"strings"
	"unicode"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Scorer compares two normalised names and returns a similarity in [0,100].
type Scorer func(a, b string) float64

const (
	ScorerTokenSet  = "token_set_ratio"
	ScorerTokenSort = "token_sort_ratio"
	ScorerRatio     = "ratio"
)

func ScorerByName(name string) (Scorer, error) {
	switch strings.TrimSpace(name) {
	case "", ScorerTokenSet:
		return TokenSetRatio, nil
	case ScorerTokenSort:
		return TokenSortRatio, nil
	case ScorerRatio:
		return Ratio, nil
	default:
		return nil, &ConfigError{Field: "resolve.scorer", Err: fmt.Errorf("unknown scorer %q", name)}
	}
}

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName folds accents, lower-cases, turns punctuation into spaces and
// collapses whitespace ("Université Laval" -> "universite laval").
func NormalizeName(s string) string {
	folded, _, err := transform.String(foldAccents, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, folded)
	return strings.Join(strings.Fields(folded), " ")
}

// Ratio is fuzzywuzzy's SequenceMatcher ratio scaled to 100. Identical
// strings (both empty included) score 100; one empty side scores 0.
func Ratio(a, b string) float64 {
	return score(a, b, func(a, b string) int { return fuzzy.Ratio(a, b) })
}

// TokenSortRatio compares the names with their words sorted.
func TokenSortRatio(a, b string) float64 {
	return score(a, b, func(a, b string) int { return fuzzy.TokenSortRatio(a, b) })
}

// TokenSetRatio ignores word order and duplicated words, and scores a name
// whose words are a subset of the other's as 100.
func TokenSetRatio(a, b string) float64 {
	return score(a, b, func(a, b string) int { return fuzzy.TokenSetRatio(a, b) })
}

func score(a, b string, fn func(a, b string) int) float64 {
	switch {
	case a == b:
		return 100
	case strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "":
		return 0
	}
	return float64(fn(a, b))
}
