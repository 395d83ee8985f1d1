package collegesearch

import (
	"regexp"
	"strings"
)

// Filter rejects queries that mention a denylisted topic as a whole word or,
// for multi-word terms, as a whole phrase. "politics" blocks "local politics
// club" but a term never matches inside a longer word.
type Filter struct {
	terms []string
	re    *regexp.Regexp
}

func NewFilter(denylist []string) *Filter {
	terms := make([]string, 0, len(denylist))
	seen := map[string]struct{}{}
	for _, raw := range denylist {
		t := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
	}
	f := &Filter{terms: terms}
	if len(terms) == 0 {
		return f
	}
	alts := make([]string, 0, len(terms))
	for _, t := range terms {
		words := strings.Fields(t)
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		alts = append(alts, strings.Join(words, `\s+`))
	}
	f.re = regexp.MustCompile(`(?:^|[^\p{L}\p{N}])(?:` + strings.Join(alts, "|") + `)(?:$|[^\p{L}\p{N}])`)
	return f
}

func (f *Filter) Allowed(query string) bool {
	if f == nil || f.re == nil {
		return true
	}
	return !f.re.MatchString(strings.ToLower(query))
}

func (f *Filter) Terms() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.terms))
	copy(out, f.terms)
	return out
}
