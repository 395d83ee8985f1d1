package collegesearch

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// DefaultInstitutionTokens are the words that mark the end (or, with an
// "of X" tail, the start) of an institution name.
var DefaultInstitutionTokens = []string{
	"University", "College", "Institute", "Academy", "School", "Center",
	"Conservatory", "Seminary", "Polytechnic",
}

// DefaultLeadingStopwords are sentence words that the capitalised-run pattern
// picks up in front of a name ("Consider Carleton College").
var DefaultLeadingStopwords = []string{
	"a", "about", "also", "an", "and", "apply", "as", "at", "attend", "attending",
	"both", "but", "check", "consider", "considering", "either", "especially",
	"explore", "for", "from", "here", "how", "if", "in", "including", "is",
	"like", "look", "maybe", "near", "or", "perhaps", "see", "some", "such",
	"the", "then", "there", "these", "this", "those", "to", "try", "visit",
	"what", "while", "with", "you", "your",
}

// Abbreviations are the only capitalised words allowed to carry a period, so
// a run never crosses a sentence boundary.
const capWord = `(?:(?:St|Mt|Ft)\.|[A-Z][\p{L}\p{N}'’&-]*)`

// BuildNamePattern returns the default extraction pattern for the given
// institution tokens: a run of capitalised words ending in a token, with an
// optional "of [the] X Y" tail that also covers "University of X".
func BuildNamePattern(tokens []string) (string, error) {
	alts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		alts = append(alts, regexp.QuoteMeta(t))
	}
	if len(alts) == 0 {
		return "", fmt.Errorf("no institution tokens configured")
	}
	tok := `(?:` + strings.Join(alts, "|") + `)`
	tail := `(?:\s+(?:of|for|at)(?:\s+the)?\s+` + capWord + `(?:\s+(?:and\s+|&\s+)?` + capWord + `)*)?`
	return `(?:` + capWord + `\s+)*` + tok + `\b` + tail, nil
}

type ExtractorConfig struct {
	InstitutionTokens []string
	Patterns          []string
	LeadingStopwords  []string
}

// NameExtractor pulls candidate institution names out of free text. A
// pattern's named group "name" is used when present, the whole match
// otherwise.
type NameExtractor struct {
	patterns  []*regexp.Regexp
	tokens    map[string]struct{}
	stopwords map[string]struct{}
}

func NewNameExtractor(cfg ExtractorConfig) (*NameExtractor, error) {
	tokens := cfg.InstitutionTokens
	if len(tokens) == 0 {
		tokens = DefaultInstitutionTokens
	}
	stop := cfg.LeadingStopwords
	if stop == nil {
		stop = DefaultLeadingStopwords
	}
	def, err := BuildNamePattern(tokens)
	if err != nil {
		return nil, &ConfigError{Field: "extract.institution_tokens", Err: err}
	}
	e := &NameExtractor{
		patterns:  []*regexp.Regexp{regexp.MustCompile(def)},
		tokens:    map[string]struct{}{},
		stopwords: map[string]struct{}{},
	}
	for _, raw := range cfg.Patterns {
		re, err := regexp.Compile(raw)
		if err != nil {
			return nil, &ConfigError{Field: "extract.patterns", Err: err}
		}
		e.patterns = append(e.patterns, re)
	}
	for _, t := range tokens {
		e.tokens[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	for _, w := range stop {
		e.stopwords[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return e, nil
}

// Extract returns candidate names in first-seen order, de-duplicated by exact
// (case-sensitive) match. Bare institution tokens and empty or
// punctuation-only matches are dropped.
func (e *NameExtractor) Extract(text string) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, re := range e.patterns {
		nameIdx := re.SubexpIndex("name")
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			raw := m[0]
			if nameIdx > 0 && m[nameIdx] != "" {
				raw = m[nameIdx]
			}
			for _, part := range e.splitJoined(raw) {
				name := e.clean(part)
				if name == "" {
					continue
				}
				if _, ok := seen[name]; ok {
					continue
				}
				seen[name] = struct{}{}
				out = append(out, name)
			}
		}
	}
	return out
}

// splitJoined cuts a match at each standalone "and"/"&" whose following run
// of words holds an institution token, so "University of Minnesota and
// Carleton College" yields two names while "College of William and Mary"
// stays whole.
func (e *NameExtractor) splitJoined(raw string) []string {
	words := strings.Fields(raw)
	var parts []string
	start := 0
	for i, w := range words {
		if i == 0 || !isConnector(w) {
			continue
		}
		end := i + 1
		for end < len(words) && !isConnector(words[end]) {
			end++
		}
		if e.hasToken(words[i+1 : end]) {
			parts = append(parts, strings.Join(words[start:i], " "))
			start = i + 1
		}
	}
	return append(parts, strings.Join(words[start:], " "))
}

func (e *NameExtractor) hasToken(words []string) bool {
	for _, w := range words {
		if _, ok := e.tokens[strings.ToLower(strings.Trim(w, ".,;:!?"))]; ok {
			return true
		}
	}
	return false
}

func isConnector(w string) bool {
	return w == "&" || strings.EqualFold(w, "and")
}

func (e *NameExtractor) clean(raw string) string {
	words := strings.Fields(raw)
	for len(words) > 0 {
		if _, stop := e.stopwords[strings.ToLower(strings.Trim(words[0], ".,;:!?"))]; !stop {
			break
		}
		words = words[1:]
	}
	if len(words) == 0 {
		return ""
	}
	name := strings.Join(words, " ")
	name = strings.TrimRight(name, ".,;:!?'’-&")
	name = strings.TrimLeft(name, ".,;:!?'’-&")
	if !hasLetterOrDigit(name) {
		return ""
	}
	if len(strings.Fields(name)) == 1 {
		if _, bare := e.tokens[strings.ToLower(name)]; bare {
			return ""
		}
	}
	return name
}

func hasLetterOrDigit(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
