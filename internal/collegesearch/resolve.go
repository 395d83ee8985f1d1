package collegesearch

import (
	"context"
	"fmt"
	"strings"
)

// RosterProvider supplies the authoritative roster. Implementations may load
// once and serve the same read-only roster to every request.
type RosterProvider interface {
	LoadRoster(ctx context.Context) (Roster, error)
}

// Validate reports ErrDataUnavailable for an empty roster and a *SchemaError
// when the provider's columns do not include the canonical-name column.
func (r Roster) Validate() error {
	if strings.TrimSpace(r.NameColumn) == "" {
		return &SchemaError{Source: r.Source, Column: "<unset>", Have: r.Columns}
	}
	if len(r.Columns) > 0 && !containsFold(r.Columns, r.NameColumn) {
		return &SchemaError{Source: r.Source, Column: r.NameColumn, Have: r.Columns}
	}
	if len(r.Records) == 0 {
		return fmt.Errorf("%w: roster %q is empty", ErrDataUnavailable, r.Source)
	}
	return nil
}

type Resolver struct {
	scorer    Scorer
	threshold float64
}

func NewResolver(scorer Scorer, threshold float64) (*Resolver, error) {
	if scorer == nil {
		scorer = TokenSetRatio
	}
	if threshold < 0 || threshold > 100 {
		return nil, &ConfigError{Field: "resolve.threshold", Err: fmt.Errorf("%v outside [0,100]", threshold)}
	}
	return &Resolver{scorer: scorer, threshold: threshold}, nil
}

func (r *Resolver) Threshold() float64 { return r.threshold }

// Resolve matches every candidate against the roster and returns the accepted
// records, de-duplicated by canonical name in order of first acceptance,
// together with one MatchResult per candidate. Equal scores go to the entry
// with the higher plain Ratio, then to the earlier roster row.
func (r *Resolver) Resolve(candidates []string, roster Roster) ([]InstitutionRecord, []MatchResult, error) {
	out := []InstitutionRecord{}
	if len(candidates) == 0 {
		return out, nil, nil
	}
	if err := roster.Validate(); err != nil {
		return out, nil, err
	}

	normalized := make([]string, len(roster.Records))
	for i, rec := range roster.Records {
		normalized[i] = NormalizeName(rec.Name)
	}

	matches := make([]MatchResult, 0, len(candidates))
	seen := map[string]struct{}{}
	for _, cand := range candidates {
		nc := NormalizeName(cand)
		m := MatchResult{Candidate: cand}
		if nc == "" {
			matches = append(matches, m)
			continue
		}
		best := -1
		bestScore, bestTie := -1.0, -1.0
		for i, nr := range normalized {
			if nr == "" {
				continue
			}
			score := r.scorer(nc, nr)
			switch {
			case score > bestScore:
				best, bestScore, bestTie = i, score, -1
			case score == bestScore:
				if bestTie < 0 {
					bestTie = Ratio(nc, normalized[best])
				}
				if tie := Ratio(nc, nr); tie > bestTie {
					best, bestTie = i, tie
				}
			}
		}
		if best >= 0 {
			rec := roster.Records[best]
			m.Record = &rec
			m.Score = bestScore
			m.Accepted = bestScore >= r.threshold
		}
		matches = append(matches, m)
		if !m.Accepted {
			continue
		}
		if _, dup := seen[m.Record.Name]; dup {
			continue
		}
		seen[m.Record.Name] = struct{}{}
		out = append(out, *m.Record)
	}
	return out, matches, nil
}

func containsFold(items []string, v string) bool {
	for _, item := range items {
		if strings.EqualFold(strings.TrimSpace(item), strings.TrimSpace(v)) {
			return true
		}
	}
	return false
}
