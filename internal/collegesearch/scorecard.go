package collegesearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

var scorecardFields = []string{
	"id",
	"school.name",
	"school.city",
	"school.state",
	"school.school_url",
	"latest.admissions.admission_rate.overall",
}

type SearchConfig struct {
	APIKey     string
	BaseURL    string
	PerPage    int
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Searcher looks institutions up by name and state on the College Scorecard
// schools endpoint. One request per lookup, no retries.
type Searcher struct {
	cfg SearchConfig
	log *zap.Logger
}

func NewSearcher(cfg SearchConfig) (*Searcher, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, &ConfigError{Field: "scorecard.api_key", Err: errors.New("SCORECARD_API_KEY not configured")}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = ScorecardBaseURL
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = DefaultPerPage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Searcher{cfg: cfg, log: log}, nil
}

type scorecardResponse struct {
	Metadata struct {
		Total   int `json:"total"`
		Page    int `json:"page"`
		PerPage int `json:"per_page"`
	} `json:"metadata"`
	Results []map[string]any `json:"results"`
}

// Search returns the matching institutions in endpoint order. Every failure is
// a *SearchError, which matches ErrDataUnavailable.
func (s *Searcher) Search(ctx context.Context, lookup KeywordState) ([]InstitutionRecord, error) {
	keyword := strings.TrimSpace(lookup.Keyword)
	if keyword == "" {
		return []InstitutionRecord{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	started := time.Now()
	resp, err := s.executeOnce(ctx, keyword, strings.TrimSpace(lookup.State))
	if err != nil {
		s.log.Warn("scorecard_search_error",
			zap.String("keyword", keyword),
			zap.String("state", lookup.State),
			zap.Int64("elapsed_ms", time.Since(started).Milliseconds()),
			zap.Error(err),
		)
		return []InstitutionRecord{}, err
	}

	out := make([]InstitutionRecord, 0, len(resp.Results))
	seen := map[string]struct{}{}
	for _, raw := range resp.Results {
		rec := flattenSchool(raw)
		if rec.Name == "" {
			continue
		}
		key := rec.UnitID + "|" + rec.Name
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}
	s.log.Debug("scorecard_search_done",
		zap.String("keyword", keyword),
		zap.String("state", lookup.State),
		zap.Int("total", resp.Metadata.Total),
		zap.Int("returned", len(out)),
		zap.Int64("elapsed_ms", time.Since(started).Milliseconds()),
	)
	return out, nil
}

func (s *Searcher) executeOnce(ctx context.Context, keyword, state string) (scorecardResponse, error) {
	params := url.Values{}
	params.Set("api_key", s.cfg.APIKey)
	params.Set("school.name", keyword)
	if state != "" {
		params.Set("school.state", strings.ToUpper(state))
	}
	params.Set("fields", strings.Join(scorecardFields, ","))
	params.Set("per_page", strconv.Itoa(s.cfg.PerPage))

	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + ScorecardSchoolsPath + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return scorecardResponse{}, &SearchError{Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	res, err := s.cfg.HTTPClient.Do(req)
	if err != nil {
		return scorecardResponse{}, &SearchError{Err: redactKey(err, s.cfg.APIKey)}
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(res.Body, 4<<20))

	if res.StatusCode >= 300 {
		return scorecardResponse{}, &SearchError{StatusCode: res.StatusCode, Message: clampString(strings.TrimSpace(string(b)), 200)}
	}
	var parsed scorecardResponse
	if err := json.Unmarshal(b, &parsed); err != nil {
		return scorecardResponse{}, &SearchError{Message: "decode response", Err: err}
	}
	return parsed, nil
}

// redactKey keeps the api_key query parameter out of logged url.Error values.
func redactKey(err error, key string) error {
	var ue *url.Error
	if key == "" || !errors.As(err, &ue) {
		return err
	}
	return fmt.Errorf("%s %s: %w", ue.Op, strings.ReplaceAll(ue.URL, key, "REDACTED"), ue.Err)
}

func flattenSchool(raw map[string]any) InstitutionRecord {
	rec := InstitutionRecord{
		UnitID: idString(raw["id"]),
		Name:   strings.TrimSpace(str(raw["school.name"])),
		City:   strings.TrimSpace(str(raw["school.city"])),
		State:  strings.TrimSpace(str(raw["school.state"])),
		URL:    strings.TrimSpace(str(raw["school.school_url"])),
		Source: SourceScorecard,
	}
	if v, ok := raw["latest.admissions.admission_rate.overall"].(float64); ok {
		rate := v
		rec.AdmissionRate = &rate
	}
	return rec
}

func idString(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatInt(int64(t), 10)
	case string:
		return strings.TrimSpace(t)
	default:
		return ""
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func clampString(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
