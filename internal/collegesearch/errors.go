package collegesearch

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrRejected        = errors.New("query contains a disallowed topic")
	ErrDataUnavailable = errors.New("institution data unavailable")
)

type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// SchemaError reports a roster that lacks the canonical-name column. It is a
// configuration problem, never a "no matches" outcome.
type SchemaError struct {
	Source string
	Column string
	Have   []string
}

func (e *SchemaError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("roster schema mismatch: missing canonical name column %q (have %v)", e.Column, e.Have)
	}
	return fmt.Sprintf("roster schema mismatch in %s: missing canonical name column %q (have %v)", e.Source, e.Column, e.Have)
}

// SearchError wraps every failure of the live search endpoint. It matches
// ErrDataUnavailable so callers can treat it as an empty, displayable result.
type SearchError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *SearchError) Error() string {
	switch {
	case e.StatusCode == http.StatusForbidden:
		return "scorecard authentication failed. Check SCORECARD_API_KEY"
	case e.StatusCode != 0:
		return fmt.Sprintf("scorecard status %d: %s", e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("scorecard request failed: %v", e.Err)
	default:
		return "scorecard request failed: " + e.Message
	}
}

func (e *SearchError) Is(target error) bool { return target == ErrDataUnavailable }

func (e *SearchError) Unwrap() error { return e.Err }

type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func StageNameFromError(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return "pipeline"
}
