package collegesearch

import "time"

const (
	AgentName    = "college-assistant"
	AgentVersion = "0.3.0"

	DefaultChunkSize    = 1000
	DefaultThreshold    = 90.0
	DefaultFallbackText = "engineering"
	DefaultLLMModel     = "gemini-2.0-flash"
	DefaultLLMTimeout   = 30 * time.Second

	ScorecardBaseURL     = "https://api.data.gov/ed/collegescorecard/v1"
	ScorecardSchoolsPath = "/schools"
	DefaultPerPage       = 20

	RejectionMessage = "Your query contains topics that I'm not able to discuss. Please ask about colleges and universities."
)

// DefaultDenylist holds the topics a query may not mention.
var DefaultDenylist = []string{"politics", "violence", "gambling", "drugs", "alcohol"}

const (
	StageFilter    = "filter"
	StageInterpret = "interpret"
	StageResolve   = "resolve"
	StageSearch    = "search"
)

type ResultSource string

const (
	SourceNone      ResultSource = ""
	SourceRoster    ResultSource = "roster"
	SourceScorecard ResultSource = "scorecard"
)

type Request struct {
	RequestID string `json:"request_id,omitempty"`
	Query     string `json:"query"`
}

// InstitutionRecord is one institution from the roster or the live search
// endpoint. Name is the canonical name used for matching and de-duplication.
type InstitutionRecord struct {
	UnitID        string       `json:"unit_id,omitempty"`
	Name          string       `json:"name"`
	City          string       `json:"city,omitempty"`
	State         string       `json:"state,omitempty"`
	URL           string       `json:"url,omitempty"`
	AdmissionRate *float64     `json:"admission_rate,omitempty"`
	Source        ResultSource `json:"source,omitempty"`
}

type MatchResult struct {
	Candidate string             `json:"candidate"`
	Record    *InstitutionRecord `json:"record,omitempty"`
	Score     float64            `json:"score"`
	Accepted  bool               `json:"accepted"`
}

type InterpreterResult struct {
	RawText        string   `json:"raw_text"`
	CandidateNames []string `json:"candidate_names"`
	Fallback       bool     `json:"fallback"`
	Chunks         int      `json:"chunks"`
	Notice         string   `json:"notice,omitempty"`
}

type KeywordState struct {
	Keyword string `json:"keyword"`
	State   string `json:"state,omitempty"`
}

// Roster is the authoritative institution dataset. Columns lists the fields
// the provider supplied; NameColumn must be one of them.
type Roster struct {
	Source     string
	Columns    []string
	NameColumn string
	Records    []InstitutionRecord
}

type PipelineMetadata struct {
	StagesExecuted []string  `json:"stages_executed"`
	Model          string    `json:"model"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
	DurationMS     int64     `json:"duration_ms"`
}

// PipelineResult is the request-scoped record handed to the caller.
type PipelineResult struct {
	Request         Request             `json:"request"`
	Interpretation  InterpreterResult   `json:"interpretation"`
	Lookup          *KeywordState       `json:"lookup,omitempty"`
	Matches         []MatchResult       `json:"matches,omitempty"`
	Institutions    []InstitutionRecord `json:"institutions"`
	Source          ResultSource        `json:"source,omitempty"`
	DataUnavailable bool                `json:"data_unavailable"`
	Notices         []string            `json:"notices,omitempty"`
	Metadata        PipelineMetadata    `json:"metadata"`
}
