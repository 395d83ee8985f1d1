package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joelkehle/college-assistant/internal/collegesearch"
	"github.com/joelkehle/college-assistant/internal/roster"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix    = "COLLEGE"
	FileBaseName = "college-assistant"
	redacted     = "[redacted]"
)

type Config struct {
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Scorecard ScorecardConfig `mapstructure:"scorecard" yaml:"scorecard"`
	Roster    RosterConfig    `mapstructure:"roster" yaml:"roster"`
	Filter    FilterConfig    `mapstructure:"filter" yaml:"filter"`
	Extract   ExtractConfig   `mapstructure:"extract" yaml:"extract"`
	Resolve   ResolveConfig   `mapstructure:"resolve" yaml:"resolve"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

type LLMConfig struct {
	Provider        string        `mapstructure:"provider" yaml:"provider"`
	Model           string        `mapstructure:"model" yaml:"model"`
	APIKey          string        `mapstructure:"api_key" yaml:"api_key"`
	AnthropicAPIKey string        `mapstructure:"anthropic_api_key" yaml:"anthropic_api_key"`
	ChunkSize       int           `mapstructure:"chunk_size" yaml:"chunk_size"`
	FallbackText    string        `mapstructure:"fallback_text" yaml:"fallback_text"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ProviderKey returns the API key for the configured provider.
func (c LLMConfig) ProviderKey() string {
	if strings.EqualFold(strings.TrimSpace(c.Provider), collegesearch.ProviderAnthropic) {
		return c.AnthropicAPIKey
	}
	return c.APIKey
}

type ScorecardConfig struct {
	APIKey  string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	PerPage int           `mapstructure:"per_page" yaml:"per_page"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type RosterConfig struct {
	DB      string           `mapstructure:"db" yaml:"db"`
	CSV     string           `mapstructure:"csv" yaml:"csv"`
	Columns roster.ColumnMap `mapstructure:"columns" yaml:"columns"`
}

type FilterConfig struct {
	Denylist []string `mapstructure:"denylist" yaml:"denylist"`
}

type ExtractConfig struct {
	InstitutionTokens []string `mapstructure:"institution_tokens" yaml:"institution_tokens"`
	Patterns          []string `mapstructure:"patterns" yaml:"patterns"`
	LeadingStopwords  []string `mapstructure:"leading_stopwords" yaml:"leading_stopwords"`
}

type ResolveConfig struct {
	Scorer    string  `mapstructure:"scorer" yaml:"scorer"`
	Threshold float64 `mapstructure:"threshold" yaml:"threshold"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// TelemetryConfig enables OTLP/HTTP trace export when Endpoint is set.
type TelemetryConfig struct {
	Endpoint    string `mapstructure:"endpoint" yaml:"endpoint"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
}

type LogConfig struct {
	Verbose bool `mapstructure:"verbose" yaml:"verbose"`
}

func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider:     collegesearch.ProviderGemini,
			Model:        collegesearch.DefaultLLMModel,
			ChunkSize:    collegesearch.DefaultChunkSize,
			FallbackText: collegesearch.DefaultFallbackText,
			Timeout:      collegesearch.DefaultLLMTimeout,
		},
		Scorecard: ScorecardConfig{
			BaseURL: collegesearch.ScorecardBaseURL,
			PerPage: collegesearch.DefaultPerPage,
			Timeout: 30 * time.Second,
		},
		Roster: RosterConfig{
			DB:      "college-assistant.db",
			Columns: roster.DefaultColumns,
		},
		Filter: FilterConfig{Denylist: append([]string(nil), collegesearch.DefaultDenylist...)},
		Extract: ExtractConfig{
			InstitutionTokens: append([]string(nil), collegesearch.DefaultInstitutionTokens...),
			Patterns:          []string{},
			LeadingStopwords:  append([]string(nil), collegesearch.DefaultLeadingStopwords...),
		},
		Resolve: ResolveConfig{
			Scorer:    collegesearch.ScorerTokenSet,
			Threshold: collegesearch.DefaultThreshold,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 2 * time.Minute,
		},
		Telemetry: TelemetryConfig{ServiceName: collegesearch.AgentName},
	}
}

// SetDefaults registers every key of Default() so that environment overrides
// reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.anthropic_api_key", "")
	v.SetDefault("llm.chunk_size", d.LLM.ChunkSize)
	v.SetDefault("llm.fallback_text", d.LLM.FallbackText)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("scorecard.api_key", "")
	v.SetDefault("scorecard.base_url", d.Scorecard.BaseURL)
	v.SetDefault("scorecard.per_page", d.Scorecard.PerPage)
	v.SetDefault("scorecard.timeout", d.Scorecard.Timeout)
	v.SetDefault("roster.db", d.Roster.DB)
	v.SetDefault("roster.csv", d.Roster.CSV)
	v.SetDefault("roster.columns.unit_id", d.Roster.Columns.UnitID)
	v.SetDefault("roster.columns.name", d.Roster.Columns.Name)
	v.SetDefault("roster.columns.city", d.Roster.Columns.City)
	v.SetDefault("roster.columns.state", d.Roster.Columns.State)
	v.SetDefault("roster.columns.url", d.Roster.Columns.URL)
	v.SetDefault("filter.denylist", d.Filter.Denylist)
	v.SetDefault("extract.institution_tokens", d.Extract.InstitutionTokens)
	v.SetDefault("extract.patterns", d.Extract.Patterns)
	v.SetDefault("extract.leading_stopwords", d.Extract.LeadingStopwords)
	v.SetDefault("resolve.scorer", d.Resolve.Scorer)
	v.SetDefault("resolve.threshold", d.Resolve.Threshold)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("telemetry.endpoint", d.Telemetry.Endpoint)
	v.SetDefault("telemetry.service_name", d.Telemetry.ServiceName)
	v.SetDefault("log.verbose", false)
}

// Load reads file (or ./college-assistant.yaml, then ~/.college-assistant.yaml
// when file is empty), the COLLEGE_* environment and the conventional provider
// key variables into a validated Config. A missing default file is not an
// error; a missing explicit file is.
func Load(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindings := map[string][]string{
		"llm.api_key":           {"COLLEGE_LLM_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"},
		"llm.anthropic_api_key": {"COLLEGE_LLM_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"},
		"scorecard.api_key":     {"COLLEGE_SCORECARD_API_KEY", "SCORECARD_API_KEY"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName(FileBaseName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
			v.AddConfigPath(filepath.Join(home, ".config", FileBaseName))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting as a *collegesearch.ConfigError,
// joined.
func (c Config) Validate() error {
	var errs []error
	bad := func(field string, err error) {
		errs = append(errs, &collegesearch.ConfigError{Field: field, Err: err})
	}
	switch strings.ToLower(strings.TrimSpace(c.LLM.Provider)) {
	case collegesearch.ProviderGemini, collegesearch.ProviderAnthropic:
	default:
		bad("llm.provider", fmt.Errorf("unknown provider %q", c.LLM.Provider))
	}
	if c.LLM.ChunkSize <= 0 {
		bad("llm.chunk_size", fmt.Errorf("must be positive, got %d", c.LLM.ChunkSize))
	}
	if c.LLM.Timeout <= 0 {
		bad("llm.timeout", fmt.Errorf("must be positive, got %s", c.LLM.Timeout))
	}
	if c.Scorecard.PerPage <= 0 || c.Scorecard.PerPage > 100 {
		bad("scorecard.per_page", fmt.Errorf("must be in [1,100], got %d", c.Scorecard.PerPage))
	}
	if _, err := collegesearch.ScorerByName(c.Resolve.Scorer); err != nil {
		errs = append(errs, err)
	}
	if c.Resolve.Threshold < 0 || c.Resolve.Threshold > 100 {
		bad("resolve.threshold", fmt.Errorf("%v outside [0,100]", c.Resolve.Threshold))
	}
	for _, p := range c.Extract.Patterns {
		if _, err := regexp.Compile(p); err != nil {
			bad("extract.patterns", err)
		}
	}
	if strings.TrimSpace(c.Roster.Columns.Name) == "" {
		bad("roster.columns.name", errors.New("canonical name column is required"))
	}
	return errors.Join(errs...)
}

// YAML renders the configuration with API keys redacted.
func (c Config) YAML() ([]byte, error) {
	c.LLM.APIKey = redact(c.LLM.APIKey)
	c.LLM.AnthropicAPIKey = redact(c.LLM.AnthropicAPIKey)
	c.Scorecard.APIKey = redact(c.Scorecard.APIKey)
	return yaml.Marshal(c)
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return redacted
}

func (c Config) InterpreterConfig() collegesearch.InterpreterConfig {
	return collegesearch.InterpreterConfig{
		ChunkSize:    c.LLM.ChunkSize,
		FallbackText: c.LLM.FallbackText,
		Timeout:      c.LLM.Timeout,
	}
}

func (c Config) ExtractorConfig() collegesearch.ExtractorConfig {
	return collegesearch.ExtractorConfig{
		InstitutionTokens: c.Extract.InstitutionTokens,
		Patterns:          c.Extract.Patterns,
		LeadingStopwords:  c.Extract.LeadingStopwords,
	}
}

func (c Config) LLMCallerConfig() collegesearch.LLMConfig {
	return collegesearch.LLMConfig{
		Provider: c.LLM.Provider,
		Model:    c.LLM.Model,
		APIKey:   c.LLM.ProviderKey(),
	}
}
