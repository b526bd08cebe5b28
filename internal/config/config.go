// Package config provides configuration loading and validation for the CLI
// and the API server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/autosurvey/internal/llm"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvAPIKey      = "GEMINI_API_KEY"
	EnvDatabaseURL = "DATABASE_URL"
	EnvLogFile     = "AUTOSURVEY_LOG_FILE"
)

// Config represents the configuration loaded from a JSON or YAML file.
// Missing values use defaults; flags and environment variables win over the file.
type Config struct {
	APIKey      string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty"`
	// CorpusDir is loaded into an in-memory index when no database is configured.
	CorpusDir string `json:"corpus_dir,omitempty" yaml:"corpus_dir,omitempty"`

	Port    int    `json:"port,omitempty" yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	LogFile string `json:"log_file,omitempty" yaml:"log_file,omitempty"`
	Verbose bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"`

	CallTimeout     string `json:"call_timeout,omitempty" yaml:"call_timeout,omitempty"`
	RevisionCeiling int    `json:"revision_ceiling,omitempty" yaml:"revision_ceiling,omitempty" validate:"omitempty,min=1"`
	SessionTTL      string `json:"session_ttl,omitempty" yaml:"session_ttl,omitempty"`
	KeywordCount    int    `json:"keyword_count,omitempty" yaml:"keyword_count,omitempty" validate:"omitempty,min=1,max=100"`

	// Models maps a tier (lite, standard, advanced) to a model name.
	Models map[string]string `json:"models,omitempty" yaml:"models,omitempty" validate:"dive,keys,oneof=lite standard advanced,endkeys,required"`
	// Profiles maps a generation profile id to a model name.
	Profiles       map[string]string `json:"profiles,omitempty" yaml:"profiles,omitempty" validate:"dive,required"`
	EmbeddingModel string            `json:"embedding_model,omitempty" yaml:"embedding_model,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:            8080,
		CallTimeout:     "2m",
		RevisionCeiling: 5,
		SessionTTL:      "1h",
		KeywordCount:    10,
		EmbeddingModel:  llm.DefaultEmbeddingModel,
	}
}

// LoadConfig loads configuration from a JSON file, or YAML when the
// extension is .yaml or .yml.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// ApplyEnv overrides fields from environment variables that are set.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv(EnvAPIKey); v != "" {
		c.APIKey = v
	}
	if v := getenv(EnvDatabaseURL); v != "" {
		c.DatabaseURL = v
	}
	if v := getenv(EnvLogFile); v != "" {
		c.LogFile = v
	}
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	for name, value := range map[string]string{"call_timeout": c.CallTimeout, "session_ttl": c.SessionTTL} {
		if value == "" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("config error: '%s' is not a duration: %w", name, err)
		}
		if d < 0 {
			return fmt.Errorf("config error: '%s' must be non-negative", name)
		}
	}

	if c.CorpusDir != "" {
		if _, err := os.Stat(c.CorpusDir); os.IsNotExist(err) {
			return fmt.Errorf("config error: corpus directory not found: %s", c.CorpusDir)
		}
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// Bools cannot be told apart from unset, so they are not merged.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.CorpusDir == "" {
		result.CorpusDir = defaults.CorpusDir
	}
	if result.LogFile == "" {
		result.LogFile = defaults.LogFile
	}
	if result.CallTimeout == "" {
		result.CallTimeout = defaults.CallTimeout
	}
	if result.SessionTTL == "" {
		result.SessionTTL = defaults.SessionTTL
	}
	if result.EmbeddingModel == "" {
		result.EmbeddingModel = defaults.EmbeddingModel
	}

	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.RevisionCeiling == 0 {
		result.RevisionCeiling = defaults.RevisionCeiling
	}
	if result.KeywordCount == 0 {
		result.KeywordCount = defaults.KeywordCount
	}

	result.Models = mergeMap(defaults.Models, c.Models)
	result.Profiles = mergeMap(defaults.Profiles, c.Profiles)
	return result
}

func mergeMap(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// CallTimeoutDuration returns the per-call model timeout. Zero disables it.
func (c *Config) CallTimeoutDuration() time.Duration {
	return parseDuration(c.CallTimeout)
}

// SessionTTLDuration returns the idle expiry of API sessions.
func (c *Config) SessionTTLDuration() time.Duration {
	return parseDuration(c.SessionTTL)
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// LLMConfig returns the model configuration with the file's tier and profile
// overrides applied to the defaults.
func (c *Config) LLMConfig() *llm.Config {
	cfg := llm.DefaultConfig()
	for tier, model := range c.Models {
		cfg.Models[llm.ModelTier(tier)] = model
	}
	for profile, model := range c.Profiles {
		cfg.Profiles[profile] = model
	}
	return cfg
}
