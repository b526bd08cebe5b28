package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonathan/autosurvey/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		"database_url": "postgres://localhost/autosurvey",
		"port": 9090,
		"revision_ceiling": 7,
		"call_timeout": "45s",
		"verbose": true,
		"profiles": {"autosurvey-edu": "tuned-edu-model"}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/autosurvey", cfg.DatabaseURL)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 7, cfg.RevisionCeiling)
	assert.Equal(t, 45*time.Second, cfg.CallTimeoutDuration())
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "tuned-edu-model", cfg.Profiles["autosurvey-edu"])
}

func TestLoadConfig_ValidYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
port: 8081
session_ttl: 30m
keyword_count: 15
models:
  advanced: gemini-2.5-pro
profiles:
  autosurvey-health: tuned-health-model
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTLDuration())
	assert.Equal(t, 15, cfg.KeywordCount)
	assert.Equal(t, "gemini-2.5-pro", cfg.Models["advanced"])
	assert.Equal(t, "tuned-health-model", cfg.Profiles["autosurvey-health"])
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "config.json", `{ invalid json }`))
	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "failed to parse config JSON")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "config.yml", "port: [unclosed"))
	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "failed to parse config YAML")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "config path is empty")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"defaults", Default(), ""},
		{"port out of range", Config{Port: 70000}, "Port"},
		{"negative ceiling", Config{RevisionCeiling: -1}, "RevisionCeiling"},
		{"bad timeout", Config{CallTimeout: "soon"}, "call_timeout"},
		{"negative ttl", Config{SessionTTL: "-5m"}, "session_ttl"},
		{"unknown tier", Config{Models: map[string]string{"huge": "m"}}, "Models"},
		{"empty profile model", Config{Profiles: map[string]string{"autosurvey-edu": ""}}, "Profiles"},
		{"missing corpus", Config{CorpusDir: "/nonexistent/corpus"}, "corpus directory not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvAPIKey:      "env-key",
		EnvDatabaseURL: "postgres://env/db",
	}
	cfg := Config{APIKey: "file-key", LogFile: "file.log"}

	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "postgres://env/db", cfg.DatabaseURL)
	assert.Equal(t, "file.log", cfg.LogFile)
}

func TestMergeWithDefaults(t *testing.T) {
	defaults := Default()
	defaults.Profiles = map[string]string{"autosurvey-edu": "default-edu"}
	cfg := Config{
		Port:     9000,
		Profiles: map[string]string{"autosurvey-health": "file-health"},
	}

	merged := cfg.MergeWithDefaults(defaults)

	assert.Equal(t, 9000, merged.Port)
	assert.Equal(t, 5, merged.RevisionCeiling)
	assert.Equal(t, "2m", merged.CallTimeout)
	assert.Equal(t, time.Hour, merged.SessionTTLDuration())
	assert.Equal(t, 10, merged.KeywordCount)
	assert.Equal(t, llm.DefaultEmbeddingModel, merged.EmbeddingModel)
	assert.Equal(t, map[string]string{"autosurvey-edu": "default-edu", "autosurvey-health": "file-health"}, merged.Profiles)
	assert.Nil(t, merged.Models)
}

func TestLLMConfig(t *testing.T) {
	cfg := Config{
		Models:   map[string]string{"lite": "small-model"},
		Profiles: map[string]string{"autosurvey-public": "public-model"},
	}

	llmCfg := cfg.LLMConfig()

	assert.Equal(t, "small-model", llmCfg.GetModel(llm.TierLite))
	assert.Equal(t, "public-model", llmCfg.ModelForProfile("autosurvey-public"))
	assert.Equal(t, llmCfg.GetModel(llm.TierAdvanced), llmCfg.ModelForProfile("general-purpose"))
}
