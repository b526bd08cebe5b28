package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables read by LoadConfig.
const (
	EnvEnabled       = "AUTOSURVEY_RATE_LIMIT"
	EnvDefaultLimit  = "AUTOSURVEY_RATE_LIMIT_PER_WINDOW"
	EnvDefaultWindow = "AUTOSURVEY_RATE_LIMIT_WINDOW"
	EnvAllowIPs      = "AUTOSURVEY_RATE_LIMIT_ALLOW"
	EnvDenyIPs       = "AUTOSURVEY_RATE_LIMIT_DENY"
)

// EndpointConfig is the limit for requests matching Path and Method.
type EndpointConfig struct {
	Path   string // exact path, path.Match pattern, or prefix ending in "/"
	Method string
	Limit  int
	Window time.Duration
	Burst  int // zero means Limit
}

// LoadConfig builds a Config from the environment. Unparseable values fall
// back to their defaults.
func LoadConfig(getenv func(string) string) *Config {
	if getenv == nil {
		getenv = os.Getenv
	}
	env := envReader(getenv)

	cfg := &Config{
		Enabled:         env.boolean(EnvEnabled, true),
		DefaultLimit:    env.integer(EnvDefaultLimit, 600),
		DefaultWindow:   env.duration(EnvDefaultWindow, time.Minute),
		CleanupInterval: 5 * time.Minute,
		Whitelist:       ipSet(getenv(EnvAllowIPs)),
		Blacklist:       ipSet(getenv(EnvDenyIPs)),
	}
	if cfg.Enabled {
		cfg.EndpointConfigs = DefaultEndpointConfigs()
	}
	return cfg
}

// DefaultEndpointConfigs limits model-backed routes hardest. Reads fall
// through to the default limit and /health is never limited.
func DefaultEndpointConfigs() []EndpointConfig {
	drafting := EndpointConfig{Method: "POST", Limit: 20, Window: time.Hour, Burst: 3}
	revising := EndpointConfig{Method: "POST", Limit: 60, Window: time.Hour, Burst: 5}
	writes := EndpointConfig{Limit: 100, Window: time.Minute, Burst: 10}

	return []EndpointConfig{
		at(drafting, "/sessions/*/draft", ""),
		at(drafting, "/sessions/*/draft/stream", ""),
		at(revising, "/sessions/*/feedback", ""),
		at(writes, "/sessions", "POST"),
		at(writes, "/sessions/", "POST"),
		at(writes, "/sessions/", "DELETE"),
	}
}

func at(base EndpointConfig, path, method string) EndpointConfig {
	base.Path = path
	if method != "" {
		base.Method = method
	}
	return base
}

type envReader func(string) string

func (r envReader) integer(key string, def int) int {
	if n, err := strconv.Atoi(r(key)); err == nil {
		return n
	}
	return def
}

func (r envReader) boolean(key string, def bool) bool {
	if b, err := strconv.ParseBool(r(key)); err == nil {
		return b
	}
	return def
}

func (r envReader) duration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(r(key)); err == nil {
		return d
	}
	return def
}

// ipSet splits a comma-separated address list.
func ipSet(list string) map[string]bool {
	set := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			set[ip] = true
		}
	}
	return set
}
