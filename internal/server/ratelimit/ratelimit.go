// Package ratelimit provides per-client token bucket rate limiting.
package ratelimit

import (
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// idleBucketTTL is how long an unused bucket is kept.
const idleBucketTTL = time.Hour

// Info contains information about rate limit status.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// Limiter manages rate limiting for multiple clients. Each client, endpoint
// and method combination gets its own rate.Limiter; idle ones expire.
type Limiter struct {
	config  *Config
	buckets *cache.Cache
	now     func() time.Time
}

// NewLimiter creates a new rate limiter with the given configuration.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = &Config{
			Enabled:         true,
			DefaultLimit:    1000,
			DefaultWindow:   time.Minute,
			CleanupInterval: 5 * time.Minute,
			Whitelist:       make(map[string]bool),
			Blacklist:       make(map[string]bool),
		}
	}

	cleanup := config.CleanupInterval
	if cleanup <= 0 {
		cleanup = 5 * time.Minute
	}

	return &Limiter{
		config:  config,
		buckets: cache.New(idleBucketTTL, cleanup),
		now:     time.Now,
	}
}

// Allow checks if a request from the given client is allowed for the specified endpoint.
// Returns true if allowed, false if rate limited, along with rate limit information.
func (l *Limiter) Allow(clientID string, endpoint string, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return true, Info{Allowed: true}
	}
	if l.config.Blacklist[clientID] {
		return false, Info{Allowed: false}
	}

	endpointConfig := MatchEndpoint(endpoint, method, l.config.EndpointConfigs)
	if endpointConfig == nil {
		endpointConfig = &EndpointConfig{
			Limit:  l.config.DefaultLimit,
			Window: l.config.DefaultWindow,
			Burst:  l.config.DefaultLimit,
		}
	}

	// Unlimited endpoint (e.g., health check)
	if endpointConfig.Limit <= 0 {
		return true, Info{Allowed: true}
	}

	bucketKey := clientID + ":" + endpoint + ":" + method
	bucket := l.getBucket(bucketKey, endpointConfig)

	now := l.now()
	allowed := bucket.AllowN(now, 1)
	tokens := bucket.TokensAt(now)

	info := Info{
		Allowed:   allowed,
		Limit:     endpointConfig.Limit,
		Remaining: max(int(tokens), 0),
		ResetTime: now.Add(refillDuration(bucket, float64(bucket.Burst())-tokens)),
	}
	if !allowed {
		info.RetryAfter = refillDuration(bucket, 1-tokens)
	}
	return allowed, info
}

// refillDuration is the time needed to regain n tokens.
func refillDuration(bucket *rate.Limiter, n float64) time.Duration {
	if n <= 0 || bucket.Limit() <= 0 {
		return 0
	}
	return time.Duration(n / float64(bucket.Limit()) * float64(time.Second))
}

// getBucket gets or creates the limiter for the given key and refreshes its expiry.
func (l *Limiter) getBucket(key string, cfg *EndpointConfig) *rate.Limiter {
	if v, ok := l.buckets.Get(key); ok {
		bucket := v.(*rate.Limiter)
		l.buckets.SetDefault(key, bucket)
		return bucket
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.Limit
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	bucket := rate.NewLimiter(rate.Limit(float64(cfg.Limit)/window.Seconds()), burst)

	if err := l.buckets.Add(key, bucket, cache.DefaultExpiration); err != nil {
		// Another request created it first
		if v, ok := l.buckets.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return bucket
}

// Len returns the number of live buckets.
func (l *Limiter) Len() int {
	return l.buckets.ItemCount()
}

// Stop drops all buckets.
func (l *Limiter) Stop() {
	l.buckets.Flush()
}
