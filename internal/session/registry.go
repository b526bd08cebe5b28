// Package session keeps one orchestrator per user session in memory.
package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/autosurvey/internal/pipeline"
	"github.com/patrickmn/go-cache"
)

// Factory builds the orchestrator for a new session. The id lets the
// factory tag progress events and logs.
type Factory func(id string) *pipeline.Orchestrator

// Registry stores orchestrators keyed by session id. Sessions expire after
// ttl without access.
type Registry struct {
	cache   *cache.Cache
	factory Factory
	ttl     time.Duration
}

// NewRegistry creates a Registry whose sessions expire after ttl idle time.
func NewRegistry(factory Factory, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = time.Hour
	}
	cleanup := ttl / 6
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	return &Registry{
		cache:   cache.New(ttl, cleanup),
		factory: factory,
		ttl:     ttl,
	}
}

// Create starts a new session and returns its id.
func (r *Registry) Create() (string, *pipeline.Orchestrator) {
	id := uuid.New().String()
	o := r.factory(id)
	r.cache.Set(id, o, cache.DefaultExpiration)
	return id, o
}

// Get returns the session's orchestrator and refreshes its expiry.
func (r *Registry) Get(id string) (*pipeline.Orchestrator, bool) {
	x, found := r.cache.Get(id)
	if !found {
		return nil, false
	}
	o := x.(*pipeline.Orchestrator)
	r.cache.Set(id, o, cache.DefaultExpiration)
	return o, true
}

// Delete removes a session. It reports whether the session existed.
func (r *Registry) Delete(id string) bool {
	if _, found := r.cache.Get(id); !found {
		return false
	}
	r.cache.Delete(id)
	return true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return r.cache.ItemCount()
}

// TTL returns the idle expiry.
func (r *Registry) TTL() time.Duration {
	return r.ttl
}
