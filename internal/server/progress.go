package server

import (
	"sync"

	"github.com/jonathan/autosurvey/internal/pipeline"
)

// progressHub fans session progress out to the streams listening on it.
type progressHub struct {
	mu        sync.Mutex
	nextID    int
	listeners map[string]map[int]pipeline.ProgressCallback
}

func newProgressHub() *progressHub {
	return &progressHub{listeners: make(map[string]map[int]pipeline.ProgressCallback)}
}

// subscribe registers fn for a session and returns its removal func.
func (h *progressHub) subscribe(sessionID string, fn pipeline.ProgressCallback) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	if h.listeners[sessionID] == nil {
		h.listeners[sessionID] = make(map[int]pipeline.ProgressCallback)
	}
	h.listeners[sessionID][id] = fn

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners[sessionID], id)
		if len(h.listeners[sessionID]) == 0 {
			delete(h.listeners, sessionID)
		}
	}
}

func (h *progressHub) publish(sessionID string, event pipeline.ProgressEvent) {
	h.mu.Lock()
	fns := make([]pipeline.ProgressCallback, 0, len(h.listeners[sessionID]))
	for _, fn := range h.listeners[sessionID] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
}

func (h *progressHub) count(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners[sessionID])
}
