package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/simplyliz/searchd/internal/backend"
)

// HealthCache memoizes the last health probe per backend so the hot
// search path does not re-probe a backend on every request. On probe
// failure it returns the last successfully probed reading (whatever
// its status) if one exists,
// falling back to a synthetic unhealthy status only when no stale
// reading is available.
type HealthCache struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[backend.ID]healthEntry
}

type healthEntry struct {
	status    backend.HealthStatus
	observed  time.Time
}

// NewHealthCache constructs a HealthCache with the given TTL.
func NewHealthCache(ttl time.Duration) *HealthCache {
	return &HealthCache{ttl: ttl, entries: make(map[backend.ID]healthEntry)}
}

// Get returns the health of id, probing b if the cached entry is
// stale or absent.
func (h *HealthCache) Get(ctx context.Context, id backend.ID, b backend.Backend) backend.HealthStatus {
	h.mu.Lock()
	entry, ok := h.entries[id]
	h.mu.Unlock()

	if ok && time.Since(entry.observed) < h.ttl {
		return entry.status
	}

	status, err := b.Health(ctx)
	if err != nil {
		if ok {
			return entry.status
		}
		return backend.Unhealthy(err.Error())
	}

	h.mu.Lock()
	h.entries[id] = healthEntry{status: status, observed: time.Now()}
	h.mu.Unlock()

	return status
}

// Invalidate drops the cached entry for id, forcing the next Get to probe.
func (h *HealthCache) Invalidate(id backend.ID) {
	h.mu.Lock()
	delete(h.entries, id)
	h.mu.Unlock()
}
