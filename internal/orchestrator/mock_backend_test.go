package orchestrator

import (
	"context"
	"time"

	"github.com/simplyliz/searchd/internal/backend"
)

// mockBackend is a hand-written Backend test double, modeled on the
// teacher's mockBackend used in its orchestrator tests.
type mockBackend struct {
	connected   bool
	health      backend.HealthStatus
	healthErr   error
	searchFn    func(ctx context.Context, query string, opts backend.SearchOptions) ([]backend.SearchResult, error)
	searchCalls int
}

func (m *mockBackend) Connect(ctx context.Context) error    { m.connected = true; return nil }
func (m *mockBackend) Disconnect(ctx context.Context) error { m.connected = false; return nil }
func (m *mockBackend) IsConnected() bool                    { return m.connected }

func (m *mockBackend) Health(ctx context.Context) (backend.HealthStatus, error) {
	return m.health, m.healthErr
}

func (m *mockBackend) Search(ctx context.Context, query string, opts backend.SearchOptions) ([]backend.SearchResult, error) {
	m.searchCalls++
	return m.searchFn(ctx, query, opts)
}

// mockCacheBackend additionally implements CacheBackend.
type mockCacheBackend struct {
	mockBackend
	store map[string][]backend.SearchResult
}

func newMockCacheBackend() *mockCacheBackend {
	return &mockCacheBackend{store: make(map[string][]backend.SearchResult)}
}

func (m *mockCacheBackend) Get(ctx context.Context, key string) ([]backend.SearchResult, bool, error) {
	v, ok := m.store[key]
	return v, ok, nil
}

func (m *mockCacheBackend) Set(ctx context.Context, key string, results []backend.SearchResult, ttl time.Duration) error {
	m.store[key] = results
	return nil
}

func (m *mockCacheBackend) Delete(ctx context.Context, key string) error {
	delete(m.store, key)
	return nil
}

func (m *mockCacheBackend) Clear(ctx context.Context, pattern string) error {
	m.store = make(map[string][]backend.SearchResult)
	return nil
}
