// Package rediscache is the reference Cache backend, a CacheBackend
// implementation over go-redis. It owns its own connection pool; the
// orchestrator never manages individual connections.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/simplyliz/searchd/internal/backend"
	searcherrors "github.com/simplyliz/searchd/internal/errors"
	"github.com/simplyliz/searchd/internal/logging"
)

// Config configures the redis client.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Backend is the reference Cache provider.
type Backend struct {
	cfg       Config
	logger    *logging.Logger
	client    *redis.Client
	connected bool
}

// New constructs a Backend without dialing; call Connect to open it.
func New(cfg Config, logger *logging.Logger) *Backend {
	return &Backend{cfg: cfg, logger: logger}
}

// Connect dials redis and verifies connectivity with a PING.
func (b *Backend) Connect(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:     b.cfg.Addr,
		Password: b.cfg.Password,
		DB:       b.cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return searcherrors.NewConnectionError("cache", err)
	}
	b.client = client
	b.connected = true
	b.logger.Info("cache backend connected", map[string]interface{}{"addr": b.cfg.Addr})
	return nil
}

// Disconnect closes the client.
func (b *Backend) Disconnect(ctx context.Context) error {
	if b.client == nil {
		return nil
	}
	b.connected = false
	return b.client.Close()
}

// IsConnected reports the last-known connection state.
func (b *Backend) IsConnected() bool {
	return b.connected
}

// Health pings redis and reports key count and latency.
func (b *Backend) Health(ctx context.Context) (backend.HealthStatus, error) {
	if !b.connected {
		return backend.Unhealthy("not connected"), nil
	}

	start := time.Now()
	if err := b.client.Ping(ctx).Err(); err != nil {
		return backend.HealthStatus{
			IsConnected:       true,
			IsSearchAvailable: false,
			LatencyMs:         -1,
			Status:            backend.HealthDegraded,
			Errors:            []string{err.Error()},
		}, nil
	}
	latency := time.Since(start).Milliseconds()

	count, err := b.client.DBSize(ctx).Result()
	if err != nil {
		count = 0
	}

	info, _ := b.client.Info(ctx, "memory").Result()
	memUsage := parseUsedMemory(info)

	return backend.HealthStatus{
		IsConnected:       true,
		IsSearchAvailable: true,
		LatencyMs:         latency,
		KeyCount:          count,
		MemoryUsage:       memUsage,
		Status:            backend.HealthHealthy,
	}, nil
}

// Search performs a pattern scan over keys that look like search
// result sets and returns the union of their cached entries matching
// query as a naive substring match. The cache backend is a fast-path
// read surface, not a query engine; real lookups go through Get with
// the canonical cache key.
func (b *Backend) Search(ctx context.Context, query string, opts backend.SearchOptions) ([]backend.SearchResult, error) {
	if !b.connected {
		return nil, searcherrors.NewConnectionError("cache", fmt.Errorf("not connected"))
	}

	var matched []backend.SearchResult
	iter := b.client.Scan(ctx, 0, "search:*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := b.client.Get(ctx, iter.Val()).Result()
		if err != nil {
			continue
		}
		var entries []backend.SearchResult
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			continue
		}
		for _, e := range entries {
			if query == "" || strings.Contains(strings.ToLower(e.Title), strings.ToLower(query)) {
				e.ClampScore()
				matched = append(matched, e)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return nil, searcherrors.NewSearchError("cache", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	start := opts.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

// Get reads a cached result set by its canonical cache key.
func (b *Backend) Get(ctx context.Context, key string) ([]backend.SearchResult, bool, error) {
	if !b.connected {
		return nil, false, searcherrors.NewConnectionError("cache", fmt.Errorf("not connected"))
	}
	raw, err := b.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, searcherrors.NewConnectionError("cache", err)
	}
	var results []backend.SearchResult
	if err := json.Unmarshal([]byte(raw), &results); err != nil {
		return nil, false, searcherrors.NewSearchError("cache", err)
	}
	return results, true, nil
}

// Set writes a result set under key with the given TTL (write-through cache).
func (b *Backend) Set(ctx context.Context, key string, results []backend.SearchResult, ttl time.Duration) error {
	if !b.connected {
		return searcherrors.NewConnectionError("cache", fmt.Errorf("not connected"))
	}
	raw, err := json.Marshal(results)
	if err != nil {
		return searcherrors.NewSearchError("cache", err)
	}
	if err := b.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return searcherrors.NewConnectionError("cache", err)
	}
	return nil
}

// Delete removes a single cached entry.
func (b *Backend) Delete(ctx context.Context, key string) error {
	if !b.connected {
		return searcherrors.NewConnectionError("cache", fmt.Errorf("not connected"))
	}
	return b.client.Del(ctx, key).Err()
}

// Clear removes every key matching pattern ("" clears all search:* keys).
func (b *Backend) Clear(ctx context.Context, pattern string) error {
	if !b.connected {
		return searcherrors.NewConnectionError("cache", fmt.Errorf("not connected"))
	}
	if pattern == "" {
		pattern = "search:*"
	}
	iter := b.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return searcherrors.NewConnectionError("cache", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return b.client.Del(ctx, keys...).Err()
}

func parseUsedMemory(info string) string {
	for _, line := range strings.Split(info, "\r\n") {
		if strings.HasPrefix(line, "used_memory_human:") {
			return strings.TrimPrefix(line, "used_memory_human:")
		}
	}
	return "unknown"
}
