package orchestrator

import (
	"testing"

	"github.com/simplyliz/searchd/internal/backend"
)

func TestCacheKeyIsDeterministicForEquivalentRequests(t *testing.T) {
	opts := backend.DefaultSearchOptions()
	opts.Filters.Extra = map[string]string{"b": "2", "a": "1"}

	k1 := CacheKey("asthma", opts)

	opts2 := backend.DefaultSearchOptions()
	opts2.Filters.Extra = map[string]string{"a": "1", "b": "2"}
	k2 := CacheKey("asthma", opts2)

	if k1 != k2 {
		t.Errorf("expected identical keys regardless of filter insertion order: %q != %q", k1, k2)
	}
}

func TestCacheKeyDiffersForDifferentQueries(t *testing.T) {
	opts := backend.DefaultSearchOptions()
	if CacheKey("asthma", opts) == CacheKey("diabetes", opts) {
		t.Error("expected different keys for different queries")
	}
}

func TestCacheKeyHasSearchPrefix(t *testing.T) {
	key := CacheKey("x", backend.DefaultSearchOptions())
	if len(key) < len("search:") || key[:7] != "search:" {
		t.Errorf("key = %q, want search: prefix", key)
	}
}
