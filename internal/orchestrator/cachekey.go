package orchestrator

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"

	"github.com/simplyliz/searchd/internal/backend"
)

// canonicalCacheQuery is the subset of a search request that
// participates in the write-through cache key:
// {query, limit, offset, sort_by, sort_order, filters}.
type canonicalCacheQuery struct {
	Query     string            `json:"query"`
	Limit     int               `json:"limit"`
	Offset    int               `json:"offset"`
	SortBy    string            `json:"sortBy"`
	SortOrder string            `json:"sortOrder"`
	Filters   map[string]string `json:"filters"`
}

// CacheKey computes the deterministic `search:<md5>` key for query and
// opts, hashing the canonical JSON encoding with sorted filter keys so
// equivalent requests always collide on the same key.
func CacheKey(query string, opts backend.SearchOptions) string {
	filters := make(map[string]string, len(opts.Filters.Extra))
	for k, v := range opts.Filters.Extra {
		filters[k] = v
	}

	canon := canonicalCacheQuery{
		Query:     query,
		Limit:     opts.Limit,
		Offset:    opts.Offset,
		SortBy:    string(opts.SortBy),
		SortOrder: string(opts.SortOrder),
		Filters:   filters,
	}

	// encoding/json marshals map[string]string keys in sorted order,
	// giving a canonical form without a custom key-sort pass.
	raw, _ := json.Marshal(canon)
	sum := md5.Sum(raw)
	return "search:" + hex.EncodeToString(sum[:])
}
