package main

import (
	"github.com/simplyliz/searchd/internal/backend"
	"github.com/simplyliz/searchd/internal/backend/rediscache"
)

// cacheBackendOrNil returns a true nil backend.CacheBackend when cache is
// nil, rather than a non-nil interface wrapping a nil *rediscache.Backend
// (a typed-nil interface would make every "cache != nil" check downstream
// believe a cache backend is registered when none is connected).
func cacheBackendOrNil(cache *rediscache.Backend) backend.CacheBackend {
	if cache == nil {
		return nil
	}
	return cache
}
