// Package backend defines the provider contract every search backend
// (database, cache) implements, plus the domain types shared across
// the orchestrator: search results, options, and health status.
package backend

import (
	"context"
	"time"
)

// ResultKind is a closed tagged variant over the kinds of entities a
// search result can represent.
type ResultKind string

const (
	KindBook       ResultKind = "book"
	KindUser       ResultKind = "user"
	KindAuthor     ResultKind = "author"
	KindFinancial  ResultKind = "financial"
	KindHealthcare ResultKind = "healthcare"
	KindCustom     ResultKind = "custom"
)

// MatchType is a closed tagged variant describing which field matched
// the query.
type MatchType string

const (
	MatchTitle       MatchType = "title"
	MatchAuthor      MatchType = "author"
	MatchDescription MatchType = "description"
	MatchCategory    MatchType = "category"
	MatchCustom      MatchType = "custom"
)

// SearchResult is one row returned by a backend, pre-governance.
type SearchResult struct {
	ID              string                 `json:"id"`
	Kind            ResultKind             `json:"kind"`
	CustomKind      string                 `json:"customKind,omitempty"`
	Title           string                 `json:"title"`
	RelevanceScore  int                    `json:"relevanceScore"`
	MatchType       MatchType              `json:"matchType"`
	CustomMatchType string                 `json:"customMatchType,omitempty"`
	Description     string                 `json:"description,omitempty"`
	Author          string                 `json:"author,omitempty"`
	Category        string                 `json:"category,omitempty"`
	Language        string                 `json:"language,omitempty"`
	Visibility      string                 `json:"visibility,omitempty"`
	CreatedAt       time.Time              `json:"createdAt,omitempty"`
	UpdatedAt       time.Time              `json:"updatedAt,omitempty"`
	Tags            []string               `json:"tags,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// ClampScore clamps RelevanceScore into [0, 100], the invariant every
// result must satisfy after any transformation.
func (r *SearchResult) ClampScore() {
	if r.RelevanceScore < 0 {
		r.RelevanceScore = 0
	}
	if r.RelevanceScore > 100 {
		r.RelevanceScore = 100
	}
}

// SortField selects the field search results are ordered by.
type SortField string

const (
	SortRelevance SortField = "relevance"
	SortDate      SortField = "date"
	SortName      SortField = "name"
	SortCustom    SortField = "custom"
)

// SortOrder is ascending or descending.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Filters narrows a search beyond the free-text query. A backend MAY
// ignore filters it cannot translate; the orchestrator does not
// re-apply them, so an ignored filter does not narrow the results.
type Filters struct {
	Kinds      []ResultKind
	Categories []string
	Languages  []string
	Visibility []string
	DateFrom   *time.Time
	DateTo     *time.Time
	Extra      map[string]string
}

// SearchOptions configures a single search call.
type SearchOptions struct {
	Limit          int
	Offset         int
	Filters        Filters
	SortBy         SortField
	SortOrder      SortOrder
	CacheEnabled   bool
	CacheTTL       time.Duration
	FallbackEnabled bool
	Timeout        time.Duration
}

// DefaultSearchOptions returns the defaults: limit 20, offset
// 0, relevance descending, fallback enabled.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		Limit:           20,
		Offset:          0,
		SortBy:          SortRelevance,
		SortOrder:       SortDesc,
		CacheEnabled:    true,
		FallbackEnabled: true,
	}
}

// HealthStatus describes the last-known health of a backend.
type HealthStatus struct {
	IsConnected       bool
	IsSearchAvailable bool
	LatencyMs         int64 // -1 = unknown
	MemoryUsage       string
	KeyCount          int64
	LastSync          *time.Time
	Errors            []string
	Status            HealthLevel
}

// HealthLevel summarizes a HealthStatus.
type HealthLevel string

const (
	HealthHealthy   HealthLevel = "healthy"
	HealthDegraded  HealthLevel = "degraded"
	HealthUnhealthy HealthLevel = "unhealthy"
)

// Unhealthy builds a synthetic unhealthy status, used when a probe
// fails and no stale reading is available.
func Unhealthy(reason string) HealthStatus {
	return HealthStatus{
		IsConnected:       false,
		IsSearchAvailable: false,
		LatencyMs:         -1,
		Status:            HealthUnhealthy,
		Errors:            []string{reason},
	}
}

// ID identifies a registered backend instance within the orchestrator.
type ID string

// Backend is the capability set every search provider implements.
// Cache providers additionally implement CacheBackend. Errors are
// always typed (see internal/errors), never sentinel values.
type Backend interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool
	Health(ctx context.Context) (HealthStatus, error)
	Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error)
}

// CacheBackend extends Backend with the read/write surface the
// write-through cache and hybrid path require.
type CacheBackend interface {
	Backend
	Get(ctx context.Context, key string) ([]SearchResult, bool, error)
	Set(ctx context.Context, key string, results []SearchResult, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context, pattern string) error
}
