// Package orchestrator implements the search orchestration core: the
// strategy selector, circuit breaker, health cache, hybrid fan-out,
// and the top-level Orchestrator that ties them together.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/simplyliz/searchd/internal/backend"
	searcherrors "github.com/simplyliz/searchd/internal/errors"
	"github.com/simplyliz/searchd/internal/governance"
	"github.com/simplyliz/searchd/internal/logging"
	"github.com/simplyliz/searchd/internal/merge"
)

var tracer = otel.Tracer("github.com/simplyliz/searchd/internal/orchestrator")

// Performance carries per-request telemetry, independent of governance.
type Performance struct {
	SearchTimeMs int64
	ResultCount  int
	Strategy     StrategyKind
	CacheHit     bool
	Errors       []string
}

// Response is the result of a plain (non-secure) Search call.
type Response struct {
	Results     []backend.SearchResult
	Decision    Decision
	Performance Performance
}

// Config configures the Orchestrator's merge defaults and slow-query
// reporting thresholds.
type Config struct {
	HybridEnabled      bool
	Merge              merge.Config
	SlowQueryThreshold time.Duration
	LogQueries         bool
	DefaultCacheTTL    time.Duration
}

// Orchestrator is the top-level search entry point. It owns the
// registered backends, their breakers, and the shared health cache.
type Orchestrator struct {
	cfg Config

	database backend.Backend
	cache    backend.CacheBackend // nil if no cache backend registered

	dbBreaker    *Breaker
	cacheBreaker *Breaker
	health       *HealthCache

	logger *logging.Logger
}

// New constructs an Orchestrator. cache may be nil: the cache backend
// is optional, and a nil cache simply takes the cache arm out of every
// strategy decision.
func New(cfg Config, database backend.Backend, cache backend.CacheBackend, breakerCfg BreakerConfig, healthTTL time.Duration, logger *logging.Logger) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg,
		database:  database,
		cache:     cache,
		dbBreaker: NewBreaker("database", breakerCfg, logger),
		health:    NewHealthCache(healthTTL),
		logger:    logger,
	}
	if cache != nil {
		o.cacheBreaker = NewBreaker("cache", breakerCfg, logger)
	}
	return o
}

// CacheBreaker exposes the cache breaker for diagnostics/tests. Nil
// when no cache backend is registered.
func (o *Orchestrator) CacheBreaker() *Breaker { return o.cacheBreaker }

// DatabaseBreaker exposes the database breaker for diagnostics/tests.
func (o *Orchestrator) DatabaseBreaker() *Breaker { return o.dbBreaker }

func (o *Orchestrator) currentDecision(ctx context.Context) Decision {
	if o.cache == nil {
		return SelectStrategy(false, StateClosed, backend.HealthStatus{}, false)
	}
	health := o.health.Get(ctx, backend.ID("cache"), o.cache)
	return SelectStrategy(true, o.cacheBreaker.State(), health, o.cfg.HybridEnabled)
}

// Search runs the strategy selector, executes the chosen backend(s)
// through their breakers, writes successful database results through
// to the cache, and returns a Response carrying performance
// telemetry. A complete failure of both primary and fallback never
// panics or returns an error; it returns an empty result set with both
// error strings recorded.
func (o *Orchestrator) Search(ctx context.Context, query string, opts backend.SearchOptions) (*Response, error) {
	start := time.Now()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	decision := o.currentDecision(ctx)

	var results []backend.SearchResult
	var perfErrors []string
	var strategyTaken StrategyKind
	var cacheHit bool

	if decision.Primary == StrategyHybrid {
		hybridResults, took, err := o.searchHybrid(ctx, query, opts)
		if err != nil {
			perfErrors = append(perfErrors, err.Error())
			strategyTaken = StrategyDatabase
		} else {
			results = hybridResults
			strategyTaken = took
			cacheHit = took == StrategyCache || took == StrategyHybrid
		}
	} else {
		var err error
		results, err = o.execute(ctx, decision.Primary, query, opts)
		if err != nil {
			perfErrors = append(perfErrors, err.Error())
			fallbackResults, fallbackErr := o.execute(ctx, decision.Fallback, query, opts)
			if fallbackErr != nil {
				perfErrors = append(perfErrors, fallbackErr.Error())
				results = nil
				strategyTaken = decision.Fallback
			} else {
				results = fallbackResults
				strategyTaken = decision.Fallback
				cacheHit = decision.Fallback == StrategyCache
			}
		} else {
			strategyTaken = decision.Primary
			cacheHit = decision.Primary == StrategyCache
		}
	}

	if strategyTaken == StrategyDatabase && len(results) > 0 && opts.CacheEnabled && o.cache != nil {
		o.writeThrough(ctx, query, opts, results)
	}

	elapsed := time.Since(start)
	o.reportSlowQuery(query, elapsed)

	return &Response{
		Results:  results,
		Decision: decision,
		Performance: Performance{
			SearchTimeMs: elapsed.Milliseconds(),
			ResultCount:  len(results),
			Strategy:     strategyTaken,
			CacheHit:     cacheHit,
			Errors:       perfErrors,
		},
	}, nil
}

func (o *Orchestrator) execute(ctx context.Context, kind StrategyKind, query string, opts backend.SearchOptions) ([]backend.SearchResult, error) {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("orchestrator.execute.%s", kind))
	defer span.End()

	switch kind {
	case StrategyCache:
		if o.cache == nil {
			return nil, searcherrors.NewBackendUnavailableError("no cache backend registered")
		}
		var results []backend.SearchResult
		err := o.cacheBreaker.Call(ctx, func(ctx context.Context) error {
			r, err := o.cache.Search(ctx, query, opts)
			if err != nil {
				return err
			}
			results = r
			return nil
		})
		return results, err
	case StrategyDatabase:
		var results []backend.SearchResult
		err := o.dbBreaker.Call(ctx, func(ctx context.Context) error {
			r, err := o.database.Search(ctx, query, opts)
			if err != nil {
				return err
			}
			results = r
			return nil
		})
		return results, err
	default:
		return nil, searcherrors.NewBackendUnavailableError(fmt.Sprintf("unknown strategy %q", kind))
	}
}

func (o *Orchestrator) writeThrough(ctx context.Context, query string, opts backend.SearchOptions, results []backend.SearchResult) {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = o.cfg.DefaultCacheTTL
	}
	key := CacheKey(query, opts)
	if err := o.cache.Set(ctx, key, results, ttl); err != nil {
		o.logger.Warn("write-through cache set failed", map[string]interface{}{"error": err.Error(), "key": key})
	}
}

func (o *Orchestrator) reportSlowQuery(query string, elapsed time.Duration) {
	if o.cfg.SlowQueryThreshold > 0 && elapsed > o.cfg.SlowQueryThreshold {
		o.logger.Warn("slow query", map[string]interface{}{"durationMs": elapsed.Milliseconds()})
	}
	if o.cfg.LogQueries {
		o.logger.Info("query executed", map[string]interface{}{"query": truncateRedacted(query)})
	}
}

// searchHybrid fans out to cache and database concurrently and merges
// their results. Returns the strategy actually achieved: hybrid
// when both succeeded, cache or database when only one did.
func (o *Orchestrator) searchHybrid(ctx context.Context, query string, opts backend.SearchOptions) ([]backend.SearchResult, StrategyKind, error) {
	ctx, span := tracer.Start(ctx, "orchestrator.searchHybrid", trace.WithAttributes())
	defer span.End()

	var wg sync.WaitGroup
	var cacheResults, dbResults []backend.SearchResult
	var cacheErr, dbErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		err := o.cacheBreaker.Call(ctx, func(ctx context.Context) error {
			r, err := o.cache.Search(ctx, query, opts)
			if err != nil {
				return err
			}
			cacheResults = r
			return nil
		})
		cacheErr = err
	}()
	go func() {
		defer wg.Done()
		err := o.dbBreaker.Call(ctx, func(ctx context.Context) error {
			r, err := o.database.Search(ctx, query, opts)
			if err != nil {
				return err
			}
			dbResults = r
			return nil
		})
		dbErr = err
	}()
	wg.Wait()

	switch {
	case cacheErr == nil && dbErr == nil:
		merged := merge.Merge(cacheResults, dbResults, o.cfg.Merge)
		return merged, StrategyHybrid, nil
	case cacheErr == nil:
		return cacheResults, StrategyCache, nil
	case dbErr == nil:
		return dbResults, StrategyDatabase, nil
	default:
		return nil, "", searcherrors.NewHybridCompleteFailureError(cacheErr, dbErr)
	}
}

func truncateRedacted(query string) string {
	redacted := governance.RedactSensitive(query)
	if len(redacted) > 50 {
		return redacted[:50]
	}
	return redacted
}
