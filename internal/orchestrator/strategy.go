package orchestrator

import (
	"fmt"

	"github.com/simplyliz/searchd/internal/backend"
)

// StrategyKind names which backend role a Decision assigns.
type StrategyKind string

const (
	StrategyCache    StrategyKind = "cache"
	StrategyDatabase StrategyKind = "database"
	StrategyHybrid   StrategyKind = "hybrid"
)

// Decision is the (primary, fallback, reason) triple the selector produces.
type Decision struct {
	Primary  StrategyKind
	Fallback StrategyKind
	Reason   string
}

// SelectStrategy is a pure function of cache presence, cache breaker
// state, and cache health. Rules are evaluated in order; the hybrid
// override (rule 3 replaced by hybrid+database) applies only when
// hybridEnabled is true and a cache backend is present.
func SelectStrategy(hasCache bool, cacheBreakerState BreakerState, cacheHealth backend.HealthStatus, hybridEnabled bool) Decision {
	if !hasCache {
		return Decision{Primary: StrategyDatabase, Fallback: StrategyDatabase, Reason: "no cache configured"}
	}

	if cacheBreakerState == StateOpen {
		return Decision{Primary: StrategyDatabase, Fallback: StrategyDatabase, Reason: "cache breaker open"}
	}

	cacheHealthy := cacheHealth.IsConnected && cacheHealth.IsSearchAvailable && cacheHealth.LatencyMs >= 0 && cacheHealth.LatencyMs < 1000
	if cacheHealthy {
		if hybridEnabled {
			return Decision{Primary: StrategyHybrid, Fallback: StrategyDatabase, Reason: fmt.Sprintf("cache healthy (%dms)", cacheHealth.LatencyMs)}
		}
		return Decision{Primary: StrategyCache, Fallback: StrategyDatabase, Reason: fmt.Sprintf("cache healthy (%dms)", cacheHealth.LatencyMs)}
	}

	if cacheHealth.IsConnected && !cacheHealth.IsSearchAvailable {
		return Decision{Primary: StrategyDatabase, Fallback: StrategyCache, Reason: "degraded cache"}
	}

	return Decision{Primary: StrategyDatabase, Fallback: StrategyDatabase, Reason: "cache unavailable"}
}
