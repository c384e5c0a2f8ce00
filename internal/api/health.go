package api

import (
	"context"
	"net/http"
	"time"

	"github.com/simplyliz/searchd/internal/backend"
	"github.com/simplyliz/searchd/internal/orchestrator"
	"github.com/simplyliz/searchd/internal/version"
)

// HealthResponse is the aggregate readiness report served at /health.
type HealthResponse struct {
	Status    string                  `json:"status"`
	Timestamp time.Time               `json:"timestamp"`
	Version   string                  `json:"version"`
	Backends  map[string]BackendState `json:"backends"`
}

// BackendState summarizes one backend's breaker and health-probe state.
type BackendState struct {
	Connected   bool   `json:"connected"`
	Status      string `json:"status"`
	BreakerState string `json:"breakerState"`
	LatencyMs   int64  `json:"latencyMs,omitempty"`
}

// handleHealth reports the database breaker/probe state, and the
// cache's when a cache backend is registered. Status is "healthy" only
// when no registered backend's breaker is open (closed and half-open
// both count) and its last probe succeeded; any breaker open or probe failure drops it to "degraded"
// and returns 503, never 500 — an unhealthy backend is not a server error.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := HealthResponse{
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Backends:  make(map[string]BackendState),
	}

	overall := true

	dbState := probeBackend(ctx, s.database, s.orch.DatabaseBreaker())
	resp.Backends["database"] = dbState
	s.metrics.SetBreakerState("database", breakerStateValue(orchestrator.BreakerState(dbState.BreakerState)))
	if dbState.Status != string(backend.HealthHealthy) || dbState.BreakerState == string(orchestrator.StateOpen) {
		overall = false
	}

	if s.cache != nil {
		cacheState := probeBackend(ctx, s.cache, s.orch.CacheBreaker())
		resp.Backends["cache"] = cacheState
		s.metrics.SetBreakerState("cache", breakerStateValue(orchestrator.BreakerState(cacheState.BreakerState)))
		if cacheState.Status != string(backend.HealthHealthy) || cacheState.BreakerState == string(orchestrator.StateOpen) {
			overall = false
		}
	}

	statusCode := http.StatusOK
	if overall {
		resp.Status = "healthy"
	} else {
		resp.Status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	WriteJSON(w, resp, statusCode)
}

// breakerStateValue maps a breaker state to the numeric gauge value
// searchd_breaker_state documents: 0=closed, 1=half-open, 2=open.
func breakerStateValue(state orchestrator.BreakerState) float64 {
	switch state {
	case orchestrator.StateHalfOpen:
		return 1
	case orchestrator.StateOpen:
		return 2
	default:
		return 0
	}
}

func probeBackend(ctx context.Context, b backend.Backend, breaker *orchestrator.Breaker) BackendState {
	health, err := b.Health(ctx)
	state := BackendState{
		Connected:    b.IsConnected(),
		BreakerState: string(breaker.Snapshot().State),
	}
	if err != nil {
		state.Status = string(backend.HealthUnhealthy)
		return state
	}
	state.Status = string(health.Status)
	state.LatencyMs = health.LatencyMs
	return state
}
