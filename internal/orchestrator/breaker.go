package orchestrator

import (
	"context"
	"sync"
	"time"

	searcherrors "github.com/simplyliz/searchd/internal/errors"
	"github.com/simplyliz/searchd/internal/logging"
)

// BreakerState is one of the three circuit breaker states.
type BreakerState string

const (
	StateClosed   BreakerState = "CLOSED"
	StateOpen     BreakerState = "OPEN"
	StateHalfOpen BreakerState = "HALF_OPEN"
)

// BreakerConfig configures a Breaker's thresholds.
type BreakerConfig struct {
	FailureThreshold int
	SuccessThreshold int
	RecoveryTimeout  time.Duration
}

// DefaultBreakerConfig returns the default thresholds: 5 consecutive
// failures opens the breaker, 3 consecutive successes in half-open
// state closes it, with a 60s recovery timeout.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 5, SuccessThreshold: 3, RecoveryTimeout: 60 * time.Second}
}

// Breaker is a per-backend circuit breaker. It wraps exactly one
// backend operation per Call; any error the operation returns counts
// as a failure, including a context-deadline timeout.
type Breaker struct {
	backendID string
	cfg       BreakerConfig
	logger    *logging.Logger

	mu                sync.Mutex
	state             BreakerState
	failureCount      int
	successCount      int
	lastFailureTime   time.Time
}

// NewBreaker constructs a Breaker in the CLOSED state.
func NewBreaker(backendID string, cfg BreakerConfig, logger *logging.Logger) *Breaker {
	return &Breaker{backendID: backendID, cfg: cfg, logger: logger, state: StateClosed}
}

// State returns the current state, first evaluating whether an OPEN
// breaker has waited out its recovery timeout and should move to
// HALF_OPEN.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeRecoverLocked()
	return b.state
}

func (b *Breaker) maybeRecoverLocked() {
	if b.state == StateOpen && time.Since(b.lastFailureTime) >= b.cfg.RecoveryTimeout {
		b.transitionLocked(StateHalfOpen)
		b.successCount = 0
	}
}

// Call executes fn through the breaker. If the breaker is OPEN (and
// has not yet recovered), fn is never invoked and a CircuitBreakerOpen
// error is returned immediately.
func (b *Breaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	b.mu.Lock()
	b.maybeRecoverLocked()
	if b.state == StateOpen {
		b.mu.Unlock()
		return searcherrors.NewCircuitOpenError(b.backendID)
	}
	b.mu.Unlock()

	err := fn(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.onFailureLocked()
		return err
	}
	b.onSuccessLocked()
	return nil
}

func (b *Breaker) onSuccessLocked() {
	switch b.state {
	case StateClosed:
		if b.failureCount > 0 {
			b.failureCount--
		}
	case StateHalfOpen:
		b.successCount++
		if b.successCount >= b.cfg.SuccessThreshold {
			b.transitionLocked(StateClosed)
			b.failureCount = 0
			b.successCount = 0
		}
	}
}

func (b *Breaker) onFailureLocked() {
	b.lastFailureTime = time.Now()
	switch b.state {
	case StateClosed:
		b.failureCount++
		if b.failureCount >= b.cfg.FailureThreshold {
			b.transitionLocked(StateOpen)
		}
	case StateHalfOpen:
		b.transitionLocked(StateOpen)
		b.successCount = 0
	}
}

func (b *Breaker) transitionLocked(to BreakerState) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	if b.logger != nil {
		b.logger.Info("breaker transition", map[string]interface{}{
			"backend": b.backendID,
			"from":    string(from),
			"to":      string(to),
		})
	}
}

// Snapshot returns the breaker's counters for diagnostics and tests.
type Snapshot struct {
	State           BreakerState
	FailureCount    int
	SuccessCount    int
	LastFailureTime time.Time
}

// Snapshot returns a point-in-time copy of the breaker's internal counters.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeRecoverLocked()
	return Snapshot{
		State:           b.state,
		FailureCount:    b.failureCount,
		SuccessCount:    b.successCount,
		LastFailureTime: b.lastFailureTime,
	}
}
