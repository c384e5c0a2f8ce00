package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	searcherrors "github.com/simplyliz/searchd/internal/errors"
)

func testBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 5, SuccessThreshold: 3, RecoveryTimeout: 60 * time.Second}
}

func TestBreakerStartsClosed(t *testing.T) {
	b := NewBreaker("cache", testBreakerConfig(), nil)
	if b.State() != StateClosed {
		t.Errorf("initial state = %v, want CLOSED", b.State())
	}
}

func TestBreakerOpensAfterFailureThresholdSeedScenarioS2(t *testing.T) {
	b := NewBreaker("cache", testBreakerConfig(), nil)
	failing := func(ctx context.Context) error { return errors.New("connection refused") }

	for i := 0; i < 5; i++ {
		b.Call(context.Background(), failing)
	}
	if b.State() != StateOpen {
		t.Fatalf("state after 5 failures = %v, want OPEN", b.State())
	}

	calls := 0
	err := b.Call(context.Background(), func(ctx context.Context) error { calls++; return nil })
	if calls != 0 {
		t.Error("wrapped operation should not be invoked while breaker is OPEN")
	}
	if searcherrors.CodeOf(err) != searcherrors.ErrCircuitOpen {
		t.Errorf("CodeOf(err) = %v, want ErrCircuitOpen", searcherrors.CodeOf(err))
	}
}

func TestBreakerFailureCountDecrementsOnSuccessWhileClosed(t *testing.T) {
	b := NewBreaker("cache", testBreakerConfig(), nil)
	failing := func(ctx context.Context) error { return errors.New("x") }
	succeeding := func(ctx context.Context) error { return nil }

	b.Call(context.Background(), failing)
	b.Call(context.Background(), failing)
	if got := b.Snapshot().FailureCount; got != 2 {
		t.Fatalf("FailureCount = %d, want 2", got)
	}

	b.Call(context.Background(), succeeding)
	if got := b.Snapshot().FailureCount; got != 1 {
		t.Errorf("FailureCount after success = %d, want 1", got)
	}
}

func TestBreakerFailureCountNeverGoesNegative(t *testing.T) {
	b := NewBreaker("cache", testBreakerConfig(), nil)
	for i := 0; i < 3; i++ {
		b.Call(context.Background(), func(ctx context.Context) error { return nil })
	}
	if got := b.Snapshot().FailureCount; got != 0 {
		t.Errorf("FailureCount = %d, want 0", got)
	}
}

func TestBreakerTransitionsToHalfOpenAfterRecoveryTimeout(t *testing.T) {
	cfg := BreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, RecoveryTimeout: 10 * time.Millisecond}
	b := NewBreaker("cache", cfg, nil)
	b.Call(context.Background(), func(ctx context.Context) error { return errors.New("x") })
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want OPEN", b.State())
	}

	time.Sleep(20 * time.Millisecond)
	if b.State() != StateHalfOpen {
		t.Fatalf("state after recovery timeout = %v, want HALF_OPEN", b.State())
	}
}

func TestBreakerHalfOpenClosesAfterSuccessThreshold(t *testing.T) {
	cfg := BreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, RecoveryTimeout: 10 * time.Millisecond}
	b := NewBreaker("cache", cfg, nil)
	b.Call(context.Background(), func(ctx context.Context) error { return errors.New("x") })
	time.Sleep(20 * time.Millisecond)
	b.State() // force recovery transition

	b.Call(context.Background(), func(ctx context.Context) error { return nil })
	if b.State() != StateHalfOpen {
		t.Fatalf("state after 1 success = %v, want still HALF_OPEN", b.State())
	}
	b.Call(context.Background(), func(ctx context.Context) error { return nil })
	if b.State() != StateClosed {
		t.Fatalf("state after success threshold = %v, want CLOSED", b.State())
	}
	if got := b.Snapshot().FailureCount; got != 0 {
		t.Errorf("FailureCount after reset = %d, want 0", got)
	}
}

func TestBreakerHalfOpenFailureReturnsToOpen(t *testing.T) {
	cfg := BreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, RecoveryTimeout: 10 * time.Millisecond}
	b := NewBreaker("cache", cfg, nil)
	b.Call(context.Background(), func(ctx context.Context) error { return errors.New("x") })
	time.Sleep(20 * time.Millisecond)
	b.State()

	b.Call(context.Background(), func(ctx context.Context) error { return nil })
	b.Call(context.Background(), func(ctx context.Context) error { return errors.New("x") })
	if b.State() != StateOpen {
		t.Fatalf("state after half-open failure = %v, want OPEN", b.State())
	}
}
