package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func retryOnlyConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	}
}

func TestExecuteRetriesBackendTimeout(t *testing.T) {
	exec := NewExecutor(retryOnlyConfig())

	attempts := 0
	errTimeout := errors.New("upstream timeout")
	err := exec.Execute(context.Background(), "embed_query", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errTimeout
		}
		return nil
	}, func(err error) ErrorClassification {
		return ErrorClassification{
			Retryable:     errors.Is(err, errTimeout),
			RecordFailure: true,
		}
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteDoesNotRetryQuotaStyleFailure(t *testing.T) {
	exec := NewExecutor(retryOnlyConfig())

	attempts := 0
	errQuota := errors.New("quota exceeded")
	err := exec.Execute(context.Background(), "generate model-fast", func(context.Context) error {
		attempts++
		return errQuota
	}, func(error) ErrorClassification {
		// Quota is a policy decision for the caller, not a retry target.
		return ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	})
	if !errors.Is(err, errQuota) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteStopsRetryingWhenContextEnds(t *testing.T) {
	cfg := retryOnlyConfig()
	cfg.RetryInitialBackoff = time.Minute
	cfg.RetryMaxBackoff = time.Minute
	exec := NewExecutor(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	errTimeout := errors.New("upstream timeout")
	err := exec.Execute(ctx, "index_chunks", func(context.Context) error {
		attempts++
		cancel()
		return errTimeout
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	})
	if !errors.Is(err, errTimeout) {
		t.Fatalf("expected the operation error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected backoff to abort after 1 attempt, got %d", attempts)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		RetryInitialBackoff:     1 * time.Millisecond,
		RetryMaxBackoff:         1 * time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      50 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	})

	errDown := errors.New("backend unavailable")
	classifier := func(error) ErrorClassification {
		return ErrorClassification{
			Retryable:     false,
			RecordFailure: true,
		}
	}

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "generate model-fast", func(context.Context) error {
			return errDown
		}, classifier)
		if !errors.Is(err, errDown) {
			t.Fatalf("expected backend error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "generate model-fast", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, classifier)
	if !IsCircuitOpen(err) {
		t.Fatalf("expected open circuit, got %v", err)
	}
}

func TestBreakersAreScopedPerOperation(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		RetryInitialBackoff:     1 * time.Millisecond,
		RetryMaxBackoff:         1 * time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      50 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	})

	errDown := errors.New("backend unavailable")
	classifier := func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: true}
	}

	for i := 0; i < 2; i++ {
		_ = exec.Execute(context.Background(), "generate model-fast", func(context.Context) error {
			return errDown
		}, classifier)
	}
	err := exec.Execute(context.Background(), "generate model-fast", func(context.Context) error { return nil }, classifier)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected the failing operation's circuit open, got %v", err)
	}

	// A different operation keeps its own closed breaker.
	err = exec.Execute(context.Background(), "embed_query", func(context.Context) error { return nil }, classifier)
	if err != nil {
		t.Fatalf("unrelated operation should pass, got %v", err)
	}
}
