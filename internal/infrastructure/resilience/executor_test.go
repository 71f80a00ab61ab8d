package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

var errFlaky = errors.New("connection reset")

func retryOnly(attempts int) Config {
	return Config{
		RetryMaxAttempts:    attempts,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	}
}

func TestExecuteRetriesRetryableFailure(t *testing.T) {
	exec := NewExecutor(retryOnly(3))

	attempts := 0
	err := exec.Execute(context.Background(), "nats.publish", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errFlaky
		}
		return nil
	}, func(err error) ErrorClassification {
		return ErrorClassification{Retryable: errors.Is(err, errFlaky), RecordFailure: true}
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestExecuteStopsOnPermanentFailure(t *testing.T) {
	exec := NewExecutor(retryOnly(3))

	attempts := 0
	errBadRequest := errors.New("payload rejected")
	err := exec.Execute(context.Background(), "qdrant_upsert_resume_chunks", func(context.Context) error {
		attempts++
		return errBadRequest
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: false}
	})
	if !errors.Is(err, errBadRequest) {
		t.Fatalf("err = %v, want permanent error", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestExecuteReturnsExhaustedError(t *testing.T) {
	exec := NewExecutor(retryOnly(2))

	attempts := 0
	err := exec.Execute(context.Background(), "nats.publish", func(context.Context) error {
		attempts++
		return errFlaky
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	})
	if !errors.Is(err, errFlaky) {
		t.Fatalf("err = %v, want last failure after exhausting attempts", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}

func TestExecuteHonorsContextCancellation(t *testing.T) {
	exec := NewExecutor(retryOnly(5))

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := exec.Execute(ctx, "nats.publish", func(context.Context) error {
		attempts++
		cancel()
		return errFlaky
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	})
	if !errors.Is(err, errFlaky) {
		t.Fatalf("err = %v, want last failure once canceled", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1 (no retry after cancel)", attempts)
	}
}

func TestExecuteOpensBreakerAfterRepeatedFailures(t *testing.T) {
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

	recordAll := func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: true}
	}

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "qdrant_upsert_document_chunks", func(context.Context) error {
			return errFlaky
		}, recordAll)
		if !errors.Is(err, errFlaky) {
			t.Fatalf("iteration %d: err = %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "qdrant_upsert_document_chunks", func(context.Context) error {
		t.Fatal("open breaker must not invoke the operation")
		return nil
	}, recordAll)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("err = %v, want open-state error", err)
	}
}

func TestBreakersAreIndependentPerOperation(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    1,
		BreakerEnabled:      true,
		BreakerMinRequests:  2,
		BreakerFailureRatio: 0.5,
		BreakerOpenTimeout:  50 * time.Millisecond,
	})

	recordAll := func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: true}
	}
	for i := 0; i < 2; i++ {
		_ = exec.Execute(context.Background(), "nats.publish", func(context.Context) error {
			return errFlaky
		}, recordAll)
	}

	err := exec.Execute(context.Background(), "qdrant_upsert_resume_chunks", func(context.Context) error {
		return nil
	}, recordAll)
	if err != nil {
		t.Fatalf("unrelated operation failed: %v", err)
	}
}
