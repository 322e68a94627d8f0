package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BackoffBase: time.Millisecond,
		BackoffMax:  5 * time.Millisecond,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), zerolog.Nop(), testPolicy(), "op", func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	err := Do(context.Background(), zerolog.Nop(), testPolicy(), "op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errors.New("rpc timeout"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_FatalAbortsImmediately(t *testing.T) {
	fatal := errors.New("insufficient funds")
	calls := 0
	err := Do(context.Background(), zerolog.Nop(), testPolicy(), "op", func(ctx context.Context) error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("expected fatal error back, got %v", err)
	}
	if calls != 1 {
		t.Errorf("fatal error should not be retried, got %d calls", calls)
	}
}

func TestDo_ExhaustionReturnsLastError(t *testing.T) {
	transient := errors.New("connection reset")
	calls := 0
	err := Do(context.Background(), zerolog.Nop(), testPolicy(), "op", func(ctx context.Context) error {
		calls++
		return Retryable(transient)
	})
	if !errors.Is(err, transient) {
		t.Fatalf("expected last error after exhaustion, got %v", err)
	}
	if !IsRetryable(err) {
		t.Error("exhausted error should keep its retryable marker for the caller")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ContextCancelledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := Do(ctx, zerolog.Nop(), testPolicy(), "op", func(ctx context.Context) error {
		cancel()
		return Retryable(errors.New("slow rpc"))
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestIsRetryable_NilAndPlainErrors(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should stay nil")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain error must not classify as retryable")
	}
	wrapped := Retryable(errors.New("inner"))
	if !IsRetryable(wrapped) {
		t.Error("wrapped error must classify as retryable")
	}
}
