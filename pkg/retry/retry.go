package retry

import (
	"context"
	"errors"
	"time"

	"github.com/jpillora/backoff"
	"github.com/rs/zerolog"
)

// retryableError marks a failure as transient so Do will re-run the
// operation. Anything not wrapped this way is treated as fatal and aborts
// immediately.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Retryable wraps err so the executor knows the operation may succeed on a
// later attempt (network failures, timeouts, ledger "try again" responses).
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// IsRetryable reports whether err (anywhere in its chain) was marked with
// Retryable.
func IsRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

type Policy struct {
	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// Do invokes op up to p.MaxAttempts times, sleeping base * 2^(attempt-1)
// between attempts, capped at BackoffMax. Fatal errors abort without further
// attempts. The last error is returned unwrapped of any executor framing so
// callers can classify the cause with errors.Is.
func Do(ctx context.Context, logger zerolog.Logger, p Policy, name string, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}

	delay := &backoff.Backoff{
		Min:    p.BackoffBase,
		Max:    p.BackoffMax,
		Factor: 2,
		Jitter: false,
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			logger.Error().
				Err(lastErr).
				Str("operation", name).
				Int("attempt", attempt).
				Msg("Operation failed with non-retryable error")
			return lastErr
		}
		if attempt == attempts {
			break
		}

		wait := delay.Duration()
		logger.Warn().
			Err(lastErr).
			Str("operation", name).
			Int("attempt", attempt).
			Dur("next_attempt_in", wait).
			Msg("Operation failed, retrying")

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	logger.Error().
		Err(lastErr).
		Str("operation", name).
		Int("attempts", attempts).
		Msg("Operation failed after exhausting retries")
	return lastErr
}
