/*
Package retry provides retry logic with exponential backoff.
*/
package retry

import (
	"context"
	"errors"
	"math"
	"time"
)

// Config contains the configuration for the retry mechanism.
type Config struct {
	MaxAttempts  int           // Maximum number of attempts (including the first).
	InitialDelay time.Duration // Delay before the first retry.
	MaxDelay     time.Duration // Maximum delay between retries (0 means uncapped).
	Multiplier   float64       // Multiplier for the exponential backoff.
}

// DefaultConfig returns a default retry configuration.
//
// Returns:
//   - Config: The configuration structure initialized with standard values.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// PermanentError wraps an error to indicate it must not be retried.
type PermanentError struct {
	Err error
}

// Error returns the message of the wrapped error.
func (e *PermanentError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps an error to indicate it must not be retried.
//
// Parameters:
//   - err: The error to wrap.
//
// Returns:
//   - error: A PermanentError, or nil if err is nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent checks whether an error is marked as permanent.
func IsPermanent(err error) bool {
	var permanentErr *PermanentError
	return errors.As(err, &permanentErr)
}

// Result contains the outcome of a retried operation.
type Result struct {
	Attempts int           // Number of attempts performed.
	Duration time.Duration // Total duration across all attempts.
	Err      error         // Final error (nil on success).
}

// Do executes the given function with retry logic. The function is retried
// until it succeeds, returns a permanent error, or the maximum number of
// attempts is reached. The delay between attempts doubles (per the configured
// multiplier) and is deterministic, so callers can reason about exact retry
// counts and timing.
//
// Parameters:
//   - ctx: The context for cancellation.
//   - cfg: The retry configuration.
//   - fn: The function to execute, returning an error.
//
// Returns:
//   - Result: The result with the attempt count, duration, and final error.
func Do(ctx context.Context, cfg Config, fn func() error) Result {
	return DoWithCallback(ctx, cfg, fn, nil)
}

// DoWithCallback is like Do but invokes the provided callback after each
// failed attempt that will be retried. This is useful for logging or metrics.
//
// Parameters:
//   - ctx: The context for cancellation.
//   - cfg: The retry configuration.
//   - fn: The function to execute.
//   - onRetry: Callback invoked before each retry sleep. Receives the attempt
//     number, the error, and the upcoming delay. May be nil.
//
// Returns:
//   - Result: The result of the operation.
func DoWithCallback(ctx context.Context, cfg Config, fn func() error, onRetry func(attempt int, err error, nextDelay time.Duration)) Result {
	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		// Check for context cancellation
		select {
		case <-ctx.Done():
			return Result{
				Attempts: attempt,
				Duration: time.Since(start),
				Err:      ctx.Err(),
			}
		default:
		}

		err := fn()
		if err == nil {
			return Result{
				Attempts: attempt,
				Duration: time.Since(start),
				Err:      nil,
			}
		}

		lastErr = err

		// Do not retry permanent errors
		if IsPermanent(err) {
			return Result{
				Attempts: attempt,
				Duration: time.Since(start),
				Err:      err,
			}
		}

		// Do not sleep after the last attempt
		if attempt < cfg.MaxAttempts {
			delay := calculateDelay(attempt, cfg)
			if onRetry != nil {
				onRetry(attempt, err, delay)
			}
			select {
			case <-ctx.Done():
				return Result{
					Attempts: attempt,
					Duration: time.Since(start),
					Err:      ctx.Err(),
				}
			case <-time.After(delay):
			}
		}
	}

	return Result{
		Attempts: cfg.MaxAttempts,
		Duration: time.Since(start),
		Err:      lastErr,
	}
}

// calculateDelay computes the delay for a given attempt using exponential
// backoff, capped at MaxDelay when set.
func calculateDelay(attempt int, cfg Config) time.Duration {
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))

	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	return time.Duration(delay)
}
