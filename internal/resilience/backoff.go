// Package resilience provides bounded retry with exponential backoff.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// BackoffConfig holds configuration for exponential backoff retry logic.
type BackoffConfig struct {
	// MaxAttempts is the total number of calls, including the first one.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	RetryOnFunc func(error) bool
}

const (
	// DefaultMaxAttempts is the default total number of attempts.
	DefaultMaxAttempts = 3
	// DefaultMultiplier doubles the delay after every failed attempt.
	DefaultMultiplier = 2.0
	// DefaultMaxDelay caps a single wait.
	DefaultMaxDelay = 30 * time.Second
)

// DefaultBackoffConfig returns 3 attempts, 1s base delay, doubling per retry.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   time.Second,
		MaxDelay:    DefaultMaxDelay,
		Multiplier:  DefaultMultiplier,
		RetryOnFunc: DefaultRetryOnFunc,
	}
}

// DefaultRetryOnFunc retries everything except context cancellation.
func DefaultRetryOnFunc(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Delay returns the wait after the given zero-based failed attempt.
func (c BackoffConfig) Delay(attempt int) time.Duration {
	mult := c.Multiplier
	if mult <= 0 {
		mult = DefaultMultiplier
	}
	delay := time.Duration(float64(c.BaseDelay) * math.Pow(mult, float64(attempt)))
	if c.MaxDelay > 0 && delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// RetryFunc is a function that can be retried with exponential backoff.
type RetryFunc func(ctx context.Context, attempt int) error

// WithExponentialBackoff calls fn until it succeeds, returns a non-retryable error,
// or MaxAttempts is exhausted. The last observed error is wrapped in the result.
func WithExponentialBackoff(
	ctx context.Context, logger *zap.Logger, op string, config BackoffConfig, fn RetryFunc,
) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	attempts := config.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	retryOn := config.RetryOnFunc
	if retryOn == nil {
		retryOn = DefaultRetryOnFunc
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			if attempt > 0 {
				logger.Info("Operation succeeded after retry",
					zap.String("op", op),
					zap.Int("attempt", attempt+1))
			}
			return nil
		}
		lastErr = err

		if !retryOn(err) {
			logger.Debug("Error is not retryable, stopping attempts",
				zap.String("op", op),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			return err
		}

		if attempt == attempts-1 {
			break
		}

		delay := config.Delay(attempt)
		logger.Warn("Retrying after delay",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", attempts),
			zap.Duration("delay", delay),
			zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-timer.C:
		}
	}

	logger.Error("All retry attempts exhausted",
		zap.String("op", op),
		zap.Int("total_attempts", attempts),
		zap.Error(lastErr))

	return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, lastErr)
}
