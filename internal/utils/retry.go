package utils

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	apperrors "github.com/socialchef/sizzle/internal/errors"
)

// RetryConfig controls WithRetry. Timeout bounds each attempt, not the whole
// sequence.
type RetryConfig struct {
	Name            string
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	Timeout         time.Duration
	RetryableErrors []string
}

type RetryableFunc[T any] func(ctx context.Context) (T, error)

// ImageRetryConfig is the policy for image generation and download. A
// non-positive maxAttempts means three.
func ImageRetryConfig(maxAttempts int) RetryConfig {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return RetryConfig{
		Name:          "image",
		MaxAttempts:   maxAttempts,
		InitialDelay:  2 * time.Second,
		MaxDelay:      20 * time.Second,
		BackoffFactor: 2.0,
		Timeout:       120 * time.Second,
		RetryableErrors: []string{
			"timeout",
			"deadline exceeded",
			"connection reset",
			"rate limit",
			"connection refused",
			"unexpected eof",
		},
	}
}

// Named returns a copy of c labelled for logs.
func (c RetryConfig) Named(name string) RetryConfig {
	c.Name = name
	return c
}

// Delay is the wait after the given failed attempt (1-based), before jitter.
func (c RetryConfig) Delay(attempt int) time.Duration {
	factor := c.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	d := time.Duration(float64(c.InitialDelay) * math.Pow(factor, float64(attempt-1)))
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// IsRetryableError reports whether err is worth another attempt. Typed
// application errors decide for themselves; anything else is matched
// case-insensitively against patterns.
func IsRetryableError(err error, patterns []string) bool {
	if err == nil {
		return false
	}
	if appErr, ok := apperrors.As(err); ok {
		return appErr.IsRetryable()
	}
	msg := strings.ToLower(err.Error())
	for _, p := range patterns {
		if strings.Contains(msg, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// WithRetry runs operation until it succeeds, fails with a non-retryable
// error, or MaxAttempts is reached. The last error is returned unchanged.
// Cancelling ctx during a backoff returns ctx.Err().
func WithRetry[T any](ctx context.Context, operation RetryableFunc[T], config RetryConfig) (T, error) {
	var zero T
	attempts := max(config.MaxAttempts, 1)

	for attempt := 1; ; attempt++ {
		result, err := runAttempt(ctx, operation, config.Timeout)
		if err == nil {
			return result, nil
		}
		if attempt >= attempts || !IsRetryableError(err, config.RetryableErrors) {
			return zero, err
		}

		delay := withJitter(config.Delay(attempt))
		slog.Warn("Retrying operation",
			"operation", config.Name,
			"attempt", attempt,
			"max_attempts", attempts,
			"delay", delay,
			"error", err,
		)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		}
	}
}

func runAttempt[T any](ctx context.Context, operation RetryableFunc[T], timeout time.Duration) (T, error) {
	if timeout <= 0 {
		return operation(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return operation(attemptCtx)
}

// withJitter adds up to 10% to d.
func withJitter(d time.Duration) time.Duration {
	if spread := int64(d) / 10; spread > 0 {
		d += time.Duration(rand.Int64N(spread))
	}
	return d
}
