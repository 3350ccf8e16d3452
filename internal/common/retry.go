package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

var (
	// ErrRateLimit indicates that the API rate limit has been exceeded.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrMaxRetries indicates that all retry attempts have been exhausted.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// RetryableError wraps an error with retry-specific metadata.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryPolicy describes bounded exponential backoff with jitter.
// Sleep and Rand may be replaced in tests so no real time passes.
type RetryPolicy struct {
	Sleep       SleepFunc
	Rand        func() float64
	Logger      *slog.Logger
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      float64
}

// DefaultRetryPolicy returns the policy used for LLM calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    4 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.2,
	}
}

// ContextSleep is the production SleepFunc.
func ContextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 100 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	if p.Multiplier <= 0 {
		p.Multiplier = 2.0
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Jitter > 1 {
		p.Jitter = 1
	}
	if p.Sleep == nil {
		p.Sleep = ContextSleep
	}
	if p.Rand == nil {
		p.Rand = rand.Float64
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	return p
}

// Delay returns the backoff before the retry that follows attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	p = p.withDefaults()

	delay := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		delay *= p.Multiplier
		if delay >= float64(p.MaxDelay) {
			delay = float64(p.MaxDelay)
			break
		}
	}

	if p.Jitter > 0 {
		// spread uniformly over [1-jitter, 1+jitter]
		delay *= 1 + p.Jitter*(2*p.Rand()-1)
	}
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}

	return time.Duration(delay)
}

// Do runs operation until it succeeds, returns a non-retryable error, or
// the attempts are exhausted. It reports how many attempts were made.
func (p RetryPolicy) Do(ctx context.Context, operation func(ctx context.Context) error) (int, error) {
	p = p.withDefaults()

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := operation(ctx)
		if err == nil {
			return attempt, nil
		}

		if !IsRetryable(err) || ctx.Err() != nil {
			return attempt, err
		}

		if attempt == p.MaxAttempts {
			return attempt, fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, p.MaxAttempts, err)
		}

		delay := p.Delay(attempt)
		if errors.Is(err, ErrRateLimit) {
			delay = p.MaxDelay
		}

		p.Logger.Warn("operation failed, retrying",
			"attempt", attempt,
			"max_attempts", p.MaxAttempts,
			"delay", delay,
			"error", err)

		if sleepErr := p.Sleep(ctx, delay); sleepErr != nil {
			return attempt, sleepErr
		}
	}

	return p.MaxAttempts, ErrMaxRetries
}
