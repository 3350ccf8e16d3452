package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const defaultRequestsPerMinute = 60

// rateLimiter is a token bucket refilled continuously at requestsPerMinute.
// Refill is computed on demand, so there is no background goroutine.
type rateLimiter struct {
	lastRefill time.Time
	now        func() time.Time
	poll       time.Duration
	tokens     float64
	capacity   float64
	perSecond  float64
	mu         sync.Mutex
}

func newRateLimiter(requestsPerMinute int) *rateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = defaultRequestsPerMinute
	}

	rl := &rateLimiter{
		now:       time.Now,
		poll:      100 * time.Millisecond,
		tokens:    float64(requestsPerMinute),
		capacity:  float64(requestsPerMinute),
		perSecond: float64(requestsPerMinute) / 60,
	}
	rl.lastRefill = rl.now()
	return rl
}

// wait blocks until a token is available or the context is done.
func (rl *rateLimiter) wait(ctx context.Context) error {
	if rl.tryAcquire() {
		return nil
	}

	ticker := time.NewTicker(rl.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("rate limiter canceled: %w", ctx.Err())
		case <-ticker.C:
			if rl.tryAcquire() {
				return nil
			}
		}
	}
}

// tryAcquire takes a token without blocking.
func (rl *rateLimiter) tryAcquire() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if elapsed := now.Sub(rl.lastRefill); elapsed > 0 {
		rl.tokens = min(rl.capacity, rl.tokens+elapsed.Seconds()*rl.perSecond)
		rl.lastRefill = now
	}

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// available reports whole tokens left, for tests and diagnostics.
func (rl *rateLimiter) available() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return int(rl.tokens)
}
