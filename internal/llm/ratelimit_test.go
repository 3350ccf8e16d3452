package llm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t  time.Time
	mu sync.Mutex
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLimiter(perMinute int) (*rateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := newRateLimiter(perMinute)
	rl.now = clock.now
	rl.lastRefill = clock.now()
	rl.poll = time.Millisecond
	return rl, clock
}

func TestRateLimiter(t *testing.T) {
	t.Run("burst up to capacity", func(t *testing.T) {
		rl, _ := newTestLimiter(10)

		for i := 0; i < 10; i++ {
			assert.True(t, rl.tryAcquire(), "token %d", i)
		}
		assert.False(t, rl.tryAcquire())
	})

	t.Run("refills over time", func(t *testing.T) {
		rl, clock := newTestLimiter(60)
		for i := 0; i < 60; i++ {
			require.True(t, rl.tryAcquire())
		}
		assert.False(t, rl.tryAcquire())

		clock.advance(time.Second)
		assert.True(t, rl.tryAcquire())
		assert.False(t, rl.tryAcquire())
	})

	t.Run("never exceeds capacity", func(t *testing.T) {
		rl, clock := newTestLimiter(5)
		clock.advance(time.Hour)
		require.True(t, rl.tryAcquire())
		assert.Equal(t, 4, rl.available())
	})

	t.Run("default rate for non-positive input", func(t *testing.T) {
		rl := newRateLimiter(0)
		assert.Equal(t, defaultRequestsPerMinute, rl.available())
	})

	t.Run("wait returns once refilled", func(t *testing.T) {
		rl, clock := newTestLimiter(1)
		require.NoError(t, rl.wait(context.Background()))

		done := make(chan error, 1)
		go func() {
			done <- rl.wait(context.Background())
		}()

		clock.advance(time.Minute)
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("wait did not return after refill")
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		rl, _ := newTestLimiter(1)
		require.NoError(t, rl.wait(context.Background()))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- rl.wait(ctx)
		}()
		cancel()

		select {
		case err := <-done:
			require.Error(t, err)
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(5 * time.Second):
			t.Fatal("wait ignored cancellation")
		}
	})

	t.Run("concurrent acquisition", func(t *testing.T) {
		rl, _ := newTestLimiter(20)

		var wg sync.WaitGroup
		var mu sync.Mutex
		granted := 0
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if rl.tryAcquire() {
					mu.Lock()
					granted++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 20, granted)
	})
}
