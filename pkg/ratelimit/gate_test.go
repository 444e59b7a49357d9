package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryGate(t *testing.T) {
	ctx := context.Background()

	t.Run("Unknown key is not limited", func(t *testing.T) {
		g := NewMemoryGate()

		limited, err := g.IsLimited(ctx, "upload:a1", time.Minute)
		require.NoError(t, err)
		assert.False(t, limited)

		secs, err := g.RemainingSeconds(ctx, "upload:a1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 0, secs)
	})

	t.Run("Key is limited immediately after MarkUsed", func(t *testing.T) {
		for _, w := range []time.Duration{time.Millisecond, time.Second, time.Hour} {
			clock := newFakeClock()
			g := NewMemoryGate(WithClock(clock.Now))

			require.NoError(t, g.MarkUsed(ctx, "k"))
			limited, err := g.IsLimited(ctx, "k", w)
			require.NoError(t, err)
			assert.True(t, limited, "window %s", w)
		}
	})

	t.Run("Upload example with a 60 second window", func(t *testing.T) {
		clock := newFakeClock()
		g := NewMemoryGate(WithClock(clock.Now))
		window := 60 * time.Second

		require.NoError(t, g.MarkUsed(ctx, "upload:a1"))

		clock.Advance(30 * time.Second)
		limited, _ := g.IsLimited(ctx, "upload:a1", window)
		assert.True(t, limited)
		secs, _ := g.RemainingSeconds(ctx, "upload:a1", window)
		assert.Equal(t, 30, secs)

		clock.Advance(31 * time.Second)
		limited, _ = g.IsLimited(ctx, "upload:a1", window)
		assert.False(t, limited)
	})

	t.Run("Remaining seconds reaches zero once the window elapses", func(t *testing.T) {
		clock := newFakeClock()
		g := NewMemoryGate(WithClock(clock.Now))
		window := 10 * time.Second

		require.NoError(t, g.MarkUsed(ctx, "k"))

		clock.Advance(9500 * time.Millisecond)
		secs, _ := g.RemainingSeconds(ctx, "k", window)
		assert.Equal(t, 1, secs, "partial seconds round up")

		clock.Advance(500 * time.Millisecond)
		secs, _ = g.RemainingSeconds(ctx, "k", window)
		assert.Equal(t, 0, secs)

		clock.Advance(time.Hour)
		secs, _ = g.RemainingSeconds(ctx, "k", window)
		assert.Equal(t, 0, secs)
	})

	t.Run("MarkUsed overwrites the previous timestamp", func(t *testing.T) {
		clock := newFakeClock()
		g := NewMemoryGate(WithClock(clock.Now))

		require.NoError(t, g.MarkUsed(ctx, "k"))
		clock.Advance(50 * time.Second)
		require.NoError(t, g.MarkUsed(ctx, "k"))
		clock.Advance(50 * time.Second)

		limited, _ := g.IsLimited(ctx, "k", time.Minute)
		assert.True(t, limited)
		assert.Equal(t, 1, g.Len())
	})
}

func TestMemoryGateSweep(t *testing.T) {
	ctx := context.Background()

	t.Run("No sweep at or below the threshold", func(t *testing.T) {
		clock := newFakeClock()
		g := NewMemoryGate(WithClock(clock.Now), WithSweep(3, time.Minute))

		for i := 0; i < 3; i++ {
			require.NoError(t, g.MarkUsed(ctx, fmt.Sprintf("k%d", i)))
		}
		clock.Advance(time.Hour)
		assert.Equal(t, 3, g.Len())
	})

	t.Run("Sweep removes only stale entries once over the threshold", func(t *testing.T) {
		clock := newFakeClock()
		g := NewMemoryGate(WithClock(clock.Now), WithSweep(3, 2*time.Minute))

		require.NoError(t, g.MarkUsed(ctx, "old1"))
		require.NoError(t, g.MarkUsed(ctx, "old2"))
		clock.Advance(3 * time.Minute)
		require.NoError(t, g.MarkUsed(ctx, "fresh1"))
		clock.Advance(30 * time.Second)

		require.NoError(t, g.MarkUsed(ctx, "fresh2"))

		assert.Equal(t, 2, g.Len())
		limited, _ := g.IsLimited(ctx, "fresh1", time.Minute)
		assert.True(t, limited)
	})

	t.Run("Default sweep parameters", func(t *testing.T) {
		g := NewMemoryGate()
		assert.Equal(t, SweepThreshold, g.threshold)
		assert.Equal(t, SweepRetention, g.retention)
	})
}

func TestCheck(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	g := NewMemoryGate(WithClock(clock.Now))

	d, err := Check(ctx, g, Key("export", "agency-1"), 30*time.Second)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Zero(t, d.RetryAfter)

	require.NoError(t, g.MarkUsed(ctx, "export:agency-1"))
	clock.Advance(12 * time.Second)

	d, err = Check(ctx, g, Key("export", "agency-1"), 30*time.Second)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 18*time.Second, d.RetryAfter)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "upload:a1:tpl", Key("upload", "a1", "tpl"))
	assert.Equal(t, "export", Key("export"))
}

func TestMemoryGateConcurrentUse(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGate()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			_ = g.MarkUsed(ctx, key)
			_, _ = g.IsLimited(ctx, key, time.Second)
			_, _ = g.RemainingSeconds(ctx, key, time.Second)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, g.Len())
}
