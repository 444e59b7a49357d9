// Package ratelimit provides the cooldown gate used to smooth bursts of
// tenant actions and the sliding-window throttle used on public routes.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

const (
	// SweepThreshold is the number of entries above which MarkUsed sweeps
	// stale entries out of the in-memory gate.
	SweepThreshold = 10000

	// SweepRetention is the age after which an entry is considered stale.
	SweepRetention = 2 * time.Minute
)

// Gate answers "is this key still inside its cooldown window?".
//
// Keys are caller supplied, conventionally "<action>:<tenant>:<subject>".
type Gate interface {
	IsLimited(ctx context.Context, key string, window time.Duration) (bool, error)
	MarkUsed(ctx context.Context, key string) error
	RemainingSeconds(ctx context.Context, key string, window time.Duration) (int, error)
}

// Clock returns the current time.
type Clock func() time.Time

// MemoryGate is a process-local Gate. State is lost on restart and is not
// shared between instances.
type MemoryGate struct {
	mu        sync.Mutex
	entries   map[string]time.Time
	now       Clock
	threshold int
	retention time.Duration
}

// GateOption configures a MemoryGate.
type GateOption func(*MemoryGate)

// WithClock overrides the time source.
func WithClock(now Clock) GateOption {
	return func(g *MemoryGate) {
		if now != nil {
			g.now = now
		}
	}
}

// WithSweep overrides the sweep threshold and retention.
func WithSweep(threshold int, retention time.Duration) GateOption {
	return func(g *MemoryGate) {
		if threshold > 0 {
			g.threshold = threshold
		}
		if retention > 0 {
			g.retention = retention
		}
	}
}

// NewMemoryGate creates an empty in-memory gate.
func NewMemoryGate(opts ...GateOption) *MemoryGate {
	g := &MemoryGate{
		entries:   make(map[string]time.Time),
		now:       time.Now,
		threshold: SweepThreshold,
		retention: SweepRetention,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// IsLimited reports whether key was used less than window ago.
func (g *MemoryGate) IsLimited(_ context.Context, key string, window time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	last, ok := g.entries[key]
	if !ok {
		return false, nil
	}
	return g.now().Sub(last) < window, nil
}

// MarkUsed records now as the last action time for key.
func (g *MemoryGate) MarkUsed(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.entries[key] = now

	if len(g.entries) > g.threshold {
		g.sweep(now)
	}
	return nil
}

// RemainingSeconds returns the whole seconds left in the cooldown, rounded up.
func (g *MemoryGate) RemainingSeconds(_ context.Context, key string, window time.Duration) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	last, ok := g.entries[key]
	if !ok {
		return 0, nil
	}
	return remainingSeconds(g.now().Sub(last), window), nil
}

// Len returns the number of tracked keys.
func (g *MemoryGate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// sweep must be called with g.mu held.
func (g *MemoryGate) sweep(now time.Time) {
	for key, last := range g.entries {
		if now.Sub(last) > g.retention {
			delete(g.entries, key)
		}
	}
}

func remainingSeconds(elapsed, window time.Duration) int {
	left := window - elapsed
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

// Key joins gate key parts with ':'.
func Key(action string, parts ...string) string {
	key := action
	for _, p := range parts {
		key += ":" + p
	}
	return key
}
