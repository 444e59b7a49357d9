package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// pruneThreshold is the key count above which Allow prunes idle keys inline.
const pruneThreshold = 10000

// Throttler limits how many requests a key may make.
type Throttler interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// SlidingWindowLimiter implements sliding window rate limiting
type SlidingWindowLimiter struct {
	mu         sync.RWMutex
	windows    map[string]*window
	limit      int
	windowSize time.Duration
	now        Clock
}

type window struct {
	requests []time.Time
	mu       sync.Mutex
}

// NewSlidingWindowLimiter creates a new sliding window rate limiter
func NewSlidingWindowLimiter(limit int, windowSize time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		windows:    make(map[string]*window),
		limit:      limit,
		windowSize: windowSize,
		now:        time.Now,
	}
}

// Allow checks if a request is allowed
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	now := l.now()
	w, exists := l.windows[key]
	if !exists {
		if len(l.windows) >= pruneThreshold {
			l.prune(now)
		}
		w = &window{}
		l.windows[key] = w
	}
	limit, size := l.limit, l.windowSize
	l.mu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()

	windowStart := now.Add(-size)

	// Drop requests outside the window, reusing the backing array.
	valid := w.requests[:0]
	for _, reqTime := range w.requests {
		if reqTime.After(windowStart) {
			valid = append(valid, reqTime)
		}
	}
	w.requests = valid

	if len(w.requests) >= limit {
		return false, nil
	}

	w.requests = append(w.requests, now)
	return true, nil
}

// Reset resets the rate limit for a key
func (l *SlidingWindowLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.windows, key)
	return nil
}

// SetLimit changes the limit and window size for subsequent requests.
func (l *SlidingWindowLimiter) SetLimit(limit int, windowSize time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.limit = limit
	l.windowSize = windowSize
}

// Window returns the current window size.
func (l *SlidingWindowLimiter) Window() time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.windowSize
}

// Prune removes keys whose requests have all left the window.
func (l *SlidingWindowLimiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prune(l.now())
}

// prune must be called with l.mu held.
func (l *SlidingWindowLimiter) prune(now time.Time) int {
	windowStart := now.Add(-l.windowSize)
	removed := 0
	for key, w := range l.windows {
		w.mu.Lock()
		stale := len(w.requests) == 0 || !w.requests[len(w.requests)-1].After(windowStart)
		w.mu.Unlock()
		if stale {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// IPThrottler wraps a limiter for IP-based limiting
type IPThrottler struct {
	*SlidingWindowLimiter
}

// NewIPThrottler creates a new IP-based limiter
func NewIPThrottler(requestsPerMinute int) *IPThrottler {
	return &IPThrottler{
		SlidingWindowLimiter: NewSlidingWindowLimiter(requestsPerMinute, time.Minute),
	}
}

// Allow checks if a request from an IP is allowed
func (l *IPThrottler) Allow(ctx context.Context, ip string) (bool, error) {
	return l.SlidingWindowLimiter.Allow(ctx, fmt.Sprintf("ip:%s", ip))
}

// Reset clears the history for an IP.
func (l *IPThrottler) Reset(ctx context.Context, ip string) error {
	return l.SlidingWindowLimiter.Reset(ctx, fmt.Sprintf("ip:%s", ip))
}
