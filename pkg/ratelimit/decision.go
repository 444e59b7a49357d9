package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of a gate check.
type Decision struct {
	Allowed bool
	// RetryAfter is zero when Allowed.
	RetryAfter time.Duration
}

// Check consults g without marking the key. Callers mark the key with
// MarkUsed once the gated action has succeeded.
func Check(ctx context.Context, g Gate, key string, window time.Duration) (Decision, error) {
	limited, err := g.IsLimited(ctx, key, window)
	if err != nil {
		return Decision{Allowed: true}, err
	}
	if !limited {
		return Decision{Allowed: true}, nil
	}

	secs, err := g.RemainingSeconds(ctx, key, window)
	if err != nil {
		return Decision{Allowed: false, RetryAfter: window}, err
	}
	return Decision{Allowed: false, RetryAfter: time.Duration(secs) * time.Second}, nil
}
