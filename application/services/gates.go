package services

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
	"github.com/alanwallace9/agencytoolkit/pkg/ratelimit"
)

// Gate window defaults.
const (
	DefaultUploadWindow = 60 * time.Second
	DefaultProofWindow  = 5 * time.Second
	DefaultExportWindow = 30 * time.Second
)

// cooldown applies one gated action. The window can be changed at runtime.
type cooldown struct {
	action string
	gate   ratelimit.Gate
	window atomic.Int64
	logger *zap.Logger
}

func newCooldown(action string, gate ratelimit.Gate, window time.Duration, logger *zap.Logger) *cooldown {
	c := &cooldown{action: action, gate: gate, logger: logger}
	c.setWindow(window)
	return c
}

func (c *cooldown) setWindow(d time.Duration) {
	if d > 0 {
		c.window.Store(int64(d))
	}
}

func (c *cooldown) Window() time.Duration {
	return time.Duration(c.window.Load())
}

// check returns a rate limit error while key is cooling down. Gate store
// errors are logged and the action is allowed.
func (c *cooldown) check(ctx context.Context, key string) error {
	decision, err := ratelimit.Check(ctx, c.gate, key, c.Window())
	if err != nil {
		c.logger.Warn("Rate gate unavailable", zap.String("key", key), zap.Error(err))
	}
	if !decision.Allowed {
		return apperrors.NewRateLimitError(c.action, decision.RetryAfter)
	}
	return nil
}

// mark starts the cooldown for key after the action succeeded.
func (c *cooldown) mark(ctx context.Context, key string) {
	if err := c.gate.MarkUsed(ctx, key); err != nil {
		c.logger.Warn("Failed to mark rate gate", zap.String("key", key), zap.Error(err))
	}
}
