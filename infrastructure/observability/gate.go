package observability

import (
	"context"
	"time"

	"github.com/alanwallace9/agencytoolkit/pkg/ratelimit"
)

// InstrumentedGate counts the decisions of the wrapped gate.
type InstrumentedGate struct {
	inner     ratelimit.Gate
	collector *Collector
}

// NewInstrumentedGate wraps inner.
func NewInstrumentedGate(inner ratelimit.Gate, collector *Collector) *InstrumentedGate {
	return &InstrumentedGate{inner: inner, collector: collector}
}

func (g *InstrumentedGate) IsLimited(ctx context.Context, key string, window time.Duration) (bool, error) {
	limited, err := g.inner.IsLimited(ctx, key, window)
	if err == nil {
		g.collector.RecordGate(key, limited)
	}
	return limited, err
}

func (g *InstrumentedGate) MarkUsed(ctx context.Context, key string) error {
	return g.inner.MarkUsed(ctx, key)
}

func (g *InstrumentedGate) RemainingSeconds(ctx context.Context, key string, window time.Duration) (int, error) {
	return g.inner.RemainingSeconds(ctx, key, window)
}
