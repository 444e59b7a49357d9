// Package messaging holds the event publishers used when no event bus is
// configured.
package messaging

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/alanwallace9/agencytoolkit/domain/events"
)

// LogPublisher writes events to the log instead of a bus.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a publisher that logs at debug level.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.Named("events")}
}

func (p *LogPublisher) Publish(ctx context.Context, domainEvents ...events.DomainEvent) error {
	for _, e := range domainEvents {
		p.logger.Debug("Domain event",
			zap.String("eventType", e.GetEventType()),
			zap.String("agency_id", e.GetAgencyID()),
			zap.String("aggregate_id", e.GetAggregateID()),
		)
	}
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (r *Recorder) Publish(ctx context.Context, domainEvents ...events.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, domainEvents...)
	return nil
}

// Types returns the event types published so far, in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.GetEventType()
	}
	return out
}
