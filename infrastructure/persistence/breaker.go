// Package persistence holds the cross-cutting wrappers around the tenant
// stores: a circuit breaker and the repository decorator that applies it.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
)

// Recorder receives operation outcomes and breaker state changes.
type Recorder interface {
	RecordOperation(operation, outcome string, duration time.Duration)
	RecordBreakerState(name string, state int)
}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(string, string, time.Duration) {}
func (nopRecorder) RecordBreakerState(string, int)                {}

// BreakerConfig holds configuration for circuit breaker
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns a default configuration for circuit breaker
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// Breaker guards calls to a remote store. Client errors such as not-found
// do not count as failures.
type Breaker struct {
	cb       *gobreaker.CircuitBreaker
	recorder Recorder
	logger   *zap.Logger
}

// NewBreaker creates a breaker. recorder may be nil.
func NewBreaker(config BreakerConfig, recorder Recorder, logger *zap.Logger) *Breaker {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Breaker{recorder: recorder, logger: logger}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			recorder.RecordBreakerState(name, int(to))
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			appErr := apperrors.GetAppError(err)
			return appErr != nil && appErr.HTTPStatus > 0 && appErr.HTTPStatus < 500
		},
	})
	return b
}

// Execute runs fn through the breaker. An open circuit is reported as an
// unavailable error.
func (b *Breaker) Execute(ctx context.Context, operation string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	outcome := "success"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "rejected"
		err = apperrors.NewUnavailableError(b.cb.Name()).WithCause(err)
	case err != nil:
		outcome = "error"
	}
	b.recorder.RecordOperation(operation, outcome, time.Since(start))
	return err
}

// State returns the current breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
