// Package observability holds the Prometheus collector, OpenTelemetry
// tracing setup and the HTTP middleware that feeds them.
package observability

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alanwallace9/agencytoolkit/pkg/autosave"
)

// Collector holds all Prometheus metrics for the service. Each collector owns
// a private registry so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Gate and throttle decisions
	GateDecisions     *prometheus.CounterVec
	ThrottleDecisions *prometheus.CounterVec

	// Autosave outcomes per resource
	AutosaveOutcomes *prometheus.CounterVec

	// Repository metrics
	RepoOperations *prometheus.CounterVec
	RepoDuration   *prometheus.HistogramVec
	BreakerState   *prometheus.GaugeVec
}

// NewCollector creates a collector with the given namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		GateDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gate_decisions_total",
				Help:      "Cooldown gate decisions by action",
			},
			[]string{"action", "decision"},
		),
		ThrottleDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "throttle_decisions_total",
				Help:      "Public route throttle decisions",
			},
			[]string{"decision"},
		),
		AutosaveOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "autosave_outcomes_total",
				Help:      "Draft autosave results by resource",
			},
			[]string{"resource", "status"},
		),
		RepoOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "repository_operations_total",
				Help:      "Total number of repository operations",
			},
			[]string{"operation", "outcome"},
		),
		RepoDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "repository_operation_duration_seconds",
				Help:      "Repository operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"name"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.GateDecisions,
		c.ThrottleDecisions,
		c.AutosaveOutcomes,
		c.RepoOperations,
		c.RepoDuration,
		c.BreakerState,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry exposes the private registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordOperation records a guarded repository or blob store call.
func (c *Collector) RecordOperation(operation, outcome string, duration time.Duration) {
	c.RepoOperations.WithLabelValues(operation, outcome).Inc()
	c.RepoDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordBreakerState records a circuit breaker state change.
func (c *Collector) RecordBreakerState(name string, state int) {
	c.BreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordGate counts a gate decision. Only the action prefix of key is used
// as a label so tenant ids never become label values.
func (c *Collector) RecordGate(key string, limited bool) {
	decision := "allowed"
	if limited {
		decision = "limited"
	}
	c.GateDecisions.WithLabelValues(actionOf(key), decision).Inc()
}

// RecordThrottle counts a throttle decision.
func (c *Collector) RecordThrottle(allowed bool) {
	decision := "allowed"
	if !allowed {
		decision = "limited"
	}
	c.ThrottleDecisions.WithLabelValues(decision).Inc()
}

// AutosaveObserver returns a status observer that counts settled saves for
// resource.
func (c *Collector) AutosaveObserver(resource string) func(autosave.Status) {
	return func(s autosave.Status) {
		if s == autosave.StatusSaved || s == autosave.StatusError {
			c.AutosaveOutcomes.WithLabelValues(resource, s.String()).Inc()
		}
	}
}

func actionOf(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}
