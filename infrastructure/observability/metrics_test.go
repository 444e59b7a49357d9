package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanwallace9/agencytoolkit/pkg/autosave"
	"github.com/alanwallace9/agencytoolkit/pkg/ratelimit"
)

func TestInstrumentedGate(t *testing.T) {
	ctx := context.Background()
	c := NewCollector("test")
	g := NewInstrumentedGate(ratelimit.NewMemoryGate(), c)

	limited, err := g.IsLimited(ctx, "upload:a1:t1", time.Minute)
	require.NoError(t, err)
	assert.False(t, limited)

	require.NoError(t, g.MarkUsed(ctx, "upload:a1:t1"))
	limited, err = g.IsLimited(ctx, "upload:a1:t1", time.Minute)
	require.NoError(t, err)
	assert.True(t, limited)

	secs, err := g.RemainingSeconds(ctx, "upload:a1:t1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 60, secs)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.GateDecisions.WithLabelValues("upload", "allowed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.GateDecisions.WithLabelValues("upload", "limited")))
}

func TestCollectorRecorders(t *testing.T) {
	c := NewCollector("test")

	c.RecordOperation("customers.get", "success", 10*time.Millisecond)
	c.RecordOperation("customers.get", "error", time.Millisecond)
	c.RecordBreakerState("supabase", 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RepoOperations.WithLabelValues("customers.get", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.BreakerState.WithLabelValues("supabase")))

	observe := c.AutosaveObserver("tours")
	for _, s := range []autosave.Status{autosave.StatusSaving, autosave.StatusSaved, autosave.StatusIdle, autosave.StatusError} {
		observe(s)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(c.AutosaveOutcomes.WithLabelValues("tours", "saved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.AutosaveOutcomes.WithLabelValues("tours", "error")))
}

func TestMetricsMiddleware(t *testing.T) {
	c := NewCollector("test")
	r := chi.NewRouter()
	r.Use(MetricsMiddleware(c))
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/items/{id}", "418")))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "test_http_requests_total")
}
