package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/alanwallace9/agencytoolkit/domain/core/entities"
	"github.com/alanwallace9/agencytoolkit/pkg/auth"
	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
	"github.com/alanwallace9/agencytoolkit/pkg/ratelimit"
)

type brokenThrottler struct{}

func (brokenThrottler) Allow(context.Context, string) (bool, error) {
	return false, errors.New("store down")
}
func (brokenThrottler) Reset(context.Context, string) error { return nil }

type tokenTable map[string]*entities.Agency

func (tt tokenTable) Authenticate(_ context.Context, token string) (*entities.Agency, error) {
	if a, ok := tt[token]; ok {
		return a, nil
	}
	return nil, apperrors.NewUnauthorizedError("invalid token")
}

var noContent = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "198.51.100.4:5123"
	assert.Equal(t, "198.51.100.4", ClientIP(r))
	r.RemoteAddr = "198.51.100.4"
	assert.Equal(t, "198.51.100.4", ClientIP(r))
}

func TestThrottle(t *testing.T) {
	errs := apperrors.NewErrorHandler(zap.NewNop())

	t.Run("rejects over the limit", func(t *testing.T) {
		var decisions []bool
		h := Throttle(ratelimit.NewIPThrottler(1), func(allowed bool) { decisions = append(decisions, allowed) }, errs, zap.NewNop())(noContent)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "60", rec.Header().Get("Retry-After"))
		assert.Equal(t, []bool{true, false}, decisions)
	})

	t.Run("fails open", func(t *testing.T) {
		h := Throttle(brokenThrottler{}, nil, errs, zap.NewNop())(noContent)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestAuthenticate(t *testing.T) {
	agency := &entities.Agency{ID: "a1", UserID: "u1", Plan: entities.PlanPro}
	errs := apperrors.NewErrorHandler(zap.NewNop())

	var seen *auth.UserContext
	h := Authenticate(tokenTable{"good": agency}, errs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.GetUserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	if assert.NotNil(t, seen) {
		assert.Equal(t, "a1", seen.AgencyID)
		assert.Equal(t, "pro", seen.Plan)
	}
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	h := Logger(zap.New(core))(noContent)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, zap.InfoLevel, entries[0].Level)
		assert.Equal(t, int64(http.StatusNoContent), entries[0].ContextMap()["status"])
		assert.Equal(t, zap.DebugLevel, entries[1].Level)
	}
}
