package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestErrorHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/themes/1", nil)

	t.Run("Should map client errors to their status and message", func(t *testing.T) {
		cases := []struct {
			err    error
			status int
			msg    string
		}{
			{NewValidationError("name is required"), http.StatusBadRequest, "name is required"},
			{NewUnauthorizedError(""), http.StatusUnauthorized, "unauthorized"},
			{NewForbiddenError("upgrade to publish"), http.StatusForbidden, "upgrade to publish"},
			{NewNotFoundError("theme"), http.StatusNotFound, "theme not found"},
		}
		for _, tc := range cases {
			rec := httptest.NewRecorder()
			NewErrorHandler(zap.NewNop()).Handle(rec, req, tc.err)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.msg, decodeError(t, rec))
		}
	})

	t.Run("Should hide server error details and log the cause", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		rec := httptest.NewRecorder()
		cause := fmt.Errorf("relation \"themes\" does not exist")

		NewErrorHandler(zap.New(core)).Handle(rec, req, NewDatabaseError("get", cause))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, InternalMessage, decodeError(t, rec))
		require.Equal(t, 1, logs.Len())
		assert.Contains(t, logs.All()[0].ContextMap()["error"], "does not exist")
	})

	t.Run("Should treat plain errors as internal", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewErrorHandler(nil).Handle(rec, req, fmt.Errorf("boom"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, InternalMessage, decodeError(t, rec))
	})

	t.Run("Should set Retry-After on rate limit errors", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewErrorHandler(zap.NewNop()).Handle(rec, req, NewRateLimitError("upload", 41500*time.Millisecond))

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "42", rec.Header().Get("Retry-After"))
	})

	t.Run("Should recover panics into a 500", func(t *testing.T) {
		h := NewErrorHandler(zap.NewNop()).Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("nil map")
		}))
		rec := httptest.NewRecorder()

		assert.NotPanics(t, func() { h.ServeHTTP(rec, req) })
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, InternalMessage, decodeError(t, rec))
	})
}

func TestWrap(t *testing.T) {
	base := NewNotFoundError("tour")
	wrapped := Wrap(base, "open draft")

	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, "tour not found", base.Message, "original is not mutated")
	assert.Nil(t, Wrap(nil, "noop"))
	assert.True(t, IsType(Wrap(fmt.Errorf("x"), "y"), ErrorTypeInternal))
}
