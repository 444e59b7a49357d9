package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponses(t *testing.T) {
	t.Run("Should write the error envelope", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Error(rec, http.StatusNotFound, "theme not found")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, map[string]string{"error": "theme not found"}, body)
	})

	t.Run("Should omit the body for nil data", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Success(rec, http.StatusNoContent, nil)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
	})
}

func TestParseLimit(t *testing.T) {
	cases := map[string]int{
		"":           DefaultListLimit,
		"?limit=10":  10,
		"?limit=0":   DefaultListLimit,
		"?limit=-5":  DefaultListLimit,
		"?limit=x":   DefaultListLimit,
		"?limit=999": MaxListLimit,
	}
	for query, want := range cases {
		r := httptest.NewRequest(http.MethodGet, "/customers"+query, nil)
		assert.Equal(t, want, ParseLimit(r, DefaultListLimit, MaxListLimit), query)
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
	assert.Error(t, DecodeJSON(r, &v))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}`))
	require.NoError(t, DecodeJSON(r, &v))
	assert.Equal(t, "a", v.Name)
}
