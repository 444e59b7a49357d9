package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alanwallace9/agencytoolkit/pkg/auth"
)

const secret = "local-dev-jwt-secret-at-least-32-characters"

func TestVerifier(t *testing.T) {
	validator, err := auth.NewJWTValidator(secret, auth.SupabaseAudience)
	require.NoError(t, err)
	v := NewVerifier(validator, nil, zap.NewNop())

	tok, err := auth.GenerateToken(secret, "user-42", "u@example.com", time.Hour)
	require.NoError(t, err)

	id, err := v.VerifyToken(context.Background(), "Bearer "+tok)
	require.NoError(t, err)
	assert.Equal(t, "user-42", id)

	_, err = v.VerifyToken(context.Background(), "")
	assert.ErrorIs(t, err, auth.ErrMissingToken)

	_, err = NewVerifier(nil, nil, zap.NewNop()).VerifyToken(context.Background(), tok)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	// An empty credential never reaches Supabase Auth.
	_, err = NewVerifier(nil, nil, zap.NewNop()).VerifyToken(context.Background(), "Bearer ")
	assert.ErrorIs(t, err, auth.ErrMissingToken)
}
