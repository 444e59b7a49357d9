package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alanwallace9/agencytoolkit/domain/core/entities"
	"github.com/alanwallace9/agencytoolkit/infrastructure/persistence/memory"
	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
)

func TestAgencyService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("Should resolve a valid token to its agency", func(t *testing.T) {
		agency, err := f.agencies.Authenticate(ctx, "paid-token")
		require.NoError(t, err)
		assert.Equal(t, f.paid.ID, agency.ID)
		assert.Equal(t, entities.PlanPro, TenantOf(agency).Plan)
	})

	t.Run("Should report every failure as unauthorized", func(t *testing.T) {
		for _, token := range []string{"", "forged"} {
			_, err := f.agencies.Authenticate(ctx, token)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized), token)
		}

		orphan := NewAgencyService(memory.NewAgencyRepository(), staticVerifier{"t": "nobody"}, zap.NewNop())
		_, err := orphan.Authenticate(ctx, "t")
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
	})

	t.Run("Should resolve embed keys", func(t *testing.T) {
		agency, err := f.agencies.ByEmbedKey(ctx, f.free.EmbedKey)
		require.NoError(t, err)
		assert.Equal(t, f.free.ID, agency.ID)

		_, err = f.agencies.ByEmbedKey(ctx, "unknown")
		assert.True(t, apperrors.IsNotFound(err))
		_, err = f.agencies.ByEmbedKey(ctx, " ")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("Should validate provisioning input", func(t *testing.T) {
		_, err := f.agencies.Provision(ctx, "u", "", entities.PlanFree)
		assert.True(t, apperrors.IsValidation(err))
		_, err = f.agencies.Provision(ctx, "u", "Name", entities.Plan("gold"))
		assert.True(t, apperrors.IsValidation(err))
		assert.NotEqual(t, f.free.EmbedKey, f.paid.EmbedKey)
	})
}
