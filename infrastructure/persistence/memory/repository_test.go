package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanwallace9/agencytoolkit/application/ports"
	"github.com/alanwallace9/agencytoolkit/domain/core/entities"
	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
)

func newTour(id, agency string, published bool) *entities.Tour {
	return &entities.Tour{
		Base:      entities.Base{ID: id, AgencyID: agency, CreatedAt: time.Now()},
		Name:      "tour " + id,
		Published: published,
	}
}

func TestRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(entities.ResourceTours, func() *entities.Tour { return &entities.Tour{} })

	_, err := repo.Create(ctx, newTour("t1", "a1", false))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newTour("t2", "a1", true))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newTour("t3", "a2", true))
	require.NoError(t, err)

	t.Run("Should scope reads to the agency", func(t *testing.T) {
		_, err := repo.Get(ctx, "a1", "t3")
		assert.True(t, apperrors.IsNotFound(err))

		list, err := repo.List(ctx, "a1", nil, 10)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "t2", list[0].ID, "newest first")

		n, err := repo.Count(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("Should filter and limit", func(t *testing.T) {
		list, err := repo.List(ctx, "a1", ports.Filter{"published": "true"}, 10)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "t2", list[0].ID)

		list, err = repo.List(ctx, "a1", nil, 1)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("Should merge updates and ignore protected keys", func(t *testing.T) {
		updated, err := repo.Update(ctx, "a1", "t1", map[string]any{
			"name":      "Renamed",
			"agency_id": "a2",
			"id":        "hijack",
		})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Name)
		assert.Equal(t, "a1", updated.AgencyID)
		assert.Equal(t, "t1", updated.ID)
		assert.False(t, updated.UpdatedAt.IsZero())

		_, err = repo.Update(ctx, "a2", "t1", map[string]any{"name": "x"})
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("Should return copies", func(t *testing.T) {
		got, err := repo.Get(ctx, "a1", "t2")
		require.NoError(t, err)
		got.Name = "mutated"

		again, err := repo.Get(ctx, "a1", "t2")
		require.NoError(t, err)
		assert.Equal(t, "tour t2", again.Name)
	})

	t.Run("Should reject duplicates and delete within the tenant", func(t *testing.T) {
		_, err := repo.Create(ctx, newTour("t1", "a1", false))
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))

		assert.True(t, apperrors.IsNotFound(repo.Delete(ctx, "a2", "t1")))
		require.NoError(t, repo.Delete(ctx, "a1", "t1"))
		_, err = repo.Get(ctx, "a1", "t1")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestProofEventRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewProofEventRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"Ana", "Ben", "Cy"} {
		_, err := repo.Record(ctx, &entities.ProofEvent{
			ID: name, AgencyID: "a1", WidgetID: "w1", FirstName: name, Action: "signed up",
			OccurredAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	_, _ = repo.Record(ctx, &entities.ProofEvent{ID: "x", AgencyID: "a2", WidgetID: "w1", OccurredAt: base})

	recent, err := repo.Recent(ctx, "a1", "w1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "Cy", recent[0].FirstName)
	assert.Equal(t, "Ben", recent[1].FirstName)
}
