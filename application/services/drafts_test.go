package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alanwallace9/agencytoolkit/domain/core/entities"
	"github.com/alanwallace9/agencytoolkit/pkg/autosave"
	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
)

func newDraftService(f *fixture, debounce time.Duration) *DraftService {
	s := NewDraftService(map[entities.Resource]DraftEditor{
		entities.ResourceThemes:     f.themes,
		entities.ResourceTours:      f.tours,
		entities.ResourceChecklists: f.checklists,
		entities.ResourceWidgets:    f.widgets,
	}, DraftConfig{Debounce: debounce, IdleTimeout: time.Minute, SweepInterval: time.Hour}, zap.NewNop())
	s.now = f.clock.Now
	return s
}

func TestDraftServiceAutosave(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	drafts := newDraftService(f, 20*time.Millisecond)
	defer drafts.Shutdown(ctx)

	tour, err := f.tours.Create(ctx, f.paidT, &entities.Tour{Name: "Welcome"})
	require.NoError(t, err)

	st, err := drafts.Open(ctx, f.paidT, entities.ResourceTours, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, autosave.StatusIdle, st.Status)
	assert.False(t, st.Dirty)
	assert.Nil(t, st.LastSavedAt)

	doc, err := f.tours.Fields(ctx, f.paidT, tour.ID)
	require.NoError(t, err)
	doc["name"] = "Welcome aboard"
	doc["id"] = "ignored"

	st, err = drafts.Update(ctx, f.paidT, entities.ResourceTours, tour.ID, doc)
	require.NoError(t, err)
	assert.True(t, st.Dirty)

	assert.Eventually(t, func() bool {
		st, err := drafts.Status(ctx, f.paidT, entities.ResourceTours, tour.ID)
		return err == nil && st.Status == autosave.StatusSaved
	}, 2*time.Second, 5*time.Millisecond)

	got, err := f.tours.Get(ctx, f.paidT, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, "Welcome aboard", got.Name)
	assert.Equal(t, tour.ID, got.ID)
	assert.Contains(t, f.events.Types(), "draft.saved")

	st, err = drafts.Status(ctx, f.paidT, entities.ResourceTours, tour.ID)
	require.NoError(t, err)
	require.NotNil(t, st.LastSavedAt)
	assert.Equal(t, f.clock.Now(), *st.LastSavedAt)
}

func TestDraftServiceFlushAndErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	drafts := newDraftService(f, time.Hour)
	defer drafts.Shutdown(ctx)

	w, err := f.widgets.Create(ctx, f.freeT, &entities.Widget{Name: "W"})
	require.NoError(t, err)

	t.Run("Should save on flush without waiting for the debounce", func(t *testing.T) {
		doc, err := f.widgets.Fields(ctx, f.freeT, w.ID)
		require.NoError(t, err)
		doc["display_seconds"] = 9

		_, err = drafts.Update(ctx, f.freeT, entities.ResourceWidgets, w.ID, doc)
		require.NoError(t, err)
		st, err := drafts.Flush(ctx, f.freeT, entities.ResourceWidgets, w.ID)
		require.NoError(t, err)
		assert.Equal(t, autosave.StatusSaved, st.Status)

		got, err := f.widgets.Get(ctx, f.freeT, w.ID)
		require.NoError(t, err)
		assert.Equal(t, 9, got.DisplaySeconds)
	})

	t.Run("Should report a plan violation as a failed save", func(t *testing.T) {
		doc, err := f.widgets.Fields(ctx, f.freeT, w.ID)
		require.NoError(t, err)
		doc["active"] = true

		_, err = drafts.Update(ctx, f.freeT, entities.ResourceWidgets, w.ID, doc)
		require.NoError(t, err)
		st, err := drafts.Flush(ctx, f.freeT, entities.ResourceWidgets, w.ID)
		require.NoError(t, err)
		assert.Equal(t, autosave.StatusError, st.Status)

		got, err := f.widgets.Get(ctx, f.freeT, w.ID)
		require.NoError(t, err)
		assert.False(t, got.Active)
	})

	t.Run("Should reject resources that are not draftable", func(t *testing.T) {
		c, err := f.customers.Create(ctx, f.freeT, &entities.Customer{Name: "c"})
		require.NoError(t, err)
		_, err = drafts.Open(ctx, f.freeT, entities.ResourceCustomers, c.ID)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("Should not open sessions on foreign rows", func(t *testing.T) {
		_, err := drafts.Open(ctx, f.paidT, entities.ResourceWidgets, w.ID)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestDraftServiceClose(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	drafts := newDraftService(f, 30*time.Millisecond)
	defer drafts.Shutdown(ctx)

	theme, err := f.themes.Create(ctx, f.paidT, &entities.Theme{Name: "Brand"})
	require.NoError(t, err)

	_, err = drafts.Update(ctx, f.paidT, entities.ResourceThemes, theme.ID, map[string]any{"name": "Unsaved", "settings": nil, "is_default": false})
	require.NoError(t, err)
	require.NoError(t, drafts.Close(ctx, f.paidT, entities.ResourceThemes, theme.ID))

	time.Sleep(100 * time.Millisecond)
	got, err := f.themes.Get(ctx, f.paidT, theme.ID)
	require.NoError(t, err)
	assert.Equal(t, "Brand", got.Name, "closing drops the pending save")

	_, err = drafts.Status(ctx, f.paidT, entities.ResourceThemes, theme.ID)
	assert.True(t, apperrors.IsNotFound(err))
	assert.True(t, apperrors.IsNotFound(drafts.Close(ctx, f.paidT, entities.ResourceThemes, theme.ID)))
}

func TestDraftServiceIdleSweep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	drafts := newDraftService(f, time.Hour)
	defer drafts.Shutdown(ctx)

	a, err := f.checklists.Create(ctx, f.paidT, &entities.Checklist{Name: "A"})
	require.NoError(t, err)
	b, err := f.checklists.Create(ctx, f.paidT, &entities.Checklist{Name: "B"})
	require.NoError(t, err)

	_, err = drafts.Update(ctx, f.paidT, entities.ResourceChecklists, a.ID, map[string]any{"name": "A edited", "items": []any{}, "published": false})
	require.NoError(t, err)

	f.clock.Advance(50 * time.Second)
	_, err = drafts.Open(ctx, f.paidT, entities.ResourceChecklists, b.ID)
	require.NoError(t, err)

	f.clock.Advance(20 * time.Second)
	assert.Equal(t, 1, drafts.sweepIdle(ctx))
	assert.Equal(t, 1, drafts.Len())

	got, err := f.checklists.Get(ctx, f.paidT, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "A edited", got.Name, "idle sessions are flushed before closing")
}

func TestDraftServiceShutdown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	drafts := newDraftService(f, time.Hour)
	drafts.Start()
	drafts.Start()

	tour, err := f.tours.Create(ctx, f.paidT, &entities.Tour{Name: "Welcome"})
	require.NoError(t, err)
	_, err = drafts.Update(ctx, f.paidT, entities.ResourceTours, tour.ID, map[string]any{"name": "Saved on shutdown", "steps": nil, "published": false})
	require.NoError(t, err)

	drafts.Shutdown(ctx)
	drafts.Shutdown(ctx)
	assert.Zero(t, drafts.Len())

	got, err := f.tours.Get(ctx, f.paidT, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, "Saved on shutdown", got.Name)

	_, err = drafts.Open(ctx, f.paidT, entities.ResourceTours, tour.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnavailable))
}

type blockingEditor struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
}

func (e *blockingEditor) Fields(context.Context, Tenant, string) (map[string]any, error) {
	return map[string]any{"name": "base"}, nil
}

func (e *blockingEditor) SaveDraft(ctx context.Context, _ Tenant, _ string, _ map[string]any) error {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	select {
	case <-e.release:
		return nil
	case <-ctx.Done():
		return errors.New("timed out")
	}
}

func TestDraftServiceFlushWhileSaving(t *testing.T) {
	ctx := context.Background()
	editor := &blockingEditor{release: make(chan struct{})}
	drafts := NewDraftService(map[entities.Resource]DraftEditor{entities.ResourceThemes: editor},
		DraftConfig{Debounce: time.Hour}, zap.NewNop())
	tenant := Tenant{AgencyID: "a1", Plan: entities.PlanPro}

	_, err := drafts.Update(ctx, tenant, entities.ResourceThemes, "t1", map[string]any{"name": "x"})
	require.NoError(t, err)

	done := make(chan DraftStatus)
	go func() {
		st, _ := drafts.Flush(ctx, tenant, entities.ResourceThemes, "t1")
		done <- st
	}()
	assert.Eventually(t, func() bool {
		editor.mu.Lock()
		defer editor.mu.Unlock()
		return editor.calls == 1
	}, time.Second, time.Millisecond)

	st, err := drafts.Flush(ctx, tenant, entities.ResourceThemes, "t1")
	require.NoError(t, err)
	assert.Equal(t, autosave.StatusSaving, st.Status, "a flush during a save is dropped")

	close(editor.release)
	assert.Equal(t, autosave.StatusSaved, (<-done).Status)
	assert.Equal(t, 1, editor.calls)
	drafts.Shutdown(ctx)
}

// sequencedEditor holds its first save until release is closed.
type sequencedEditor struct {
	mu      sync.Mutex
	saved   []string
	started chan struct{}
	release chan struct{}
}

func (e *sequencedEditor) Fields(context.Context, Tenant, string) (map[string]any, error) {
	return map[string]any{"name": "base"}, nil
}

func (e *sequencedEditor) SaveDraft(_ context.Context, _ Tenant, _ string, doc map[string]any) error {
	e.mu.Lock()
	first := len(e.saved) == 0
	e.saved = append(e.saved, doc["name"].(string))
	e.mu.Unlock()
	if first {
		close(e.started)
		<-e.release
	}
	return nil
}

func (e *sequencedEditor) Saved() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.saved...)
}

func TestDraftServiceShutdownKeepsEditsMadeDuringSave(t *testing.T) {
	ctx := context.Background()
	editor := &sequencedEditor{started: make(chan struct{}), release: make(chan struct{})}
	drafts := NewDraftService(map[entities.Resource]DraftEditor{entities.ResourceThemes: editor},
		DraftConfig{Debounce: time.Hour}, zap.NewNop())
	tenant := Tenant{AgencyID: "a1", Plan: entities.PlanPro}

	_, err := drafts.Update(ctx, tenant, entities.ResourceThemes, "t1", map[string]any{"name": "first"})
	require.NoError(t, err)

	flushed := make(chan struct{})
	go func() {
		defer close(flushed)
		_, _ = drafts.Flush(ctx, tenant, entities.ResourceThemes, "t1")
	}()
	<-editor.started

	_, err = drafts.Update(ctx, tenant, entities.ResourceThemes, "t1", map[string]any{"name": "second"})
	require.NoError(t, err)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		drafts.Shutdown(ctx)
	}()

	select {
	case <-stopped:
		t.Fatal("shutdown returned while a save was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(editor.release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not finish")
	}
	<-flushed

	assert.Equal(t, []string{"first", "second"}, editor.Saved())
	assert.Zero(t, drafts.Len())
}
