package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alanwallace9/agencytoolkit/domain/core/entities"
	"github.com/alanwallace9/agencytoolkit/pkg/autosave"
	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
)

// Draft defaults.
const (
	DefaultDraftIdleTimeout = 15 * time.Minute
	DefaultDraftSweep       = time.Minute
	draftSaveTimeout        = 10 * time.Second
	retireAttempts          = 3
)

// DraftEditor loads and saves the editable document of one collection.
type DraftEditor interface {
	Fields(ctx context.Context, tenant Tenant, id string) (map[string]any, error)
	SaveDraft(ctx context.Context, tenant Tenant, id string, doc map[string]any) error
}

// DraftStatus describes an open draft session.
type DraftStatus struct {
	Resource    entities.Resource `json:"resource"`
	ID          string            `json:"id"`
	Status      autosave.Status   `json:"status"`
	LastSavedAt *time.Time        `json:"last_saved_at"`
	Dirty       bool              `json:"dirty"`
}

// DraftConfig tunes the draft sessions.
type DraftConfig struct {
	Debounce      time.Duration
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	// Observer, when set, returns a status observer per resource.
	Observer func(resource string) func(autosave.Status)
}

type draftKey struct {
	agencyID string
	resource entities.Resource
	id       string
}

type draftSession struct {
	ctrl    *autosave.Controller[map[string]any]
	touched time.Time
}

// DraftService keeps one autosave controller per edited row.
type DraftService struct {
	editors map[entities.Resource]DraftEditor
	config  DraftConfig
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[draftKey]*draftSession
	debounce time.Duration

	stop    chan struct{}
	done    chan struct{}
	started bool
	once    sync.Once
}

// NewDraftService creates the draft sessions. Only resources with an editor
// can be drafted.
func NewDraftService(editors map[entities.Resource]DraftEditor, config DraftConfig, logger *zap.Logger) *DraftService {
	if config.Debounce <= 0 {
		config.Debounce = autosave.DefaultDebounce
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultDraftIdleTimeout
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = DefaultDraftSweep
	}
	return &DraftService{
		editors:  editors,
		config:   config,
		logger:   logger.Named("drafts"),
		now:      time.Now,
		sessions: make(map[draftKey]*draftSession),
		debounce: config.Debounce,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// SetDebounce changes the debounce used by sessions opened afterwards.
func (s *DraftService) SetDebounce(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debounce = d
}

// Start runs the janitor that flushes and closes idle sessions.
func (s *DraftService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	go s.janitor()
}

// Open starts a session for the row, or returns the existing one.
func (s *DraftService) Open(ctx context.Context, tenant Tenant, resource entities.Resource, id string) (DraftStatus, error) {
	key, sess, err := s.session(ctx, tenant, resource, id)
	if err != nil {
		return DraftStatus{}, err
	}
	return s.status(key, sess), nil
}

// Update records a new snapshot of the row, opening a session if needed.
func (s *DraftService) Update(ctx context.Context, tenant Tenant, resource entities.Resource, id string, doc map[string]any) (DraftStatus, error) {
	if doc == nil {
		return DraftStatus{}, apperrors.NewValidationError("draft document is required")
	}
	key, sess, err := s.session(ctx, tenant, resource, id)
	if err != nil {
		return DraftStatus{}, err
	}
	sess.ctrl.Update(entities.StripProtected(doc))
	return s.status(key, sess), nil
}

// Flush saves the session now and returns its status.
func (s *DraftService) Flush(ctx context.Context, tenant Tenant, resource entities.Resource, id string) (DraftStatus, error) {
	key, sess, err := s.session(ctx, tenant, resource, id)
	if err != nil {
		return DraftStatus{}, err
	}
	sess.ctrl.Flush(ctx)
	return s.status(key, sess), nil
}

// Status returns the state of an open session.
func (s *DraftService) Status(_ context.Context, tenant Tenant, resource entities.Resource, id string) (DraftStatus, error) {
	key := draftKey{agencyID: tenant.AgencyID, resource: resource, id: id}
	s.mu.Lock()
	sess, ok := s.sessions[key]
	s.mu.Unlock()
	if !ok {
		return DraftStatus{}, apperrors.NewNotFoundError("draft session")
	}
	return s.status(key, sess), nil
}

// Close tears the session down. A pending save is dropped.
func (s *DraftService) Close(_ context.Context, tenant Tenant, resource entities.Resource, id string) error {
	key := draftKey{agencyID: tenant.AgencyID, resource: resource, id: id}
	s.mu.Lock()
	sess, ok := s.sessions[key]
	delete(s.sessions, key)
	s.mu.Unlock()
	if !ok {
		return apperrors.NewNotFoundError("draft session")
	}
	sess.ctrl.Close()
	return nil
}

// Len returns the number of open sessions.
func (s *DraftService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown stops the janitor, then flushes and closes every session.
func (s *DraftService) Shutdown(ctx context.Context) {
	s.once.Do(func() {
		close(s.stop)
		s.mu.Lock()
		started := s.started
		s.mu.Unlock()
		if started {
			<-s.done
		}
	})

	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[draftKey]*draftSession)
	s.mu.Unlock()

	for key, sess := range sessions {
		s.retire(ctx, key, sess)
	}
}

func (s *DraftService) session(ctx context.Context, tenant Tenant, resource entities.Resource, id string) (draftKey, *draftSession, error) {
	key := draftKey{agencyID: tenant.AgencyID, resource: resource, id: id}

	s.mu.Lock()
	if sess, ok := s.sessions[key]; ok {
		sess.touched = s.now()
		s.mu.Unlock()
		return key, sess, nil
	}
	s.mu.Unlock()

	editor, ok := s.editors[resource]
	if !ok || !resource.Draftable() {
		return key, nil, apperrors.NewValidationError(string(resource) + " cannot be edited as a draft")
	}
	baseline, err := editor.Fields(ctx, tenant, id)
	if err != nil {
		return key, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another request may have opened the session while the row loaded.
	if sess, ok := s.sessions[key]; ok {
		sess.touched = s.now()
		return key, sess, nil
	}
	select {
	case <-s.stop:
		return key, nil, apperrors.NewUnavailableError("drafts")
	default:
	}

	opts := []autosave.Option{
		autosave.WithDebounce(s.debounce),
		autosave.WithLogger(s.logger.With(
			zap.String("agency_id", tenant.AgencyID),
			zap.String("resource", string(resource)),
			zap.String("id", id),
		)),
		autosave.WithClock(s.now),
	}
	if s.config.Observer != nil {
		opts = append(opts, autosave.WithStatusObserver(s.config.Observer(string(resource))))
	}
	save := func(ctx context.Context, doc map[string]any) (bool, error) {
		ctx, cancel := context.WithTimeout(ctx, draftSaveTimeout)
		defer cancel()
		if err := editor.SaveDraft(ctx, tenant, id, doc); err != nil {
			return false, err
		}
		return true, nil
	}

	sess := &draftSession{
		ctrl:    autosave.New(baseline, save, opts...),
		touched: s.now(),
	}
	s.sessions[key] = sess
	s.logger.Debug("Draft session opened",
		zap.String("agency_id", tenant.AgencyID),
		zap.String("resource", string(resource)),
		zap.String("id", id),
	)
	return key, sess, nil
}

func (s *DraftService) status(key draftKey, sess *draftSession) DraftStatus {
	st := DraftStatus{
		Resource: key.resource,
		ID:       key.id,
		Status:   sess.ctrl.Status(),
		Dirty:    sess.ctrl.Dirty(),
	}
	if at, ok := sess.ctrl.LastSavedAt(); ok {
		st.LastSavedAt = &at
	}
	return st
}

func (s *DraftService) janitor() {
	defer close(s.done)
	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepIdle(context.Background())
		case <-s.stop:
			return
		}
	}
}

// sweepIdle flushes and closes sessions untouched for the idle timeout.
func (s *DraftService) sweepIdle(ctx context.Context) int {
	cutoff := s.now().Add(-s.config.IdleTimeout)

	s.mu.Lock()
	idle := make(map[draftKey]*draftSession)
	for key, sess := range s.sessions {
		if sess.touched.Before(cutoff) {
			idle[key] = sess
			delete(s.sessions, key)
		}
	}
	s.mu.Unlock()

	for key, sess := range idle {
		s.retire(ctx, key, sess)
	}
	return len(idle)
}

func (s *DraftService) retire(ctx context.Context, key draftKey, sess *draftSession) {
	defer sess.ctrl.Close()
	fields := []zap.Field{
		zap.String("agency_id", key.agencyID),
		zap.String("resource", string(key.resource)),
		zap.String("id", key.id),
	}

	for attempt := 0; attempt < retireAttempts; attempt++ {
		// Edits made during an in-flight save stay dirty once it settles.
		if err := sess.ctrl.Wait(ctx); err != nil {
			s.logger.Warn("Draft closed before its save settled", append(fields, zap.Error(err))...)
			return
		}
		if !sess.ctrl.Dirty() && sess.ctrl.Status() != autosave.StatusError {
			return
		}
		switch sess.ctrl.Flush(ctx) {
		case autosave.StatusSaving:
			// A timer-driven save started first; wait for it.
		case autosave.StatusError:
			s.logger.Warn("Draft discarded after failed save", fields...)
			return
		}
	}
	s.logger.Warn("Draft still changing at close", fields...)
}
