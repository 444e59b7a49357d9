package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/alanwallace9/agencytoolkit/domain/core/entities"
	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
)

// AgencyRepository is an in-memory ports.AgencyRepository.
type AgencyRepository struct {
	mu       sync.RWMutex
	agencies map[string]entities.Agency
}

// NewAgencyRepository creates an empty agency repository.
func NewAgencyRepository() *AgencyRepository {
	return &AgencyRepository{agencies: make(map[string]entities.Agency)}
}

func (r *AgencyRepository) find(match func(entities.Agency) bool) (*entities.Agency, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.agencies {
		if match(a) {
			found := a
			return &found, nil
		}
	}
	return nil, apperrors.NewNotFoundError("agency")
}

func (r *AgencyRepository) GetByUserID(ctx context.Context, userID string) (*entities.Agency, error) {
	return r.find(func(a entities.Agency) bool { return a.UserID == userID })
}

func (r *AgencyRepository) GetByEmbedKey(ctx context.Context, embedKey string) (*entities.Agency, error) {
	return r.find(func(a entities.Agency) bool { return a.EmbedKey == embedKey })
}

func (r *AgencyRepository) Get(ctx context.Context, id string) (*entities.Agency, error) {
	return r.find(func(a entities.Agency) bool { return a.ID == id })
}

func (r *AgencyRepository) Create(ctx context.Context, agency *entities.Agency) (*entities.Agency, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agencies[agency.ID]; exists {
		return nil, apperrors.NewConflictError("agency already exists")
	}
	stored := *agency
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.agencies[stored.ID] = stored
	return &stored, nil
}

// ProofEventRepository is an in-memory ports.ProofEventRepository.
type ProofEventRepository struct {
	mu     sync.RWMutex
	events []entities.ProofEvent
}

// NewProofEventRepository creates an empty event log.
func NewProofEventRepository() *ProofEventRepository {
	return &ProofEventRepository{}
}

func (r *ProofEventRepository) Record(ctx context.Context, event *entities.ProofEvent) (*entities.ProofEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *event
	r.events = append(r.events, stored)
	return &stored, nil
}

func (r *ProofEventRepository) Recent(ctx context.Context, agencyID, widgetID string, limit int) ([]*entities.ProofEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entities.ProofEvent, 0)
	for i := len(r.events) - 1; i >= 0; i-- {
		e := r.events[i]
		if e.AgencyID == agencyID && e.WidgetID == widgetID {
			found := e
			out = append(out, &found)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
