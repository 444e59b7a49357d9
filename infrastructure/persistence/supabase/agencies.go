package supabase

import (
	"context"

	"github.com/alanwallace9/agencytoolkit/domain/core/entities"
	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
)

const (
	agenciesTable    = "agencies"
	proofEventsTable = "social_proof_events"
)

// AgencyRepository reads the agencies table.
type AgencyRepository struct {
	db Querier
}

// NewAgencyRepository creates an agency repository.
func NewAgencyRepository(db Querier) *AgencyRepository {
	return &AgencyRepository{db: db}
}

func (r *AgencyRepository) getBy(column, value string) (*entities.Agency, error) {
	var rows []*entities.Agency
	_, err := r.db.From(agenciesTable).Select("*", "", false).
		Eq(column, value).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, apperrors.NewDatabaseError("agencies.get", err)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewNotFoundError("agency")
	}
	return rows[0], nil
}

func (r *AgencyRepository) GetByUserID(ctx context.Context, userID string) (*entities.Agency, error) {
	return r.getBy("user_id", userID)
}

func (r *AgencyRepository) GetByEmbedKey(ctx context.Context, embedKey string) (*entities.Agency, error) {
	return r.getBy("embed_key", embedKey)
}

func (r *AgencyRepository) Get(ctx context.Context, id string) (*entities.Agency, error) {
	return r.getBy("id", id)
}

func (r *AgencyRepository) Create(ctx context.Context, agency *entities.Agency) (*entities.Agency, error) {
	var rows []*entities.Agency
	_, err := r.db.From(agenciesTable).Insert(agency, false, "", "representation", "").ExecuteTo(&rows)
	if err != nil {
		return nil, apperrors.NewDatabaseError("agencies.create", err)
	}
	if len(rows) == 0 {
		return agency, nil
	}
	return rows[0], nil
}

// ProofEventRepository reads and writes social_proof_events.
type ProofEventRepository struct {
	db Querier
}

// NewProofEventRepository creates an event repository.
func NewProofEventRepository(db Querier) *ProofEventRepository {
	return &ProofEventRepository{db: db}
}

func (r *ProofEventRepository) Record(ctx context.Context, event *entities.ProofEvent) (*entities.ProofEvent, error) {
	var rows []*entities.ProofEvent
	_, err := r.db.From(proofEventsTable).Insert(event, false, "", "representation", "").ExecuteTo(&rows)
	if err != nil {
		return nil, apperrors.NewDatabaseError("social_proof_events.create", err)
	}
	if len(rows) == 0 {
		return event, nil
	}
	return rows[0], nil
}

func (r *ProofEventRepository) Recent(ctx context.Context, agencyID, widgetID string, limit int) ([]*entities.ProofEvent, error) {
	q := r.db.From(proofEventsTable).Select("*", "", false).
		Eq("agency_id", agencyID).
		Eq("widget_id", widgetID).
		Order("occurred_at", newestFirst)
	if limit > 0 {
		q = q.Limit(limit, "")
	}
	var rows []*entities.ProofEvent
	if _, err := q.ExecuteTo(&rows); err != nil {
		return nil, apperrors.NewDatabaseError("social_proof_events.list", err)
	}
	return rows, nil
}
