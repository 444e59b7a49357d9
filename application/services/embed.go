package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alanwallace9/agencytoolkit/application/ports"
	"github.com/alanwallace9/agencytoolkit/domain/core/entities"
	"github.com/alanwallace9/agencytoolkit/domain/events"
	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
	"github.com/alanwallace9/agencytoolkit/pkg/ratelimit"
	"github.com/alanwallace9/agencytoolkit/pkg/timefmt"
	"github.com/alanwallace9/agencytoolkit/pkg/validation"
)

// Proof event list limits.
const (
	EmbedProofLimit        = 20
	DefaultEmbedProofLimit = 10
	embedItemLimit         = 100
)

// EmbedConfig is everything the embed script needs for one agency.
type EmbedConfig struct {
	Theme      *entities.Theme       `json:"theme"`
	Tours      []*entities.Tour      `json:"tours"`
	Checklists []*entities.Checklist `json:"checklists"`
	Widgets    []*entities.Widget    `json:"widgets"`
}

// ProofInput is a social-proof event submitted by an embed visitor.
type ProofInput struct {
	FirstName string `json:"first_name" validate:"required,max=50"`
	City      string `json:"city" validate:"max=80"`
	Action    string `json:"action" validate:"required,max=120"`
}

// ProofView is a social-proof event ready for display.
type ProofView struct {
	ID         string    `json:"id"`
	FirstName  string    `json:"first_name"`
	City       string    `json:"city"`
	Action     string    `json:"action"`
	OccurredAt time.Time `json:"occurred_at"`
	TimeAgo    string    `json:"time_ago"`
}

// EmbedRepositories groups the collections read by the embed API.
type EmbedRepositories struct {
	Themes     ports.Repository[*entities.Theme]
	Tours      ports.Repository[*entities.Tour]
	Checklists ports.Repository[*entities.Checklist]
	Widgets    ports.Repository[*entities.Widget]
	Proofs     ports.ProofEventRepository
}

// EmbedService serves the public, embed-key addressed API and the social
// proof feeds.
type EmbedService struct {
	agencies  *AgencyService
	repos     EmbedRepositories
	images    *ImageService
	gate      *cooldown
	publisher ports.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewEmbedService creates the embed use cases. Proof submissions are gated
// per agency and client address by window.
func NewEmbedService(
	agencies *AgencyService,
	repos EmbedRepositories,
	images *ImageService,
	gate ratelimit.Gate,
	window time.Duration,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *EmbedService {
	logger = logger.Named("embed")
	if window <= 0 {
		window = DefaultProofWindow
	}
	return &EmbedService{
		agencies:  agencies,
		repos:     repos,
		images:    images,
		gate:      newCooldown("proof", gate, window, logger),
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// SetWindow changes the proof submission cooldown.
func (s *EmbedService) SetWindow(d time.Duration) { s.gate.setWindow(d) }

// Config returns the default theme and the live content of an agency.
func (s *EmbedService) Config(ctx context.Context, embedKey string) (*EmbedConfig, error) {
	agency, err := s.agencies.ByEmbedKey(ctx, embedKey)
	if err != nil {
		return nil, err
	}
	id := agency.ID

	cfg := &EmbedConfig{}
	themes, err := s.repos.Themes.List(ctx, id, ports.Filter{"is_default": "true"}, 1)
	if err != nil {
		return nil, err
	}
	if len(themes) > 0 {
		cfg.Theme = themes[0]
	}
	if cfg.Tours, err = s.repos.Tours.List(ctx, id, ports.Filter{"published": "true"}, embedItemLimit); err != nil {
		return nil, err
	}
	if cfg.Checklists, err = s.repos.Checklists.List(ctx, id, ports.Filter{"published": "true"}, embedItemLimit); err != nil {
		return nil, err
	}
	if cfg.Widgets, err = s.repos.Widgets.List(ctx, id, ports.Filter{"active": "true"}, embedItemLimit); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RecordProof stores a visitor's social-proof event for an active widget.
// Each client address may submit once per window per agency.
func (s *EmbedService) RecordProof(ctx context.Context, embedKey, widgetID, clientIP string, in ProofInput) (*ProofView, error) {
	agency, err := s.agencies.ByEmbedKey(ctx, embedKey)
	if err != nil {
		return nil, err
	}
	widget, err := s.repos.Widgets.Get(ctx, agency.ID, widgetID)
	if err != nil {
		return nil, err
	}
	if !widget.Active {
		return nil, apperrors.NewNotFoundError("widget")
	}

	in.FirstName = strings.TrimSpace(in.FirstName)
	in.City = strings.TrimSpace(in.City)
	in.Action = strings.TrimSpace(in.Action)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	key := ratelimit.Key("proof", agency.ID, clientIP)
	if err := s.gate.check(ctx, key); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	recorded, err := s.repos.Proofs.Record(ctx, &entities.ProofEvent{
		ID:         uuid.NewString(),
		AgencyID:   agency.ID,
		WidgetID:   widgetID,
		FirstName:  in.FirstName,
		City:       in.City,
		Action:     in.Action,
		OccurredAt: now,
	})
	if err != nil {
		return nil, err
	}
	s.gate.mark(ctx, key)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewProofRecorded(agency.ID, widgetID, recorded.ID, now)); err != nil {
			s.logger.Warn("Failed to publish event", zap.String("agency_id", agency.ID), zap.Error(err))
		}
	}
	view := s.view(recorded, now)
	return &view, nil
}

// RecentProof returns an active widget's latest events for embed visitors.
// limit is clamped to EmbedProofLimit.
func (s *EmbedService) RecentProof(ctx context.Context, embedKey, widgetID string, limit int) ([]ProofView, error) {
	agency, err := s.agencies.ByEmbedKey(ctx, embedKey)
	if err != nil {
		return nil, err
	}
	widget, err := s.repos.Widgets.Get(ctx, agency.ID, widgetID)
	if err != nil {
		return nil, err
	}
	if !widget.Active {
		return nil, apperrors.NewNotFoundError("widget")
	}
	if limit <= 0 {
		limit = DefaultEmbedProofLimit
	}
	if limit > EmbedProofLimit {
		limit = EmbedProofLimit
	}
	return s.recent(ctx, agency.ID, widgetID, limit)
}

// TenantProof returns a widget's latest events for its owner, active or not.
func (s *EmbedService) TenantProof(ctx context.Context, tenant Tenant, widgetID string, limit int) ([]ProofView, error) {
	if _, err := s.repos.Widgets.Get(ctx, tenant.AgencyID, widgetID); err != nil {
		return nil, err
	}
	return s.recent(ctx, tenant.AgencyID, widgetID, limit)
}

// RenderImage renders a template for an embed visitor.
func (s *EmbedService) RenderImage(ctx context.Context, embedKey, templateID, name string) ([]byte, error) {
	agency, err := s.agencies.ByEmbedKey(ctx, embedKey)
	if err != nil {
		return nil, err
	}
	return s.images.Render(ctx, TenantOf(agency), templateID, name)
}

func (s *EmbedService) recent(ctx context.Context, agencyID, widgetID string, limit int) ([]ProofView, error) {
	list, err := s.repos.Proofs.Recent(ctx, agencyID, widgetID, limit)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]ProofView, 0, len(list))
	for _, e := range list {
		out = append(out, s.view(e, now))
	}
	return out, nil
}

func (s *EmbedService) view(e *entities.ProofEvent, now time.Time) ProofView {
	return ProofView{
		ID:         e.ID,
		FirstName:  e.FirstName,
		City:       e.City,
		Action:     e.Action,
		OccurredAt: e.OccurredAt,
		TimeAgo:    timefmt.Relative(e.OccurredAt, now),
	}
}
