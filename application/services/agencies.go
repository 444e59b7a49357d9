// Package services implements the toolkit's use cases on top of the ports.
package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alanwallace9/agencytoolkit/application/ports"
	"github.com/alanwallace9/agencytoolkit/domain/core/entities"
	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
)

// Tenant is the agency a request acts for.
type Tenant struct {
	AgencyID string
	Plan     entities.Plan
}

// TenantOf returns the tenant for agency.
func TenantOf(agency *entities.Agency) Tenant {
	return Tenant{AgencyID: agency.ID, Plan: agency.Plan}
}

// AgencyService resolves callers to agencies.
type AgencyService struct {
	agencies ports.AgencyRepository
	verifier ports.IdentityVerifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewAgencyService creates an AgencyService. verifier may be nil when only
// embed-key resolution is needed.
func NewAgencyService(agencies ports.AgencyRepository, verifier ports.IdentityVerifier, logger *zap.Logger) *AgencyService {
	return &AgencyService{
		agencies: agencies,
		verifier: verifier,
		logger:   logger.Named("agencies"),
		now:      time.Now,
	}
}

// Authenticate verifies an access token and returns the caller's agency.
// Every failure is reported as unauthorized.
func (s *AgencyService) Authenticate(ctx context.Context, token string) (*entities.Agency, error) {
	if token == "" {
		return nil, apperrors.NewUnauthorizedError("missing bearer token")
	}
	if s.verifier == nil {
		return nil, apperrors.NewUnauthorizedError("authentication is not configured")
	}

	userID, err := s.verifier.VerifyToken(ctx, token)
	if err != nil {
		return nil, apperrors.NewUnauthorizedError("invalid token").WithCause(err)
	}

	agency, err := s.agencies.GetByUserID(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.logger.Debug("No agency for user", zap.String("user_id", userID))
			return nil, apperrors.NewUnauthorizedError("no agency for this account")
		}
		return nil, err
	}
	return agency, nil
}

// ByEmbedKey resolves the agency that owns an embed key.
func (s *AgencyService) ByEmbedKey(ctx context.Context, embedKey string) (*entities.Agency, error) {
	if strings.TrimSpace(embedKey) == "" {
		return nil, apperrors.NewNotFoundError("agency")
	}
	return s.agencies.GetByEmbedKey(ctx, embedKey)
}

// Get returns an agency by id.
func (s *AgencyService) Get(ctx context.Context, id string) (*entities.Agency, error) {
	return s.agencies.Get(ctx, id)
}

// Provision creates an agency for an identity-provider user with a fresh
// embed key.
func (s *AgencyService) Provision(ctx context.Context, userID, name string, plan entities.Plan) (*entities.Agency, error) {
	if userID == "" || strings.TrimSpace(name) == "" {
		return nil, apperrors.NewValidationError("user id and name are required")
	}
	if plan == "" {
		plan = entities.PlanFree
	}
	if plan != entities.PlanFree && !plan.Paid() {
		return nil, apperrors.NewValidationError("unknown plan " + string(plan))
	}

	agency := &entities.Agency{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      strings.TrimSpace(name),
		EmbedKey:  strings.ReplaceAll(uuid.NewString(), "-", ""),
		Plan:      plan,
		CreatedAt: s.now().UTC(),
	}
	created, err := s.agencies.Create(ctx, agency)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Agency provisioned", zap.String("agency_id", created.ID), zap.String("plan", string(plan)))
	return created, nil
}
