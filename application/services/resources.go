package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alanwallace9/agencytoolkit/application/ports"
	"github.com/alanwallace9/agencytoolkit/domain/core/entities"
	"github.com/alanwallace9/agencytoolkit/domain/events"
	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
)

// ResourceService is the tenant-scoped CRUD use case for one collection.
type ResourceService[T entities.Entity] struct {
	resource     entities.Resource
	repo         ports.Repository[T]
	newT         func() T
	entitlements *Entitlements
	publisher    ports.EventPublisher
	logger       *zap.Logger
	now          func() time.Time
	newID        func() string
}

// NewResourceService creates the CRUD service for resource. newT returns an
// empty entity to decode into.
func NewResourceService[T entities.Entity](
	resource entities.Resource,
	repo ports.Repository[T],
	newT func() T,
	entitlements *Entitlements,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *ResourceService[T] {
	return &ResourceService[T]{
		resource:     resource,
		repo:         repo,
		newT:         newT,
		entitlements: entitlements,
		publisher:    publisher,
		logger:       logger.Named(string(resource)),
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// Resource returns the collection this service manages.
func (s *ResourceService[T]) Resource() entities.Resource { return s.resource }

// New returns an empty entity for request decoding.
func (s *ResourceService[T]) New() T { return s.newT() }

// List returns up to limit rows, newest first.
func (s *ResourceService[T]) List(ctx context.Context, tenant Tenant, filter ports.Filter, limit int) ([]T, error) {
	return s.repo.List(ctx, tenant.AgencyID, filter, limit)
}

// Get returns one row owned by the tenant.
func (s *ResourceService[T]) Get(ctx context.Context, tenant Tenant, id string) (T, error) {
	return s.repo.Get(ctx, tenant.AgencyID, id)
}

// Count returns how many rows the tenant owns.
func (s *ResourceService[T]) Count(ctx context.Context, tenant Tenant) (int, error) {
	return s.repo.Count(ctx, tenant.AgencyID)
}

// Create stamps entity with a new id and the tenant, validates it against the
// plan and stores it. Client supplied id and timestamps are ignored.
func (s *ResourceService[T]) Create(ctx context.Context, tenant Tenant, entity T) (T, error) {
	var zero T

	if d, ok := any(entity).(entities.Defaulter); ok {
		d.ApplyDefaults()
	}
	now := s.now().UTC()
	meta := entity.Meta()
	meta.ID = s.newID()
	meta.AgencyID = tenant.AgencyID
	meta.CreatedAt = now
	meta.UpdatedAt = now

	if err := entity.Validate(); err != nil {
		return zero, err
	}
	count := func(ctx context.Context) (int, error) { return s.repo.Count(ctx, tenant.AgencyID) }
	if err := s.entitlements.CheckCreate(ctx, tenant, s.resource, entity, count); err != nil {
		return zero, err
	}

	created, err := s.repo.Create(ctx, entity)
	if err != nil {
		return zero, err
	}
	s.publish(ctx, events.NewEntityChanged(tenant.AgencyID, string(s.resource), meta.ID, events.Created, now))
	return created, nil
}

// Update merges fields into the stored row. The merged row must validate and
// must respect the plan; nothing is written otherwise. Unknown keys are
// rejected and protected keys are ignored.
func (s *ResourceService[T]) Update(ctx context.Context, tenant Tenant, id string, fields map[string]any) (T, error) {
	var zero T

	existing, err := s.repo.Get(ctx, tenant.AgencyID, id)
	if err != nil {
		return zero, err
	}
	merged, patch, err := s.merge(existing, fields)
	if err != nil {
		return zero, err
	}
	if len(patch) == 0 {
		return existing, nil
	}
	if err := merged.Validate(); err != nil {
		return zero, err
	}
	if err := s.entitlements.CheckUpdate(tenant, s.resource, existing, merged); err != nil {
		return zero, err
	}

	updated, err := s.repo.Update(ctx, tenant.AgencyID, id, patch)
	if err != nil {
		return zero, err
	}
	s.publish(ctx, events.NewEntityChanged(tenant.AgencyID, string(s.resource), id, events.Updated, s.now().UTC()))
	return updated, nil
}

// Delete removes a row owned by the tenant.
func (s *ResourceService[T]) Delete(ctx context.Context, tenant Tenant, id string) error {
	if err := s.repo.Delete(ctx, tenant.AgencyID, id); err != nil {
		return err
	}
	s.publish(ctx, events.NewEntityChanged(tenant.AgencyID, string(s.resource), id, events.Deleted, s.now().UTC()))
	return nil
}

// Fields returns the editable fields of a row as a document.
func (s *ResourceService[T]) Fields(ctx context.Context, tenant Tenant, id string) (map[string]any, error) {
	existing, err := s.repo.Get(ctx, tenant.AgencyID, id)
	if err != nil {
		return nil, err
	}
	doc, err := toDocument(existing)
	if err != nil {
		return nil, err
	}
	return entities.StripProtected(doc), nil
}

// SaveDraft writes a draft document through Update and reports it.
func (s *ResourceService[T]) SaveDraft(ctx context.Context, tenant Tenant, id string, doc map[string]any) error {
	if _, err := s.Update(ctx, tenant, id, doc); err != nil {
		return err
	}
	s.publish(ctx, events.NewDraftSaved(tenant.AgencyID, string(s.resource), id, s.now().UTC()))
	return nil
}

// merge overlays fields on existing. It returns the merged entity and the
// normalized patch holding only the keys the caller may write.
func (s *ResourceService[T]) merge(existing T, fields map[string]any) (T, map[string]any, error) {
	var zero T

	doc, err := toDocument(existing)
	if err != nil {
		return zero, nil, err
	}
	writable := entities.StripProtected(fields)

	var unknown []string
	for k := range writable {
		if _, ok := doc[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return zero, nil, apperrors.NewValidationError("unknown fields: " + strings.Join(unknown, ", "))
	}

	for k, v := range writable {
		doc[k] = v
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return zero, nil, apperrors.NewValidationError("invalid document")
	}
	merged := s.newT()
	if err := json.Unmarshal(data, merged); err != nil {
		return zero, nil, apperrors.NewValidationError(fmt.Sprintf("invalid field value: %v", err))
	}

	// Re-encode so the patch carries the typed values, not the raw input.
	normalized, err := toDocument(merged)
	if err != nil {
		return zero, nil, err
	}
	patch := make(map[string]any, len(writable))
	for k := range writable {
		patch[k] = normalized[k]
	}
	return merged, patch, nil
}

func (s *ResourceService[T]) publish(ctx context.Context, event events.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event",
			zap.String("event_type", event.GetEventType()),
			zap.String("agency_id", event.GetAgencyID()),
			zap.String("id", event.GetAggregateID()),
			zap.Error(err),
		)
	}
}

func toDocument(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, apperrors.NewInternalError("encode entity").WithCause(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.NewInternalError("decode entity").WithCause(err)
	}
	return doc, nil
}
