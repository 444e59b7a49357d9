package ports

import (
	"context"

	"github.com/alanwallace9/agencytoolkit/domain/core/entities"
	"github.com/alanwallace9/agencytoolkit/domain/events"
)

// Filter restricts a list to rows whose columns equal the given values.
type Filter map[string]string

// Repository persists one tenant collection. Every call is scoped to an
// agency; rows owned by another agency behave as if they did not exist.
type Repository[T entities.Entity] interface {
	// List returns up to limit rows, newest first.
	List(ctx context.Context, agencyID string, filter Filter, limit int) ([]T, error)

	// Get returns a not-found error when the row is missing or foreign.
	Get(ctx context.Context, agencyID, id string) (T, error)

	// Count returns how many rows the agency owns.
	Count(ctx context.Context, agencyID string) (int, error)

	// Create inserts a row whose Base fields are already populated.
	Create(ctx context.Context, entity T) (T, error)

	// Update applies fields to the row and returns the stored result.
	Update(ctx context.Context, agencyID, id string, fields map[string]any) (T, error)

	// Delete removes the row.
	Delete(ctx context.Context, agencyID, id string) error
}

// AgencyRepository resolves tenants.
type AgencyRepository interface {
	GetByUserID(ctx context.Context, userID string) (*entities.Agency, error)
	GetByEmbedKey(ctx context.Context, embedKey string) (*entities.Agency, error)
	Get(ctx context.Context, id string) (*entities.Agency, error)
	Create(ctx context.Context, agency *entities.Agency) (*entities.Agency, error)
}

// ProofEventRepository stores social-proof events.
type ProofEventRepository interface {
	Record(ctx context.Context, event *entities.ProofEvent) (*entities.ProofEvent, error)
	// Recent returns the latest events for a widget, newest first.
	Recent(ctx context.Context, agencyID, widgetID string, limit int) ([]*entities.ProofEvent, error)
}

// BlobStore holds uploaded template images.
type BlobStore interface {
	Put(ctx context.Context, path, contentType string, data []byte) error
	Get(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, paths ...string) error
	PublicURL(path string) string
}

// EventPublisher forwards domain events to the event bus.
type EventPublisher interface {
	Publish(ctx context.Context, events ...events.DomainEvent) error
}

// IdentityVerifier resolves an access token to the identity provider's user id.
type IdentityVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}
