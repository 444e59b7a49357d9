// Package memory provides in-process repositories for local development and
// tests. Rows are stored as JSON so callers never share memory with the store.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alanwallace9/agencytoolkit/application/ports"
	"github.com/alanwallace9/agencytoolkit/domain/core/entities"
	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
)

type row struct {
	agencyID string
	seq      int
	data     []byte
}

// Repository is an in-memory ports.Repository.
type Repository[T entities.Entity] struct {
	mu       sync.RWMutex
	resource entities.Resource
	newT     func() T
	rows     map[string]*row
	seq      int
	now      func() time.Time
}

// NewRepository creates an empty repository. newT returns a zero entity to
// decode into.
func NewRepository[T entities.Entity](resource entities.Resource, newT func() T) *Repository[T] {
	return &Repository[T]{
		resource: resource,
		newT:     newT,
		rows:     make(map[string]*row),
		now:      time.Now,
	}
}

func (r *Repository[T]) List(ctx context.Context, agencyID string, filter ports.Filter, limit int) ([]T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*row, 0)
	for _, rw := range r.rows {
		if rw.agencyID != agencyID {
			continue
		}
		ok, err := matches(rw.data, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, rw)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq > matched[j].seq })
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]T, 0, len(matched))
	for _, rw := range matched {
		entity, err := r.decode(rw.data)
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

func (r *Repository[T]) Get(ctx context.Context, agencyID, id string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rw, ok := r.rows[id]
	if !ok || rw.agencyID != agencyID {
		var zero T
		return zero, apperrors.NewNotFoundError(r.resource.Singular())
	}
	return r.decode(rw.data)
}

func (r *Repository[T]) Count(ctx context.Context, agencyID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, rw := range r.rows {
		if rw.agencyID == agencyID {
			n++
		}
	}
	return n, nil
}

func (r *Repository[T]) Create(ctx context.Context, entity T) (T, error) {
	var zero T
	meta := entity.Meta()
	if meta.ID == "" || meta.AgencyID == "" {
		return zero, apperrors.NewValidationError("id and agency_id are required")
	}
	data, err := json.Marshal(entity)
	if err != nil {
		return zero, apperrors.NewDatabaseError("create", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rows[meta.ID]; exists {
		return zero, apperrors.NewConflictError(fmt.Sprintf("%s %s already exists", r.resource.Singular(), meta.ID))
	}
	r.seq++
	r.rows[meta.ID] = &row{agencyID: meta.AgencyID, seq: r.seq, data: data}
	return r.decode(data)
}

func (r *Repository[T]) Update(ctx context.Context, agencyID, id string, fields map[string]any) (T, error) {
	var zero T
	r.mu.Lock()
	defer r.mu.Unlock()

	rw, ok := r.rows[id]
	if !ok || rw.agencyID != agencyID {
		return zero, apperrors.NewNotFoundError(r.resource.Singular())
	}

	var doc map[string]any
	if err := json.Unmarshal(rw.data, &doc); err != nil {
		return zero, apperrors.NewDatabaseError("update", err)
	}
	for k, v := range entities.StripProtected(fields) {
		doc[k] = v
	}
	doc["updated_at"] = r.now().UTC()

	data, err := json.Marshal(doc)
	if err != nil {
		return zero, apperrors.NewDatabaseError("update", err)
	}
	entity, err := r.decode(data)
	if err != nil {
		return zero, err
	}
	rw.data = data
	return entity, nil
}

func (r *Repository[T]) Delete(ctx context.Context, agencyID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rw, ok := r.rows[id]
	if !ok || rw.agencyID != agencyID {
		return apperrors.NewNotFoundError(r.resource.Singular())
	}
	delete(r.rows, id)
	return nil
}

func (r *Repository[T]) decode(data []byte) (T, error) {
	entity := r.newT()
	if err := json.Unmarshal(data, entity); err != nil {
		var zero T
		return zero, apperrors.NewDatabaseError("decode", err)
	}
	return entity, nil
}

func matches(data []byte, filter ports.Filter) (bool, error) {
	if len(filter) == 0 {
		return true, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return false, apperrors.NewDatabaseError("filter", err)
	}
	for col, want := range filter {
		if fmt.Sprint(doc[col]) != want {
			return false, nil
		}
	}
	return true, nil
}
