// Package supabase stores tenant rows in Supabase through PostgREST.
package supabase

import (
	"context"
	"time"

	postgrest "github.com/supabase-community/postgrest-go"

	"github.com/alanwallace9/agencytoolkit/application/ports"
	"github.com/alanwallace9/agencytoolkit/domain/core/entities"
	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
)

// Querier starts a PostgREST query. *supabase.Client and *postgrest.Client
// both satisfy it.
type Querier interface {
	From(table string) *postgrest.QueryBuilder
}

var newestFirst = &postgrest.OrderOpts{Ascending: false}

// Repository is a ports.Repository over one PostgREST table.
type Repository[T entities.Entity] struct {
	db       Querier
	resource entities.Resource
	now      func() time.Time
}

// NewRepository creates a repository for resource's table.
func NewRepository[T entities.Entity](db Querier, resource entities.Resource) *Repository[T] {
	return &Repository[T]{db: db, resource: resource, now: time.Now}
}

func (r *Repository[T]) table() *postgrest.QueryBuilder {
	return r.db.From(r.resource.Table())
}

func (r *Repository[T]) List(ctx context.Context, agencyID string, filter ports.Filter, limit int) ([]T, error) {
	q := r.table().Select("*", "", false).Eq("agency_id", agencyID)
	for col, val := range filter {
		q = q.Eq(col, val)
	}
	q = q.Order("created_at", newestFirst)
	if limit > 0 {
		q = q.Limit(limit, "")
	}

	var rows []T
	if _, err := q.ExecuteTo(&rows); err != nil {
		return nil, apperrors.NewDatabaseError(r.op("list"), err)
	}
	return rows, nil
}

func (r *Repository[T]) Get(ctx context.Context, agencyID, id string) (T, error) {
	var rows []T
	_, err := r.table().Select("*", "", false).
		Eq("id", id).
		Eq("agency_id", agencyID).
		Limit(1, "").
		ExecuteTo(&rows)
	return r.first(rows, err, "get")
}

func (r *Repository[T]) Count(ctx context.Context, agencyID string) (int, error) {
	_, count, err := r.table().Select("id", "exact", true).Eq("agency_id", agencyID).Execute()
	if err != nil {
		return 0, apperrors.NewDatabaseError(r.op("count"), err)
	}
	return int(count), nil
}

func (r *Repository[T]) Create(ctx context.Context, entity T) (T, error) {
	var rows []T
	_, err := r.table().Insert(entity, false, "", "representation", "").ExecuteTo(&rows)
	return r.first(rows, err, "create")
}

func (r *Repository[T]) Update(ctx context.Context, agencyID, id string, fields map[string]any) (T, error) {
	values := entities.StripProtected(fields)
	values["updated_at"] = r.now().UTC()

	var rows []T
	_, err := r.table().Update(values, "representation", "").
		Eq("id", id).
		Eq("agency_id", agencyID).
		ExecuteTo(&rows)
	return r.first(rows, err, "update")
}

func (r *Repository[T]) Delete(ctx context.Context, agencyID, id string) error {
	var rows []T
	_, err := r.table().Delete("representation", "").
		Eq("id", id).
		Eq("agency_id", agencyID).
		ExecuteTo(&rows)
	_, err = r.first(rows, err, "delete")
	return err
}

func (r *Repository[T]) first(rows []T, err error, op string) (T, error) {
	var zero T
	if err != nil {
		return zero, apperrors.NewDatabaseError(r.op(op), err)
	}
	if len(rows) == 0 {
		return zero, apperrors.NewNotFoundError(r.resource.Singular())
	}
	return rows[0], nil
}

func (r *Repository[T]) op(name string) string {
	return r.resource.Table() + "." + name
}
