package persistence

import (
	"context"

	"github.com/alanwallace9/agencytoolkit/application/ports"
	"github.com/alanwallace9/agencytoolkit/domain/core/entities"
)

// GuardedRepository runs every call of the wrapped repository through a
// Breaker.
type GuardedRepository[T entities.Entity] struct {
	inner   ports.Repository[T]
	breaker *Breaker
	prefix  string
}

// Guard wraps inner so that every call goes through breaker.
func Guard[T entities.Entity](inner ports.Repository[T], resource entities.Resource, breaker *Breaker) *GuardedRepository[T] {
	return &GuardedRepository[T]{inner: inner, breaker: breaker, prefix: string(resource) + "."}
}

func (g *GuardedRepository[T]) List(ctx context.Context, agencyID string, filter ports.Filter, limit int) ([]T, error) {
	var out []T
	err := g.breaker.Execute(ctx, g.prefix+"list", func() error {
		var err error
		out, err = g.inner.List(ctx, agencyID, filter, limit)
		return err
	})
	return out, err
}

func (g *GuardedRepository[T]) Get(ctx context.Context, agencyID, id string) (T, error) {
	var out T
	err := g.breaker.Execute(ctx, g.prefix+"get", func() error {
		var err error
		out, err = g.inner.Get(ctx, agencyID, id)
		return err
	})
	return out, err
}

func (g *GuardedRepository[T]) Count(ctx context.Context, agencyID string) (int, error) {
	var n int
	err := g.breaker.Execute(ctx, g.prefix+"count", func() error {
		var err error
		n, err = g.inner.Count(ctx, agencyID)
		return err
	})
	return n, err
}

func (g *GuardedRepository[T]) Create(ctx context.Context, entity T) (T, error) {
	var out T
	err := g.breaker.Execute(ctx, g.prefix+"create", func() error {
		var err error
		out, err = g.inner.Create(ctx, entity)
		return err
	})
	return out, err
}

func (g *GuardedRepository[T]) Update(ctx context.Context, agencyID, id string, fields map[string]any) (T, error) {
	var out T
	err := g.breaker.Execute(ctx, g.prefix+"update", func() error {
		var err error
		out, err = g.inner.Update(ctx, agencyID, id, fields)
		return err
	})
	return out, err
}

func (g *GuardedRepository[T]) Delete(ctx context.Context, agencyID, id string) error {
	return g.breaker.Execute(ctx, g.prefix+"delete", func() error {
		return g.inner.Delete(ctx, agencyID, id)
	})
}
