package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/alanwallace9/agencytoolkit/domain/core/entities"
	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
)

// DefaultFreeCustomerLimit is the number of customers a free agency may hold.
const DefaultFreeCustomerLimit = 3

// Entitlements enforces the plan limits. Free agencies may create and edit
// anything but may not make content live or exceed the customer limit.
type Entitlements struct {
	freeCustomerLimit atomic.Int64
}

// NewEntitlements creates the plan checks.
func NewEntitlements(freeCustomerLimit int) *Entitlements {
	e := &Entitlements{}
	e.SetFreeCustomerLimit(freeCustomerLimit)
	return e
}

// SetFreeCustomerLimit changes the customer limit for free agencies.
func (e *Entitlements) SetFreeCustomerLimit(n int) {
	if n < 0 {
		n = 0
	}
	e.freeCustomerLimit.Store(int64(n))
}

// FreeCustomerLimit returns the current customer limit for free agencies.
func (e *Entitlements) FreeCustomerLimit() int {
	return int(e.freeCustomerLimit.Load())
}

// CheckCreate rejects creating entity when the tenant's plan does not allow
// it. count is only called for limited collections.
func (e *Entitlements) CheckCreate(ctx context.Context, tenant Tenant, resource entities.Resource, entity entities.Entity, count func(context.Context) (int, error)) error {
	if tenant.Plan.Paid() {
		return nil
	}
	if p, ok := entity.(entities.Publishable); ok && p.Live() {
		return liveForbidden(resource)
	}
	if resource == entities.ResourceCustomers {
		n, err := count(ctx)
		if err != nil {
			return err
		}
		if limit := e.FreeCustomerLimit(); n >= limit {
			return apperrors.NewForbiddenError(fmt.Sprintf("the free plan is limited to %d customers, upgrade to add more", limit))
		}
	}
	return nil
}

// CheckUpdate rejects an update that makes content live on the free plan.
func (e *Entitlements) CheckUpdate(tenant Tenant, resource entities.Resource, before, after entities.Entity) error {
	if tenant.Plan.Paid() {
		return nil
	}
	b, ok := before.(entities.Publishable)
	if !ok {
		return nil
	}
	a := after.(entities.Publishable)
	if !b.Live() && a.Live() {
		return liveForbidden(resource)
	}
	return nil
}

func liveForbidden(resource entities.Resource) error {
	verb := "publishing"
	if resource == entities.ResourceWidgets {
		verb = "activating"
	}
	return apperrors.NewForbiddenError(fmt.Sprintf("%s %ss requires a paid plan", verb, resource.Singular()))
}
