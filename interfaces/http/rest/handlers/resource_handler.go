package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/alanwallace9/agencytoolkit/application/services"
	"github.com/alanwallace9/agencytoolkit/domain/core/entities"
	"github.com/alanwallace9/agencytoolkit/pkg/api"
	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
)

// ResourceHandler serves the CRUD routes of one tenant collection.
type ResourceHandler[T entities.Entity] struct {
	service *services.ResourceService[T]
	errs    *apperrors.ErrorHandler
}

// NewResourceHandler creates a handler for service's collection.
func NewResourceHandler[T entities.Entity](service *services.ResourceService[T], errs *apperrors.ErrorHandler) *ResourceHandler[T] {
	return &ResourceHandler[T]{service: service, errs: errs}
}

// Mount registers list, create, get, update and delete on r.
func (h *ResourceHandler[T]) Mount(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// List handles GET /<resource>
func (h *ResourceHandler[T]) List(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantFrom(r)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	limit := api.ParseLimit(r, api.DefaultListLimit, api.MaxListLimit)
	items, err := h.service.List(r.Context(), tenant, nil, limit)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	api.Success(w, http.StatusOK, items)
}

// Create handles POST /<resource>
func (h *ResourceHandler[T]) Create(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantFrom(r)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	entity := h.service.New()
	if err := api.DecodeJSON(r, entity); err != nil {
		h.errs.Handle(w, r, invalidBody(err))
		return
	}
	created, err := h.service.Create(r.Context(), tenant, entity)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	api.Success(w, http.StatusCreated, created)
}

// Get handles GET /<resource>/{id}
func (h *ResourceHandler[T]) Get(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantFrom(r)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	item, err := h.service.Get(r.Context(), tenant, chi.URLParam(r, "id"))
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, item)
}

// Update handles PATCH /<resource>/{id}
func (h *ResourceHandler[T]) Update(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantFrom(r)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	var fields map[string]any
	if err := api.DecodeJSON(r, &fields); err != nil {
		h.errs.Handle(w, r, invalidBody(err))
		return
	}
	if len(fields) == 0 {
		h.errs.Handle(w, r, apperrors.NewValidationError("no fields to update"))
		return
	}
	updated, err := h.service.Update(r.Context(), tenant, chi.URLParam(r, "id"), fields)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, updated)
}

// Delete handles DELETE /<resource>/{id}
func (h *ResourceHandler[T]) Delete(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantFrom(r)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), tenant, chi.URLParam(r, "id")); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
