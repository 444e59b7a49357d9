package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/alanwallace9/agencytoolkit/application/services"
	"github.com/alanwallace9/agencytoolkit/domain/core/entities"
	"github.com/alanwallace9/agencytoolkit/pkg/api"
	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
)

// DraftsHandler exposes autosaved draft sessions.
type DraftsHandler struct {
	drafts *services.DraftService
	errs   *apperrors.ErrorHandler
}

// NewDraftsHandler creates a DraftsHandler.
func NewDraftsHandler(drafts *services.DraftService, errs *apperrors.ErrorHandler) *DraftsHandler {
	return &DraftsHandler{drafts: drafts, errs: errs}
}

// Mount registers the draft routes on r.
func (h *DraftsHandler) Mount(r chi.Router) {
	r.Get("/{resource}/{id}", h.Open)
	r.Put("/{resource}/{id}", h.Update)
	r.Delete("/{resource}/{id}", h.Close)
	r.Post("/{resource}/{id}/flush", h.Flush)
}

type draftTarget struct {
	tenant   services.Tenant
	resource entities.Resource
	id       string
}

func (h *DraftsHandler) target(r *http.Request) (draftTarget, error) {
	tenant, err := tenantFrom(r)
	if err != nil {
		return draftTarget{}, err
	}
	resource, err := entities.ParseResource(chi.URLParam(r, "resource"))
	if err != nil || !resource.Draftable() {
		return draftTarget{}, apperrors.NewNotFoundError("draft resource")
	}
	return draftTarget{tenant: tenant, resource: resource, id: chi.URLParam(r, "id")}, nil
}

// Open handles GET /drafts/{resource}/{id}. It opens the session when none
// exists.
func (h *DraftsHandler) Open(w http.ResponseWriter, r *http.Request) {
	t, err := h.target(r)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	status, err := h.drafts.Open(r.Context(), t.tenant, t.resource, t.id)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, status)
}

// Update handles PUT /drafts/{resource}/{id}
func (h *DraftsHandler) Update(w http.ResponseWriter, r *http.Request) {
	t, err := h.target(r)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	var doc map[string]any
	if err := api.DecodeJSON(r, &doc); err != nil {
		h.errs.Handle(w, r, invalidBody(err))
		return
	}
	status, err := h.drafts.Update(r.Context(), t.tenant, t.resource, t.id, doc)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	api.Success(w, http.StatusAccepted, status)
}

// Flush handles POST /drafts/{resource}/{id}/flush
func (h *DraftsHandler) Flush(w http.ResponseWriter, r *http.Request) {
	t, err := h.target(r)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	status, err := h.drafts.Flush(r.Context(), t.tenant, t.resource, t.id)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, status)
}

// Close handles DELETE /drafts/{resource}/{id}
func (h *DraftsHandler) Close(w http.ResponseWriter, r *http.Request) {
	t, err := h.target(r)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	if err := h.drafts.Close(r.Context(), t.tenant, t.resource, t.id); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
