package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/alanwallace9/agencytoolkit/application/services"
	"github.com/alanwallace9/agencytoolkit/interfaces/http/rest/middleware"
	"github.com/alanwallace9/agencytoolkit/pkg/api"
	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
)

// EmbedHandler serves the public routes used by the embed script.
type EmbedHandler struct {
	embed *services.EmbedService
	errs  *apperrors.ErrorHandler
}

// NewEmbedHandler creates an EmbedHandler.
func NewEmbedHandler(embed *services.EmbedService, errs *apperrors.ErrorHandler) *EmbedHandler {
	return &EmbedHandler{embed: embed, errs: errs}
}

// Mount registers the embed routes on r, which is rooted at /embed/{embedKey}.
func (h *EmbedHandler) Mount(r chi.Router) {
	r.Get("/config", h.Config)
	r.Get("/images/{id}.png", h.Image)
	r.Post("/widgets/{id}/events", h.RecordEvent)
	r.Get("/widgets/{id}/events", h.Events)
}

// Config handles GET /embed/{embedKey}/config
func (h *EmbedHandler) Config(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.embed.Config(r.Context(), chi.URLParam(r, "embedKey"))
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=60")
	api.Success(w, http.StatusOK, cfg)
}

// Image handles GET /embed/{embedKey}/images/{id}.png
func (h *EmbedHandler) Image(w http.ResponseWriter, r *http.Request) {
	data, err := h.embed.RenderImage(r.Context(), chi.URLParam(r, "embedKey"), chi.URLParam(r, "id"), r.URL.Query().Get("name"))
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	writeBytes(w, "image/png", data)
}

// RecordEvent handles POST /embed/{embedKey}/widgets/{id}/events
func (h *EmbedHandler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	var in services.ProofInput
	if err := api.DecodeJSON(r, &in); err != nil {
		h.errs.Handle(w, r, invalidBody(err))
		return
	}
	view, err := h.embed.RecordProof(r.Context(), chi.URLParam(r, "embedKey"), chi.URLParam(r, "id"), middleware.ClientIP(r), in)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	api.Success(w, http.StatusCreated, view)
}

// Events handles GET /embed/{embedKey}/widgets/{id}/events
func (h *EmbedHandler) Events(w http.ResponseWriter, r *http.Request) {
	limit := api.ParseLimit(r, services.DefaultEmbedProofLimit, services.EmbedProofLimit)
	list, err := h.embed.RecentProof(r.Context(), chi.URLParam(r, "embedKey"), chi.URLParam(r, "id"), limit)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, list)
}
