package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/alanwallace9/agencytoolkit/application/services"
	"github.com/alanwallace9/agencytoolkit/domain/core/valueobjects"
	"github.com/alanwallace9/agencytoolkit/pkg/api"
	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
	"github.com/alanwallace9/agencytoolkit/pkg/imaging"
	"github.com/alanwallace9/agencytoolkit/pkg/validation"
)

// multipartOverhead is the slack allowed above MaxUploadBytes for form framing.
const multipartOverhead = 1 << 20

// ToolkitHandler serves the tenant routes that are not plain CRUD.
type ToolkitHandler struct {
	agencies *services.AgencyService
	export   *services.ExportService
	images   *services.ImageService
	embed    *services.EmbedService
	errs     *apperrors.ErrorHandler
	logger   *zap.Logger
}

// NewToolkitHandler creates a ToolkitHandler.
func NewToolkitHandler(
	agencies *services.AgencyService,
	export *services.ExportService,
	images *services.ImageService,
	embed *services.EmbedService,
	errs *apperrors.ErrorHandler,
	logger *zap.Logger,
) *ToolkitHandler {
	return &ToolkitHandler{
		agencies: agencies,
		export:   export,
		images:   images,
		embed:    embed,
		errs:     errs,
		logger:   logger,
	}
}

// SnapRequest is a drop point inside a frame.
type SnapRequest struct {
	X      float64 `json:"x" validate:"gte=0"`
	Y      float64 `json:"y" validate:"gte=0"`
	Width  float64 `json:"width" validate:"gt=0"`
	Height float64 `json:"height" validate:"gt=0"`
}

// SnapResponse is the anchor nearest to the drop point.
type SnapResponse struct {
	Position valueobjects.Position `json:"position"`
	X        float64               `json:"x"`
	Y        float64               `json:"y"`
}

// GetAgency handles GET /agency
func (h *ToolkitHandler) GetAgency(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantFrom(r)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	agency, err := h.agencies.Get(r.Context(), tenant.AgencyID)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, agency)
}

// ExportCustomers handles GET /customers/export.csv
func (h *ToolkitHandler) ExportCustomers(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantFrom(r)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	data, err := h.export.ExportCustomers(r.Context(), tenant)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="customers.csv"`)
	writeBytes(w, "text/csv; charset=utf-8", data)
}

// UploadImage handles POST /images/{id}/upload
func (h *ToolkitHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantFrom(r)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+multipartOverhead)
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errs.Handle(w, r, apperrors.NewValidationError("image is too large").WithCause(err))
			return
		}
		h.errs.Handle(w, r, apperrors.NewValidationError("multipart field \"file\" is required").WithCause(err))
		return
	}
	defer file.Close()

	// One byte past the cap lets the service report the size error.
	data, err := io.ReadAll(io.LimitReader(file, imaging.MaxUploadBytes+1))
	if err != nil {
		h.errs.Handle(w, r, invalidBody(err))
		return
	}

	updated, err := h.images.Upload(r.Context(), tenant, chi.URLParam(r, "id"), data)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, updated)
}

// RenderImage handles GET /images/{id}/render
func (h *ToolkitHandler) RenderImage(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantFrom(r)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	data, err := h.images.Render(r.Context(), tenant, chi.URLParam(r, "id"), r.URL.Query().Get("name"))
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeBytes(w, "image/png", data)
}

// SnapPosition handles POST /widgets/position/snap
func (h *ToolkitHandler) SnapPosition(w http.ResponseWriter, r *http.Request) {
	var req SnapRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		h.errs.Handle(w, r, invalidBody(err))
		return
	}
	if err := validation.Struct(req); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	pos := valueobjects.NearestPosition(req.X, req.Y, req.Width, req.Height)
	x, y := pos.Point(req.Width, req.Height)
	api.Success(w, http.StatusOK, SnapResponse{Position: pos, X: x, Y: y})
}

// WidgetEvents handles GET /widgets/{id}/events
func (h *ToolkitHandler) WidgetEvents(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantFrom(r)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	limit := api.ParseLimit(r, api.DefaultListLimit, api.MaxListLimit)
	list, err := h.embed.TenantProof(r.Context(), tenant, chi.URLParam(r, "id"), limit)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, list)
}
