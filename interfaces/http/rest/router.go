// Package rest wires the HTTP routes, middleware and handlers.
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/swaggo/swag"
	"go.uber.org/zap"

	_ "github.com/alanwallace9/agencytoolkit/docs"
	"github.com/alanwallace9/agencytoolkit/domain/core/entities"
	"github.com/alanwallace9/agencytoolkit/infrastructure/config"
	"github.com/alanwallace9/agencytoolkit/infrastructure/observability"
	"github.com/alanwallace9/agencytoolkit/interfaces/http/rest/handlers"
	"github.com/alanwallace9/agencytoolkit/interfaces/http/rest/middleware"
	"github.com/alanwallace9/agencytoolkit/pkg/api"
	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
	"github.com/alanwallace9/agencytoolkit/pkg/ratelimit"
)

// resourceOrder is the mount order of the CRUD collections.
var resourceOrder = []entities.Resource{
	entities.ResourceCustomers,
	entities.ResourceThemes,
	entities.ResourceTours,
	entities.ResourceChecklists,
	entities.ResourceWidgets,
	entities.ResourceImages,
}

// Mounter registers a handler's routes on a sub-router.
type Mounter interface {
	Mount(r chi.Router)
}

// Dependencies are the collaborators the router needs. Metrics and Ready
// are optional.
type Dependencies struct {
	Config    *config.Config
	Logger    *zap.Logger
	Errors    *apperrors.ErrorHandler
	Agencies  middleware.Authenticator
	Throttler ratelimit.Throttler
	Metrics   *observability.Collector
	Resources map[entities.Resource]Mounter
	Toolkit   *handlers.ToolkitHandler
	Drafts    *handlers.DraftsHandler
	Embed     *handlers.EmbedHandler
	Ready     func(ctx context.Context) error
}

// Router builds the HTTP handler tree.
type Router struct {
	deps Dependencies
}

// NewRouter creates a new router
func NewRouter(deps Dependencies) *Router {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Errors == nil {
		deps.Errors = apperrors.NewErrorHandler(deps.Logger)
	}
	return &Router{deps: deps}
}

// Setup configures and returns the HTTP handler
func (rt *Router) Setup() http.Handler {
	cfg := rt.deps.Config
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(rt.deps.Errors.Middleware)
	router.Use(middleware.Logger(rt.deps.Logger))
	if cfg.Tracing.Enabled {
		router.Use(observability.TracingMiddleware(cfg.Tracing.ServiceName))
	}
	if rt.deps.Metrics != nil {
		router.Use(observability.MetricsMiddleware(rt.deps.Metrics))
	}
	if cfg.Server.RequestTimeout > 0 {
		router.Use(chimiddleware.Timeout(cfg.Server.RequestTimeout))
	}

	router.Get("/health", rt.handleHealth)
	router.Get("/ready", rt.handleReady)
	router.Get("/swagger/doc.json", rt.handleSwagger)
	if rt.deps.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.deps.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "Retry-After", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           cfg.CORS.MaxAge,
		}))
		r.Use(middleware.Authenticate(rt.deps.Agencies, rt.deps.Errors))

		for _, res := range resourceOrder {
			h, ok := rt.deps.Resources[res]
			if !ok {
				continue
			}
			r.Route("/"+string(res), func(r chi.Router) {
				rt.mountExtras(r, res)
				h.Mount(r)
			})
		}

		r.Get("/agency", rt.deps.Toolkit.GetAgency)
		r.Route("/drafts", rt.deps.Drafts.Mount)
	})

	router.Route("/embed/{embedKey}", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			ExposedHeaders: []string{"Retry-After"},
			MaxAge:         cfg.CORS.MaxAge,
		}))
		if rt.deps.Throttler != nil {
			var record func(bool)
			if rt.deps.Metrics != nil {
				record = rt.deps.Metrics.RecordThrottle
			}
			r.Use(middleware.Throttle(rt.deps.Throttler, record, rt.deps.Errors, rt.deps.Logger))
		}
		rt.deps.Embed.Mount(r)
	})

	return router
}

// mountExtras registers the non-CRUD routes that live under a collection.
func (rt *Router) mountExtras(r chi.Router, res entities.Resource) {
	t := rt.deps.Toolkit
	switch res {
	case entities.ResourceCustomers:
		r.Get("/export.csv", t.ExportCustomers)
	case entities.ResourceImages:
		r.Post("/{id}/upload", t.UploadImage)
		r.Get("/{id}/render", t.RenderImage)
	case entities.ResourceWidgets:
		r.Post("/position/snap", t.SnapPosition)
		r.Get("/{id}/events", t.WidgetEvents)
	}
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (rt *Router) handleReady(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := rt.deps.Ready(ctx); err != nil {
			rt.deps.Logger.Warn("Readiness check failed", zap.Error(err))
			api.Error(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	api.Success(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (rt *Router) handleSwagger(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		rt.deps.Errors.Handle(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(doc))
}
