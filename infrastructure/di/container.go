// Package di assembles the application from its configuration.
package di

import (
	"go.uber.org/zap"

	"github.com/alanwallace9/agencytoolkit/application/ports"
	"github.com/alanwallace9/agencytoolkit/application/services"
	"github.com/alanwallace9/agencytoolkit/infrastructure/config"
	"github.com/alanwallace9/agencytoolkit/infrastructure/observability"
	"github.com/alanwallace9/agencytoolkit/infrastructure/persistence"
	"github.com/alanwallace9/agencytoolkit/interfaces/http/rest"
	"github.com/alanwallace9/agencytoolkit/pkg/ratelimit"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	LogLevel     zap.AtomicLevel
	Logger       *zap.Logger
	Metrics      *observability.Collector
	Breaker      *persistence.Breaker
	Repositories *Repositories
	Gate         ratelimit.Gate
	Throttler    *ratelimit.IPThrottler
	Publisher    ports.EventPublisher
	Entitlements *services.Entitlements
	Agencies     *services.AgencyService
	Resources    *Resources
	Images       *services.ImageService
	Embed        *services.EmbedService
	Export       *services.ExportService
	Drafts       *services.DraftService
	Router       *rest.Router
}

// RegisterComponents subscribes the hot-reloadable parts of the container
// to configuration changes.
func (c *Container) RegisterComponents(watcher *config.ConfigWatcher) {
	watcher.RegisterComponent("logging", func(cfg *config.Config) error {
		return c.LogLevel.UnmarshalText([]byte(cfg.Logging.Level))
	})
	watcher.RegisterComponent("throttle", func(cfg *config.Config) error {
		c.Throttler.SetLimit(cfg.RateLimit.Throttle.Requests, cfg.RateLimit.Throttle.Window)
		return nil
	})
	watcher.RegisterComponent("gates", func(cfg *config.Config) error {
		c.Images.SetWindow(cfg.RateLimit.UploadWindow)
		c.Embed.SetWindow(cfg.RateLimit.ProofWindow)
		c.Export.SetWindow(cfg.RateLimit.ExportWindow)
		return nil
	})
	watcher.RegisterComponent("entitlements", func(cfg *config.Config) error {
		c.Entitlements.SetFreeCustomerLimit(cfg.Entitlements.FreeCustomerLimit)
		return nil
	})
	watcher.RegisterComponent("drafts", func(cfg *config.Config) error {
		c.Drafts.SetDebounce(cfg.Autosave.Debounce)
		return nil
	})
}
