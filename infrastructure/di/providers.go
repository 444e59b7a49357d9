package di

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/sony/gobreaker"
	supa "github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"github.com/alanwallace9/agencytoolkit/application/ports"
	"github.com/alanwallace9/agencytoolkit/application/services"
	"github.com/alanwallace9/agencytoolkit/domain/core/entities"
	"github.com/alanwallace9/agencytoolkit/infrastructure/config"
	"github.com/alanwallace9/agencytoolkit/infrastructure/identity"
	"github.com/alanwallace9/agencytoolkit/infrastructure/messaging"
	"github.com/alanwallace9/agencytoolkit/infrastructure/messaging/eventbridge"
	"github.com/alanwallace9/agencytoolkit/infrastructure/observability"
	"github.com/alanwallace9/agencytoolkit/infrastructure/persistence"
	"github.com/alanwallace9/agencytoolkit/infrastructure/persistence/memory"
	supabaserepo "github.com/alanwallace9/agencytoolkit/infrastructure/persistence/supabase"
	gatestore "github.com/alanwallace9/agencytoolkit/infrastructure/ratelimit"
	"github.com/alanwallace9/agencytoolkit/infrastructure/storage"
	"github.com/alanwallace9/agencytoolkit/interfaces/http/rest"
	"github.com/alanwallace9/agencytoolkit/interfaces/http/rest/handlers"
	"github.com/alanwallace9/agencytoolkit/pkg/auth"
	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
	"github.com/alanwallace9/agencytoolkit/pkg/ratelimit"
)

// Repositories are the tenant stores selected by supabase.persistence.
type Repositories struct {
	Customers  ports.Repository[*entities.Customer]
	Themes     ports.Repository[*entities.Theme]
	Tours      ports.Repository[*entities.Tour]
	Checklists ports.Repository[*entities.Checklist]
	Widgets    ports.Repository[*entities.Widget]
	Images     ports.Repository[*entities.ImageTemplate]
	Agencies   ports.AgencyRepository
	Proofs     ports.ProofEventRepository
	Blobs      ports.BlobStore
}

// Resources are the CRUD services, one per collection.
type Resources struct {
	Customers  *services.ResourceService[*entities.Customer]
	Themes     *services.ResourceService[*entities.Theme]
	Tours      *services.ResourceService[*entities.Tour]
	Checklists *services.ResourceService[*entities.Checklist]
	Widgets    *services.ResourceService[*entities.Widget]
	Images     *services.ResourceService[*entities.ImageTemplate]
}

// ProvideLogLevel parses logging.level.
func ProvideLogLevel(cfg *config.Config) (zap.AtomicLevel, error) {
	level, err := zap.ParseAtomicLevel(cfg.Logging.Level)
	if err != nil {
		return zap.AtomicLevel{}, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config, level zap.AtomicLevel) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Environment == config.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = level

	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("environment", string(cfg.Environment))), nil
}

// ProvideCollector creates the Prometheus collector.
func ProvideCollector(cfg *config.Config) *observability.Collector {
	return observability.NewCollector(cfg.Metrics.Namespace)
}

// ProvideBreaker creates the circuit breaker shared by the remote stores.
func ProvideBreaker(collector *observability.Collector, logger *zap.Logger) *persistence.Breaker {
	return persistence.NewBreaker(persistence.DefaultBreakerConfig("supabase"), collector, logger)
}

// ProvideSupabaseClient returns nil when no project URL is configured.
func ProvideSupabaseClient(cfg *config.Config) (*supa.Client, error) {
	if cfg.Supabase.URL == "" || cfg.Supabase.ServiceRoleKey == "" {
		return nil, nil
	}
	client, err := supa.NewClient(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey, nil)
	if err != nil {
		return nil, fmt.Errorf("supabase client: %w", err)
	}
	return client, nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.RateLimit.Region))
}

// ProvideVerifier checks tokens with the JWT secret, falling back to Supabase
// Auth.
func ProvideVerifier(cfg *config.Config, client *supa.Client, logger *zap.Logger) (ports.IdentityVerifier, error) {
	var validator *auth.JWTValidator
	if cfg.Supabase.JWTSecret != "" {
		v, err := auth.NewJWTValidator(cfg.Supabase.JWTSecret, auth.SupabaseAudience)
		if err != nil {
			return nil, err
		}
		validator = v
	}
	if validator == nil && client == nil {
		logger.Warn("No token verifier configured; every authenticated request will be rejected")
		return identity.NewVerifier(nil, nil, logger), nil
	}
	if validator != nil {
		return identity.NewVerifier(validator, nil, logger), nil
	}
	return identity.NewVerifier(nil, client.Auth, logger), nil
}

// ProvideRepositories selects the memory or Supabase stores.
func ProvideRepositories(cfg *config.Config, client *supa.Client, breaker *persistence.Breaker, logger *zap.Logger) (*Repositories, error) {
	switch cfg.Supabase.Persistence {
	case "memory":
		return &Repositories{
			Customers:  memory.NewRepository(entities.ResourceCustomers, func() *entities.Customer { return &entities.Customer{} }),
			Themes:     memory.NewRepository(entities.ResourceThemes, func() *entities.Theme { return &entities.Theme{} }),
			Tours:      memory.NewRepository(entities.ResourceTours, func() *entities.Tour { return &entities.Tour{} }),
			Checklists: memory.NewRepository(entities.ResourceChecklists, func() *entities.Checklist { return &entities.Checklist{} }),
			Widgets:    memory.NewRepository(entities.ResourceWidgets, func() *entities.Widget { return &entities.Widget{} }),
			Images:     memory.NewRepository(entities.ResourceImages, func() *entities.ImageTemplate { return &entities.ImageTemplate{} }),
			Agencies:   memory.NewAgencyRepository(),
			Proofs:     memory.NewProofEventRepository(),
			Blobs:      storage.NewMemoryStore(cfg.Server.PublicBaseURL),
		}, nil
	case "supabase":
		if client == nil {
			return nil, errors.New("supabase persistence requires supabase.url and supabase.service_role_key")
		}
		return &Repositories{
			Customers:  persistence.Guard(supabaserepo.NewRepository[*entities.Customer](client, entities.ResourceCustomers), entities.ResourceCustomers, breaker),
			Themes:     persistence.Guard(supabaserepo.NewRepository[*entities.Theme](client, entities.ResourceThemes), entities.ResourceThemes, breaker),
			Tours:      persistence.Guard(supabaserepo.NewRepository[*entities.Tour](client, entities.ResourceTours), entities.ResourceTours, breaker),
			Checklists: persistence.Guard(supabaserepo.NewRepository[*entities.Checklist](client, entities.ResourceChecklists), entities.ResourceChecklists, breaker),
			Widgets:    persistence.Guard(supabaserepo.NewRepository[*entities.Widget](client, entities.ResourceWidgets), entities.ResourceWidgets, breaker),
			Images:     persistence.Guard(supabaserepo.NewRepository[*entities.ImageTemplate](client, entities.ResourceImages), entities.ResourceImages, breaker),
			Agencies:   supabaserepo.NewAgencyRepository(client),
			Proofs:     supabaserepo.NewProofEventRepository(client),
			Blobs:      storage.NewSupabaseStore(client.Storage, cfg.Supabase.StorageBucket, breaker, logger),
		}, nil
	default:
		return nil, fmt.Errorf("unknown persistence %q", cfg.Supabase.Persistence)
	}
}

// ProvideGate selects the rate gate store and instruments it.
func ProvideGate(cfg *config.Config, awsCfg aws.Config, collector *observability.Collector, logger *zap.Logger) ratelimit.Gate {
	var gate ratelimit.Gate
	switch cfg.RateLimit.Store {
	case "dynamodb":
		gate = gatestore.NewDynamoDBGate(awsdynamodb.NewFromConfig(awsCfg), cfg.RateLimit.DynamoDBTable, cfg.RateLimit.GateTTL, logger)
	default:
		gate = ratelimit.NewMemoryGate()
	}
	return observability.NewInstrumentedGate(gate, collector)
}

// ProvideThrottler creates the per-IP throttle for the embed API.
func ProvideThrottler(cfg *config.Config) *ratelimit.IPThrottler {
	t := ratelimit.NewIPThrottler(cfg.RateLimit.Throttle.Requests)
	t.SetLimit(cfg.RateLimit.Throttle.Requests, cfg.RateLimit.Throttle.Window)
	return t
}

// ProvidePublisher selects the domain event sink.
func ProvidePublisher(cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) ports.EventPublisher {
	if cfg.Events.Provider == "eventbridge" {
		return eventbridge.NewPublisher(awseventbridge.NewFromConfig(awsCfg), cfg.Events.EventBusName, cfg.Events.Source, logger)
	}
	return messaging.NewLogPublisher(logger)
}

// ProvideEntitlements creates the plan checks.
func ProvideEntitlements(cfg *config.Config) *services.Entitlements {
	return services.NewEntitlements(cfg.Entitlements.FreeCustomerLimit)
}

// ProvideAgencyService creates the tenant resolver.
func ProvideAgencyService(repos *Repositories, verifier ports.IdentityVerifier, logger *zap.Logger) *services.AgencyService {
	return services.NewAgencyService(repos.Agencies, verifier, logger)
}

// ProvideResources creates one CRUD service per collection.
func ProvideResources(repos *Repositories, entitlements *services.Entitlements, publisher ports.EventPublisher, logger *zap.Logger) *Resources {
	return &Resources{
		Customers:  services.NewResourceService(entities.ResourceCustomers, repos.Customers, func() *entities.Customer { return &entities.Customer{} }, entitlements, publisher, logger),
		Themes:     services.NewResourceService(entities.ResourceThemes, repos.Themes, func() *entities.Theme { return &entities.Theme{} }, entitlements, publisher, logger),
		Tours:      services.NewResourceService(entities.ResourceTours, repos.Tours, func() *entities.Tour { return &entities.Tour{} }, entitlements, publisher, logger),
		Checklists: services.NewResourceService(entities.ResourceChecklists, repos.Checklists, func() *entities.Checklist { return &entities.Checklist{} }, entitlements, publisher, logger),
		Widgets:    services.NewResourceService(entities.ResourceWidgets, repos.Widgets, func() *entities.Widget { return &entities.Widget{} }, entitlements, publisher, logger),
		Images:     services.NewResourceService(entities.ResourceImages, repos.Images, func() *entities.ImageTemplate { return &entities.ImageTemplate{} }, entitlements, publisher, logger),
	}
}

// ProvideImageService creates the upload and render service.
func ProvideImageService(cfg *config.Config, repos *Repositories, gate ratelimit.Gate, publisher ports.EventPublisher, logger *zap.Logger) *services.ImageService {
	return services.NewImageService(repos.Images, repos.Blobs, gate, cfg.RateLimit.UploadWindow, publisher, logger)
}

// ProvideEmbedService creates the public embed service.
func ProvideEmbedService(cfg *config.Config, agencies *services.AgencyService, repos *Repositories, images *services.ImageService, gate ratelimit.Gate, publisher ports.EventPublisher, logger *zap.Logger) *services.EmbedService {
	return services.NewEmbedService(agencies, services.EmbedRepositories{
		Themes:     repos.Themes,
		Tours:      repos.Tours,
		Checklists: repos.Checklists,
		Widgets:    repos.Widgets,
		Proofs:     repos.Proofs,
	}, images, gate, cfg.RateLimit.ProofWindow, publisher, logger)
}

// ProvideExportService creates the CSV export.
func ProvideExportService(cfg *config.Config, repos *Repositories, gate ratelimit.Gate, logger *zap.Logger) *services.ExportService {
	return services.NewExportService(repos.Customers, gate, cfg.RateLimit.ExportWindow, logger)
}

// ProvideDraftService creates the autosaved draft sessions. The janitor is
// started by the entry point.
func ProvideDraftService(cfg *config.Config, resources *Resources, collector *observability.Collector, logger *zap.Logger) *services.DraftService {
	editors := map[entities.Resource]services.DraftEditor{
		entities.ResourceThemes:     resources.Themes,
		entities.ResourceTours:      resources.Tours,
		entities.ResourceChecklists: resources.Checklists,
		entities.ResourceWidgets:    resources.Widgets,
	}
	return services.NewDraftService(editors, services.DraftConfig{
		Debounce:      cfg.Autosave.Debounce,
		IdleTimeout:   cfg.Drafts.IdleTimeout,
		SweepInterval: cfg.Drafts.SweepInterval,
		Observer:      collector.AutosaveObserver,
	}, logger)
}

// ProvideErrorHandler creates the HTTP error mapper.
func ProvideErrorHandler(logger *zap.Logger) *apperrors.ErrorHandler {
	return apperrors.NewErrorHandler(logger)
}

// ProvideRouter assembles the HTTP routes.
func ProvideRouter(
	cfg *config.Config,
	logger *zap.Logger,
	errs *apperrors.ErrorHandler,
	collector *observability.Collector,
	breaker *persistence.Breaker,
	throttler *ratelimit.IPThrottler,
	agencies *services.AgencyService,
	resources *Resources,
	images *services.ImageService,
	embed *services.EmbedService,
	export *services.ExportService,
	drafts *services.DraftService,
) *rest.Router {
	var metrics *observability.Collector
	if cfg.Metrics.Enabled {
		metrics = collector
	}
	return rest.NewRouter(rest.Dependencies{
		Config:    cfg,
		Logger:    logger,
		Errors:    errs,
		Agencies:  agencies,
		Throttler: throttler,
		Metrics:   metrics,
		Resources: map[entities.Resource]rest.Mounter{
			entities.ResourceCustomers:  handlers.NewResourceHandler(resources.Customers, errs),
			entities.ResourceThemes:     handlers.NewResourceHandler(resources.Themes, errs),
			entities.ResourceTours:      handlers.NewResourceHandler(resources.Tours, errs),
			entities.ResourceChecklists: handlers.NewResourceHandler(resources.Checklists, errs),
			entities.ResourceWidgets:    handlers.NewResourceHandler(resources.Widgets, errs),
			entities.ResourceImages:     handlers.NewResourceHandler(resources.Images, errs),
		},
		Toolkit: handlers.NewToolkitHandler(agencies, export, images, embed, errs, logger),
		Drafts:  handlers.NewDraftsHandler(drafts, errs),
		Embed:   handlers.NewEmbedHandler(embed, errs),
		Ready: func(context.Context) error {
			if breaker.State() == gobreaker.StateOpen {
				return errors.New("persistence circuit is open")
			}
			return nil
		},
	})
}
