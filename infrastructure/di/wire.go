//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/alanwallace9/agencytoolkit/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogLevel,
	ProvideLogger,
	ProvideCollector,
	ProvideBreaker,
	ProvideSupabaseClient,
	ProvideAWSConfig,
	ProvideVerifier,
	ProvideRepositories,
	ProvideGate,
	ProvideThrottler,
	ProvidePublisher,
	ProvideEntitlements,
	ProvideAgencyService,
	ProvideResources,
	ProvideImageService,
	ProvideEmbedService,
	ProvideExportService,
	ProvideDraftService,
	ProvideErrorHandler,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil
}
