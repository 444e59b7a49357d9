package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alanwallace9/agencytoolkit/infrastructure/config"
	"github.com/alanwallace9/agencytoolkit/infrastructure/di"
	"github.com/alanwallace9/agencytoolkit/infrastructure/observability"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("api: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := config.EnvironmentFromEnv()
	loader := config.NewLoader(os.Getenv("CONFIG_DIR"), env)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize container: %w", err)
	}
	logger := container.Logger
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", string(cfg.Environment)),
		zap.Strings("sources", cfg.LoadedFrom),
		zap.String("persistence", cfg.Supabase.Persistence),
		zap.String("gate_store", cfg.RateLimit.Store),
	)

	var tracer *observability.TracerProvider
	if cfg.Tracing.Enabled {
		tracer, err = observability.InitTracing(ctx, observability.TracingConfig{
			ServiceName: cfg.Tracing.ServiceName,
			Environment: string(cfg.Environment),
			Endpoint:    cfg.Tracing.Endpoint,
			SampleRate:  cfg.Tracing.SampleRate,
			Insecure:    cfg.Tracing.Insecure,
		})
		if err != nil {
			return fmt.Errorf("initialize tracing: %w", err)
		}
	}

	watcher, err := config.NewConfigWatcher(cfg, loader, logger)
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer watcher.Stop()
	container.RegisterComponents(watcher)

	container.Drafts.Start()

	servers := []*http.Server{{
		Addr:         cfg.Server.Addr(),
		Handler:      container.Router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}}
	if cfg.Metrics.Enabled && cfg.Metrics.Port != cfg.Server.Port {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, container.Metrics.Handler())
		servers = append(servers, &http.Server{
			Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Metrics.Port),
			Handler:     mux,
			ReadTimeout: cfg.Server.ReadTimeout,
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			logger.Info("Starting server", zap.String("address", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown %s: %w", srv.Addr, err))
			}
		}
		// Pending drafts are saved once no request can touch them.
		container.Drafts.Shutdown(shutdownCtx)
		if tracer != nil {
			if err := tracer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
			}
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return err
	}
	logger.Info("Server stopped")
	return nil
}
