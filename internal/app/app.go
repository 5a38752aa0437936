// Package app assembles the collaborators shared by the server, the queue
// worker and sizzlectl.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/socialchef/sizzle/internal/config"
	"github.com/socialchef/sizzle/internal/db"
	"github.com/socialchef/sizzle/internal/logger"
	"github.com/socialchef/sizzle/internal/metrics"
	"github.com/socialchef/sizzle/internal/recipes"
	"github.com/socialchef/sizzle/internal/sentry"
	"github.com/socialchef/sizzle/internal/services/imagegen"
	"github.com/socialchef/sizzle/internal/services/storage"
	"github.com/socialchef/sizzle/internal/telemetry"
	"github.com/socialchef/sizzle/internal/utils"
	"github.com/socialchef/sizzle/internal/worker"
)

// InitObservability sets up logging, tracing, metrics and Sentry for one
// binary. The returned function flushes everything on shutdown.
func InitObservability(ctx context.Context, cfg *config.Config, component string) func(context.Context) {
	serviceName := cfg.ServiceName
	if component != "" {
		serviceName += "-" + component
	}

	shutdown, err := telemetry.InitTelemetry(ctx, serviceName, cfg.ServiceVersion, cfg.Env,
		cfg.OtelExporterOTLPEndpoint, telemetry.ParseHeaders(cfg.OtelExporterOTLPHeaders))
	if err != nil {
		slog.Warn("Failed to init telemetry", "error", err)
		shutdown = func(context.Context) error { return nil }
	}

	slog.SetDefault(logger.New(cfg.Env))

	if err := sentry.Init(sentry.Options{
		DSN:       cfg.SentryDSN,
		Env:       cfg.Env,
		Service:   serviceName,
		Version:   cfg.ServiceVersion,
		Component: component,
	}); err != nil {
		slog.Warn("Failed to init Sentry", "error", err)
	}
	if err := metrics.Init(); err != nil {
		slog.Warn("Failed to init business metrics", "error", err)
	}

	return func(ctx context.Context) {
		sentry.Flush(2 * time.Second)
		if err := shutdown(ctx); err != nil {
			slog.Warn("Telemetry shutdown failed", "error", err)
		}
	}
}

type Options struct {
	// ForcePool dispatches in-process even when the config selects the queue.
	ForcePool bool
}

// App is the wired step-image pipeline on top of the recipe store.
type App struct {
	Config     *config.Config
	DB         *pgxpool.Pool
	Store      *db.Store
	Recipes    *recipes.Service
	Generator  *worker.StepImageGenerator
	Dispatcher worker.Dispatcher

	pool  *worker.Pool
	queue *asynq.Client
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{Tracing: cfg.DBTracing})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &App{Config: cfg, DB: pool, Store: db.NewStore(pool)}
	a.Recipes = recipes.NewService(a.Store)

	objects, err := storage.New(ctx, cfg)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to init object storage: %w", err)
	}
	images, err := imagegen.New(cfg)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to init image generator: %w", err)
	}

	genOpts := []worker.GeneratorOption{
		worker.WithRetryConfig(utils.ImageRetryConfig(cfg.ImageGeneration.MaxRetries)),
	}
	if cfg.SupabaseURL != "" && cfg.SupabaseServiceRoleKey != "" {
		genOpts = append(genOpts, worker.WithNotifier(worker.NewImageBroadcaster(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey)))
	}
	a.Generator = worker.NewStepImageGenerator(objects, images, a.Recipes, genOpts...)

	if cfg.Dispatcher.Mode == config.DispatchModeQueue && !opts.ForcePool {
		client, err := worker.NewClient(cfg.RedisURL)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.queue = client
		a.Dispatcher = worker.NewQueueDispatcher(client)
	} else {
		a.pool = worker.NewPool(cfg.Dispatcher.Capacity)
		a.Dispatcher = worker.NewPoolDispatcher(a.pool, a.Generator)
	}
	a.Recipes.SetDispatcher(a.Dispatcher)

	slog.Info("Step image pipeline ready",
		"dispatch_mode", dispatchMode(a),
		"storage", cfg.Storage.Backend,
		"image_provider", images.Name())
	return a, nil
}

func dispatchMode(a *App) string {
	if a.queue != nil {
		return config.DispatchModeQueue
	}
	return config.DispatchModePool
}

// Close drains in-flight pool tasks until ctx expires, then releases the
// queue client and the database pool.
func (a *App) Close(ctx context.Context) {
	if a.pool != nil {
		if err := a.pool.Shutdown(ctx); err != nil {
			slog.Warn("Image pool did not drain", "error", err)
		}
	}
	if a.queue != nil {
		_ = a.queue.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
