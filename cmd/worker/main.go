package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/socialchef/sizzle/internal/app"
	"github.com/socialchef/sizzle/internal/config"
	"github.com/socialchef/sizzle/internal/sentry"
	"github.com/socialchef/sizzle/internal/telemetry"
	"github.com/socialchef/sizzle/internal/worker"
)

func main() {
	defer sentry.Recover()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.RedisURL == "" {
		log.Fatalf("REDIS_URL is required for the worker")
	}

	flush := app.InitObservability(ctx, cfg, "worker")
	defer flush(context.Background())

	// The worker runs jobs itself; it never re-enqueues them.
	a, err := app.New(ctx, cfg, app.Options{ForcePool: true})
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close(context.Background())

	workerMetrics, err := worker.NewWorkerMetrics()
	if err != nil {
		slog.Warn("Failed to init worker metrics", "error", err)
	}
	processor := worker.NewStepImageProcessor(a.Generator, workerMetrics)

	srv, err := worker.NewServer(cfg.RedisURL, cfg.Dispatcher.Capacity)
	if err != nil {
		log.Fatalf("Failed to create worker: %v", err)
	}

	health := startHealthServer(cfg, a)

	slog.Info("Starting worker", "concurrency", cfg.Dispatcher.Capacity, "queue", worker.QueueStepImages)
	if err := worker.Start(srv, processor.Handlers()); err != nil {
		log.Fatalf("Worker failed: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down worker...")
	srv.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = health.Shutdown(shutdownCtx)
}

// startHealthServer exposes /health for the orchestrator's liveness probe.
func startHealthServer(cfg *config.Config, a *app.App) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.Store.Ping(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("OK"))
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           telemetry.Middleware("worker.health")(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Health server failed", "error", err)
		}
	}()
	return srv
}
