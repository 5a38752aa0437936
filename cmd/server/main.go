package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/socialchef/sizzle/internal/api"
	"github.com/socialchef/sizzle/internal/app"
	"github.com/socialchef/sizzle/internal/cache"
	"github.com/socialchef/sizzle/internal/config"
	"github.com/socialchef/sizzle/internal/sentry"
	"github.com/socialchef/sizzle/internal/services/openai"
	"github.com/socialchef/sizzle/internal/services/recipe"
)

func main() {
	defer sentry.Recover()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.RequireAuth(); err != nil {
		log.Fatalf("Invalid auth config: %v", err)
	}

	flush := app.InitObservability(ctx, cfg, "")
	defer flush(context.Background())

	a, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Dispatcher.WaitTimeout)
		defer cancel()
		a.Close(drainCtx)
	}()

	provider := recipe.NewProvider(cfg)
	if cfg.RecipeCacheEnabled {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("Recipe cache disabled", "error", err)
		} else {
			defer rdb.Close()
			provider = recipe.NewCachingProvider(provider, cache.NewRecipeCache(rdb, cache.DefaultRecipeTTL))
		}
	}

	var opts []api.Option
	if cfg.OpenAIKey != "" {
		opts = append(opts, api.WithQueryChecker(openai.NewClient(cfg.OpenAIKey), "gpt-4o-mini"))
	}
	srv := api.NewServer(cfg, a.Recipes, provider, a.Store, opts...)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(srv),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Port, "env", cfg.Env, "dispatch_mode", cfg.Dispatcher.Mode)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
}
