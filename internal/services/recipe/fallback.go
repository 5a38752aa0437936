package recipe

import (
	"context"
	"log/slog"

	"github.com/socialchef/sizzle/internal/errors"
	"github.com/socialchef/sizzle/internal/metrics"
	"github.com/socialchef/sizzle/internal/recipes"
)

// FallbackProvider implements RecipeProvider with fallback logic
type FallbackProvider struct {
	primary   RecipeProvider
	secondary RecipeProvider
}

// NewFallbackProvider creates a new fallback provider
func NewFallbackProvider(primary, secondary RecipeProvider) *FallbackProvider {
	return &FallbackProvider{
		primary:   primary,
		secondary: secondary,
	}
}

// GenerateRecipe tries the primary provider first, falls back to secondary on retryable errors
func (f *FallbackProvider) GenerateRecipe(ctx context.Context, query string) (*recipes.Recipe, error) {
	result, err := f.primary.GenerateRecipe(ctx, query)
	if err == nil {
		return result, nil
	}

	from, to := providerName(f.primary, "primary"), providerName(f.secondary, "secondary")
	providerErr := ClassifyError(err, from)

	if !IsRetryableError(err) {
		slog.InfoContext(ctx, "Primary provider failed with non-retryable error, not attempting fallback",
			"provider", from,
			"error_type", providerErr.Type,
			"error", err.Error())
		return nil, err
	}

	slog.InfoContext(ctx, "Primary provider failed with retryable error, attempting fallback",
		"provider", from,
		"fallback", to,
		"error_type", providerErr.Type,
		"error", err.Error())
	metrics.RecordFallback(ctx, from, to)

	result, fallbackErr := f.secondary.GenerateRecipe(ctx, query)
	if fallbackErr == nil {
		slog.InfoContext(ctx, "Fallback provider succeeded",
			"fallback", to,
			"primary_error_type", providerErr.Type)
		return result, nil
	}

	fallbackProviderErr := ClassifyError(fallbackErr, to)
	slog.ErrorContext(ctx, "Both primary and secondary providers failed",
		"primary_error_type", providerErr.Type,
		"primary_error", err.Error(),
		"fallback_error_type", fallbackProviderErr.Type,
		"fallback_error", fallbackErr.Error())

	return nil, errors.NewRecipeGenerationError(
		"both primary and secondary providers failed",
		"PROVIDER_FALLBACK_FAILED",
		err,
	)
}

func providerName(p RecipeProvider, fallback string) string {
	if named, ok := p.(interface{ Name() string }); ok {
		return named.Name()
	}
	return fallback
}
