package recipe

import (
	"context"
	"log/slog"

	"github.com/socialchef/sizzle/internal/recipes"
)

// Cache stores generated recipes by query. Implementations treat every
// failure as a miss.
type Cache interface {
	Get(ctx context.Context, query string) (*recipes.Recipe, bool)
	Set(ctx context.Context, query string, recipe *recipes.Recipe)
}

// CachingProvider answers repeated queries from a cache before asking next.
type CachingProvider struct {
	next  RecipeProvider
	cache Cache
}

// NewCachingProvider returns next unchanged when cache is nil.
func NewCachingProvider(next RecipeProvider, cache Cache) RecipeProvider {
	if cache == nil {
		return next
	}
	return &CachingProvider{next: next, cache: cache}
}

func (c *CachingProvider) GenerateRecipe(ctx context.Context, query string) (*recipes.Recipe, error) {
	if cached, ok := c.cache.Get(ctx, query); ok {
		slog.DebugContext(ctx, "Recipe cache hit", "query", query)
		return cached, nil
	}

	recipe, err := c.next.GenerateRecipe(ctx, query)
	if err != nil {
		return nil, err
	}
	c.cache.Set(ctx, query, recipe)
	return recipe, nil
}

func (c *CachingProvider) Name() string {
	return providerName(c.next, "cached")
}
