package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/socialchef/sizzle/internal/recipes"
)

// DefaultRecipeTTL is how long a generated recipe is served from cache.
const DefaultRecipeTTL = 24 * time.Hour

// RecipeCache provides Redis-backed caching for generated recipes keyed by
// the normalised query. A nil cache or client is a permanent miss.
type RecipeCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRecipeCache creates a new recipe cache with the given Redis client.
// A non-positive ttl uses DefaultRecipeTTL.
func NewRecipeCache(client *redis.Client, ttl time.Duration) *RecipeCache {
	if ttl <= 0 {
		ttl = DefaultRecipeTTL
	}
	return &RecipeCache{
		client: client,
		prefix: "recipe:",
		ttl:    ttl,
	}
}

// NormalizeQuery lowercases the query and collapses whitespace.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Key returns the Redis key for query.
func (c *RecipeCache) Key(query string) string {
	hash := sha256.Sum256([]byte(NormalizeQuery(query)))
	return fmt.Sprintf("%s%x", c.prefix, hash)
}

// Get retrieves a cached recipe. Redis or decoding failures count as misses.
func (c *RecipeCache) Get(ctx context.Context, query string) (*recipes.Recipe, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, c.Key(query)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.WarnContext(ctx, "Redis cache get failed", "error", err)
		return nil, false
	}

	var recipe recipes.Recipe
	if err := json.Unmarshal(data, &recipe); err != nil {
		slog.WarnContext(ctx, "Failed to unmarshal cached recipe", "error", err)
		return nil, false
	}
	return &recipe, true
}

// Set stores a recipe. Failures are logged and otherwise ignored.
func (c *RecipeCache) Set(ctx context.Context, query string, recipe *recipes.Recipe) {
	if c == nil || c.client == nil || recipe == nil {
		return
	}

	data, err := json.Marshal(recipe)
	if err != nil {
		slog.WarnContext(ctx, "Failed to marshal recipe for cache", "error", err)
		return
	}
	if err := c.client.Set(ctx, c.Key(query), data, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "Redis cache set failed", "error", err)
	}
}

// Delete evicts the cached recipe for query.
func (c *RecipeCache) Delete(ctx context.Context, query string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.Key(query)).Err()
}
