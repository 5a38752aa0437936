package recipe

import (
	"context"

	"github.com/socialchef/sizzle/internal/recipes"
)

// ProviderType represents the type of AI provider
type ProviderType string

const (
	ProviderGroq     ProviderType = "groq"
	ProviderCerebras ProviderType = "cerebras"
	ProviderOpenAI   ProviderType = "openai"
)

// RecipeProvider turns a free-text request into a structured recipe.
type RecipeProvider interface {
	GenerateRecipe(ctx context.Context, query string) (*recipes.Recipe, error)
}
