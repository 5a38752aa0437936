package recipe

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/socialchef/sizzle/internal/errors"
	"github.com/socialchef/sizzle/internal/metrics"
	"github.com/socialchef/sizzle/internal/recipes"
	"github.com/socialchef/sizzle/internal/services/ai"
	"github.com/socialchef/sizzle/internal/services/openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	GroqBaseURL     = "https://api.groq.com/openai/v1"
	CerebrasBaseURL = "https://api.cerebras.ai/v1"

	DefaultOpenAIModel   = "gpt-4o"
	DefaultGroqModel     = "llama-3.3-70b-versatile"
	DefaultCerebrasModel = "llama-3.3-70b"
)

const recipeTemperature = 0.7

// Chatter is the slice of the OpenAI-compatible client the providers need.
type Chatter interface {
	Chat(ctx context.Context, req openai.ChatRequest) (string, error)
	Provider() string
	Configured() bool
}

// ChatProvider generates recipes through any OpenAI-compatible chat
// completions endpoint (OpenAI, Groq, Cerebras).
type ChatProvider struct {
	client Chatter
	model  string
}

func NewChatProvider(client Chatter, model string) *ChatProvider {
	return &ChatProvider{client: client, model: model}
}

func NewOpenAIProvider(apiKey, model string) *ChatProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return NewChatProvider(openai.NewClient(apiKey), model)
}

func NewGroqProvider(apiKey string) *ChatProvider {
	client := openai.NewClient(apiKey, openai.WithBaseURL(GroqBaseURL), openai.WithProviderName(string(ProviderGroq)))
	return NewChatProvider(client, DefaultGroqModel)
}

func NewCerebrasProvider(apiKey string) *ChatProvider {
	client := openai.NewClient(apiKey, openai.WithBaseURL(CerebrasBaseURL), openai.WithProviderName(string(ProviderCerebras)))
	return NewChatProvider(client, DefaultCerebrasModel)
}

func (p *ChatProvider) Name() string {
	return p.client.Provider()
}

func (p *ChatProvider) Model() string {
	return p.model
}

func (p *ChatProvider) Configured() bool {
	return p.client.Configured()
}

// GenerateRecipe asks the model for a JSON recipe and parses it.
func (p *ChatProvider) GenerateRecipe(ctx context.Context, query string) (*recipes.Recipe, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewValidationError("query is required", "QUERY_REQUIRED", "Describe the dish you want a recipe for.")
	}
	if !p.client.Configured() {
		return nil, apperrors.NewRecipeGenerationError(
			fmt.Sprintf("%s is not configured", p.Name()), "PROVIDER_NOT_CONFIGURED", nil)
	}

	ctx, span := otel.Tracer("sizzle/recipe").Start(ctx, "recipe.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("provider", p.Name()),
		attribute.String("model", p.model),
	)

	startTime := time.Now()
	defer func() {
		metrics.RecordAIGeneration(ctx, p.Name(), time.Since(startTime))
	}()

	temperature := recipeTemperature
	content, err := p.client.Chat(ctx, openai.ChatRequest{
		Model:        p.model,
		SystemPrompt: ai.BuildRecipePrompt(),
		UserContent:  ai.BuildRecipeRequest(query),
		JSONMode:     true,
		Temperature:  &temperature,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat completion failed")
		return nil, fmt.Errorf("%s chat completion failed: %w", p.Name(), err)
	}

	recipe, err := ParseRecipe(content)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid recipe response")
		return nil, fmt.Errorf("%s returned an unusable recipe: %w", p.Name(), err)
	}
	span.SetAttributes(attribute.Int("steps", len(recipe.Steps)))
	return recipe, nil
}
