package recipe

import (
	"github.com/socialchef/sizzle/internal/config"
)

// NewProvider creates the recipe provider selected by the configuration,
// wrapped in a FallbackProvider when a distinct, configured fallback exists.
func NewProvider(cfg *config.Config) RecipeProvider {
	rg := cfg.RecipeGeneration
	primary := newChatProvider(cfg, ProviderType(rg.Provider), rg.Model)

	if !rg.FallbackEnabled || rg.FallbackProvider == "" || rg.FallbackProvider == rg.Provider {
		return primary
	}

	secondary := newChatProvider(cfg, ProviderType(rg.FallbackProvider), "")
	if !secondary.Configured() {
		return primary
	}
	return NewFallbackProvider(primary, secondary)
}

func newChatProvider(cfg *config.Config, t ProviderType, model string) *ChatProvider {
	switch t {
	case ProviderGroq:
		return NewGroqProvider(cfg.GroqKey)
	case ProviderCerebras:
		return NewCerebrasProvider(cfg.CerebrasKey)
	default:
		return NewOpenAIProvider(cfg.OpenAIKey, model)
	}
}
