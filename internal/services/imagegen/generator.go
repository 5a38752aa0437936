package imagegen

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/socialchef/sizzle/internal/config"
	apperrors "github.com/socialchef/sizzle/internal/errors"
	"github.com/socialchef/sizzle/internal/services/openai"
)

// Request carries a prompt plus the generation parameters providers understand.
// Providers ignore the fields they have no equivalent for.
type Request struct {
	Prompt         string
	NegativePrompt string
	Size           string
	Seed           int64
	Guidance       float64
}

// Image is either a URL to fetch or the raw bytes, depending on the provider.
type Image struct {
	URL           string
	Data          []byte
	ContentType   string
	RevisedPrompt string
}

type Generator interface {
	Generate(ctx context.Context, req Request) (*Image, error)
	Name() string
}

// New returns the generator selected by cfg.ImageGeneration.Provider.
func New(cfg *config.Config) (Generator, error) {
	ig := cfg.ImageGeneration
	switch ig.Provider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for openai image generation")
		}
		return NewOpenAIGenerator(openai.NewClient(cfg.OpenAIKey), ig), nil
	case "stability":
		if cfg.StabilityKey == "" {
			return nil, fmt.Errorf("STABILITY_API_KEY is required for stability image generation")
		}
		return NewStabilityGenerator(cfg.StabilityKey, ig), nil
	default:
		return nil, fmt.Errorf("unknown image provider: %s", ig.Provider)
	}
}

// wrapProviderError turns provider failures into image generation AppErrors
// carrying the upstream status, so retry decisions see 4xx vs 5xx.
func wrapProviderError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			rl := apperrors.NewRateLimitError(provider+" rate limited image generation", "IMAGE_RATE_LIMITED", "Retry later")
			rl.Err = err
			return rl
		}
		return apperrors.NewImageGenerationError(provider+" image generation failed", "IMAGE_PROVIDER_ERROR", apiErr.StatusCode, err)
	}
	return apperrors.NewImageGenerationError(provider+" image generation failed", "IMAGE_PROVIDER_ERROR", 0, err)
}

func perMinute(n int) float64 {
	if n <= 0 {
		n = 50
	}
	return float64(n) / 60
}
