package imagegen

import (
	"context"
	"encoding/base64"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/socialchef/sizzle/internal/config"
	"github.com/socialchef/sizzle/internal/services/openai"
)

// OpenAIGenerator renders step images with DALL-E.
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	size    string
	quality string
	limiter *rate.Limiter
}

func NewOpenAIGenerator(client *openai.Client, cfg config.ImageGenerationConfig) *OpenAIGenerator {
	return &OpenAIGenerator{
		client:  client,
		model:   cfg.Model,
		size:    cfg.Size,
		quality: cfg.Quality,
		limiter: rate.NewLimiter(rate.Limit(perMinute(cfg.RequestsPerMinute)), 1),
	}
}

func (g *OpenAIGenerator) Name() string {
	return "openai"
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (*Image, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	size := req.Size
	if size == "" {
		size = g.size
	}

	res, err := g.client.GenerateImage(ctx, openai.ImageRequest{
		Model:   g.model,
		Prompt:  req.Prompt,
		Size:    size,
		Quality: g.quality,
	})
	if err != nil {
		return nil, wrapProviderError(g.Name(), err)
	}

	img := &Image{URL: res.URL, RevisedPrompt: res.RevisedPrompt, ContentType: "image/png"}
	if res.URL == "" {
		data, err := base64.StdEncoding.DecodeString(res.B64JSON)
		if err != nil {
			return nil, wrapProviderError(g.Name(), fmt.Errorf("invalid base64 image: %w", err))
		}
		img.Data = data
	}
	return img, nil
}
