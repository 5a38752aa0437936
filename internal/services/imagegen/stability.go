package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/socialchef/sizzle/internal/config"
	"github.com/socialchef/sizzle/internal/httpclient"
	"github.com/socialchef/sizzle/internal/metrics"
	"github.com/socialchef/sizzle/internal/services/openai"
)

const stabilityBaseURL = "https://api.stability.ai"

// StabilityGenerator renders step images with Stability AI's stable-image API.
type StabilityGenerator struct {
	apiKey     string
	baseURL    string
	model      string
	size       string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewStabilityGenerator(apiKey string, cfg config.ImageGenerationConfig) *StabilityGenerator {
	model := cfg.Model
	// the shared default names the OpenAI model
	if model == "" || model == "dall-e-3" {
		model = "sd3.5-medium"
	}
	return &StabilityGenerator{
		apiKey:     apiKey,
		baseURL:    stabilityBaseURL,
		model:      model,
		size:       cfg.Size,
		httpClient: httpclient.NewInstrumentedClient(120 * time.Second),
		limiter:    rate.NewLimiter(rate.Limit(perMinute(cfg.RequestsPerMinute)), 1),
	}
}

func (g *StabilityGenerator) Name() string {
	return "stability"
}

type stabilityResponse struct {
	Image        string   `json:"image"`
	Images       []string `json:"images"`
	FinishReason string   `json:"finish_reason"`
	Seed         int64    `json:"seed"`
}

func (g *StabilityGenerator) Generate(ctx context.Context, req Request) (img *Image, err error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	startTime := time.Now()
	defer func() {
		metrics.RecordExternalAPI(ctx, g.Name(), err, time.Since(startTime))
	}()

	size := req.Size
	if size == "" {
		size = g.size
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	fields := map[string]string{
		"prompt":        req.Prompt,
		"model":         g.model,
		"aspect_ratio":  aspectRatio(size),
		"output_format": "png",
	}
	if req.NegativePrompt != "" {
		fields["negative_prompt"] = req.NegativePrompt
	}
	if req.Seed > 0 {
		fields["seed"] = strconv.FormatInt(req.Seed, 10)
	}
	if req.Guidance > 0 {
		fields["cfg_scale"] = strconv.FormatFloat(req.Guidance, 'f', -1, 64)
	}
	for k, v := range fields {
		if err := form.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(httpclient.WithProvider(ctx, g.Name()), http.MethodPost,
		g.baseURL+"/v2beta/stable-image/generate/sd3", &body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, wrapProviderError(g.Name(), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapProviderError(g.Name(), err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, wrapProviderError(g.Name(), &openai.APIError{Provider: g.Name(), StatusCode: resp.StatusCode, Body: string(respBody)})
	}

	var result stabilityResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, wrapProviderError(g.Name(), fmt.Errorf("failed to decode response: %w", err))
	}

	encoded := result.Image
	if encoded == "" && len(result.Images) > 0 {
		encoded = result.Images[0]
	}
	if encoded == "" {
		return nil, wrapProviderError(g.Name(), openai.ErrNoImage)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, wrapProviderError(g.Name(), fmt.Errorf("invalid base64 image: %w", err))
	}
	return &Image{Data: data, ContentType: "image/png"}, nil
}

func aspectRatio(size string) string {
	switch size {
	case "1792x1024":
		return "16:9"
	case "1024x1792":
		return "9:16"
	default:
		return "1:1"
	}
}
