package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/socialchef/sizzle/internal/httpclient"
)

// StepImageEvent is the realtime payload sent when a step image task finishes.
type StepImageEvent struct {
	RecipeID int64 `json:"recipe_id"`
	Result
}

// ImageBroadcaster publishes finished step images to the Supabase Realtime
// channel recipe:{id}:images so clients can swap placeholders as images land.
type ImageBroadcaster struct {
	supabaseURL string
	serviceKey  string
	httpClient  *http.Client
}

func NewImageBroadcaster(supabaseURL, serviceKey string) *ImageBroadcaster {
	return &ImageBroadcaster{
		supabaseURL: strings.TrimRight(supabaseURL, "/"),
		serviceKey:  serviceKey,
		httpClient:  httpclient.NewInstrumentedClient(10 * time.Second),
	}
}

func Channel(recipeID int64) string {
	return fmt.Sprintf("recipe:%d:images", recipeID)
}

func (b *ImageBroadcaster) ImageReady(ctx context.Context, recipeID int64, result Result) error {
	payload := map[string]any{
		"messages": []map[string]any{{
			"topic":   Channel(recipeID),
			"event":   "step_image",
			"payload": StepImageEvent{RecipeID: recipeID, Result: result},
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast payload: %w", err)
	}

	url := b.supabaseURL + "/realtime/v1/api/broadcast"
	req, err := http.NewRequestWithContext(httpclient.WithProvider(ctx, "supabase_realtime"), http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+b.serviceKey)
	req.Header.Set("apikey", b.serviceKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to broadcast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("broadcast failed with status %d", resp.StatusCode)
	}
	return nil
}
