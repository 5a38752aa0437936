package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/socialchef/sizzle/internal/errors"
	"github.com/socialchef/sizzle/internal/httpclient"
)

// SupabaseStore talks to the Supabase Storage REST API with the service role key.
type SupabaseStore struct {
	supabaseURL string
	serviceKey  string
	bucket      string
	httpClient  *http.Client
}

func NewSupabaseStore(supabaseURL, serviceKey, bucket string) *SupabaseStore {
	return &SupabaseStore{
		supabaseURL: supabaseURL,
		serviceKey:  serviceKey,
		bucket:      bucket,
		httpClient:  httpclient.NewInstrumentedClient(60 * time.Second),
	}
}

func (c *SupabaseStore) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	ctx = httpclient.WithProvider(ctx, "supabase-storage")
	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.supabaseURL, c.bucket, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewStorageError("supabase upload failed", "STORAGE_UPLOAD_FAILED", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", apperrors.NewStorageError("supabase upload failed", "STORAGE_UPLOAD_FAILED", resp.StatusCode,
			fmt.Errorf("%w: %s", ErrUploadFailed, string(body)))
	}

	return c.PublicURL(path), nil
}

// Exists probes the public object URL. Supabase answers 400 or 404 for missing objects.
func (c *SupabaseStore) Exists(ctx context.Context, path string) (bool, error) {
	ctx = httpclient.WithProvider(ctx, "supabase-storage")
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.PublicURL(path), nil)
	if err != nil {
		return false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, apperrors.NewStorageError("supabase existence check failed", "STORAGE_HEAD_FAILED", 0, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusBadRequest:
		return false, nil
	default:
		return false, apperrors.NewStorageError("supabase existence check failed", "STORAGE_HEAD_FAILED", resp.StatusCode,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
}

func (c *SupabaseStore) PublicURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.supabaseURL, c.bucket, path)
}
