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

// PARStore uploads through an Oracle Cloud pre-authenticated request URL.
// The PAR must allow object reads and writes under its prefix.
type PARStore struct {
	parURL     string
	httpClient *http.Client
}

func NewPARStore(parURL string) *PARStore {
	return &PARStore{
		parURL:     parURL,
		httpClient: httpclient.NewInstrumentedClient(60 * time.Second),
	}
}

func (p *PARStore) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	ctx = httpclient.WithProvider(ctx, "oci-par")
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, p.PublicURL(path), bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewStorageError("par upload failed", "STORAGE_UPLOAD_FAILED", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", apperrors.NewStorageError("par upload failed", "STORAGE_UPLOAD_FAILED", resp.StatusCode,
			fmt.Errorf("%w: %s", ErrUploadFailed, string(body)))
	}
	return p.PublicURL(path), nil
}

func (p *PARStore) Exists(ctx context.Context, path string) (bool, error) {
	ctx = httpclient.WithProvider(ctx, "oci-par")
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.PublicURL(path), nil)
	if err != nil {
		return false, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false, apperrors.NewStorageError("par existence check failed", "STORAGE_HEAD_FAILED", 0, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, apperrors.NewStorageError("par existence check failed", "STORAGE_HEAD_FAILED", resp.StatusCode,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
}

func (p *PARStore) PublicURL(path string) string {
	return joinURL(p.parURL, path)
}
