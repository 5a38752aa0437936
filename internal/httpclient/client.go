// Package httpclient builds the traced HTTP clients used for every outbound
// call: model providers, object storage and Supabase Realtime.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type contextKey struct{}

// WithProvider labels outbound requests made with ctx. The label becomes the
// span name prefix and a "provider" span attribute.
func WithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, contextKey{}, provider)
}

func providerOf(ctx context.Context) string {
	p, _ := ctx.Value(contextKey{}).(string)
	return p
}

type providerTransport struct {
	base http.RoundTripper
}

func (t providerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	span := trace.SpanFromContext(req.Context())
	if p := providerOf(req.Context()); p != "" {
		span.SetAttributes(attribute.String("provider", p))
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP status %d", resp.StatusCode))
	}
	return resp, nil
}

func spanName(_ string, r *http.Request) string {
	if p := providerOf(r.Context()); p != "" {
		return fmt.Sprintf("%s: %s %s", p, r.Method, r.URL.Path)
	}
	return r.Method + " " + r.URL.Path
}

// InstrumentedClient is shared by clients that do not need their own timeout.
var InstrumentedClient = NewInstrumentedClient(120 * time.Second)

// NewInstrumentedClient returns a client whose requests are traced with
// otelhttp and labelled by WithProvider.
func NewInstrumentedClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(providerTransport{base: http.DefaultTransport},
			otelhttp.WithSpanNameFormatter(spanName)),
		Timeout: timeout,
	}
}

// MaxDownloadSize caps Download bodies. Generated images are a few MB at most.
const MaxDownloadSize = 32 << 20

// Download fetches url and returns the body with its content type. A missing
// Content-Type header is sniffed from the body.
func Download(ctx context.Context, client *http.Client, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read download body: %w", err)
	}
	if len(data) > MaxDownloadSize {
		return nil, "", fmt.Errorf("download exceeds %d bytes", MaxDownloadSize)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}
