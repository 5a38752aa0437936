package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/socialchef/sizzle/internal/httpclient"
)

const DefaultBaseURL = "https://api.openai.com/v1"

var (
	ErrNoResponse = errors.New("no response from model")
	ErrNoImage    = errors.New("no image returned")
)

// Client speaks the OpenAI REST dialect. Groq and Cerebras expose the same
// chat completions API, so the recipe providers reuse it with another base URL.
type Client struct {
	apiKey     string
	baseURL    string
	provider   string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithProviderName sets the name used in spans, metrics and error messages.
func WithProviderName(name string) Option {
	return func(c *Client) { c.provider = name }
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.httpClient = client }
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		provider:   "openai",
		httpClient: httpclient.InstrumentedClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Provider() string {
	return c.provider
}

func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

type ChatRequest struct {
	Model        string
	SystemPrompt string
	UserContent  string
	JSONMode     bool
	Temperature  *float64
}

// Chat runs a single system+user chat completion and returns the first choice.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	body := chatRequest{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserContent},
		},
		Temperature: req.Temperature,
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var resp chatResponse
	if err := c.postJSON(ctx, "/chat/completions", body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrNoResponse
	}
	return resp.Choices[0].Message.Content, nil
}

type ImageRequest struct {
	Model   string
	Prompt  string
	Size    string
	Quality string
	Style   string
}

type ImageResult struct {
	URL           string
	B64JSON       string
	RevisedPrompt string
}

// GenerateImage asks the images endpoint for a single image.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	body := imageRequest{
		Model:          req.Model,
		Prompt:         req.Prompt,
		N:              1,
		Size:           req.Size,
		Quality:        req.Quality,
		Style:          req.Style,
		ResponseFormat: "url",
	}

	var resp imageResponse
	if err := c.postJSON(ctx, "/images/generations", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || (resp.Data[0].URL == "" && resp.Data[0].B64JSON == "") {
		return nil, ErrNoImage
	}
	d := resp.Data[0]
	return &ImageResult{URL: d.URL, B64JSON: d.B64JSON, RevisedPrompt: d.RevisedPrompt}, nil
}
