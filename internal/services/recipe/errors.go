package recipe

import (
	"context"
	"errors"
	"net/http"
	"strings"

	apperrors "github.com/socialchef/sizzle/internal/errors"
	"github.com/socialchef/sizzle/internal/services/openai"
)

const (
	ErrorTypeRateLimit       = "rate_limit"
	ErrorTypeCreditExhausted = "credit_exhausted"
	ErrorTypeServerError     = "server_error"
	ErrorTypeClientError     = "client_error"
	ErrorTypeTimeout         = "timeout"
	ErrorTypeInvalidResponse = "invalid_response"
	ErrorTypeUnknown         = "unknown"
)

// ProviderError represents a classified error from an AI provider
type ProviderError struct {
	Type     string
	Message  string
	Provider string
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	return e.Message
}

// ClassifyError analyzes an error and returns a ProviderError with classification
func ClassifyError(err error, provider string) *ProviderError {
	if err == nil {
		return nil
	}
	classified := func(t string) *ProviderError {
		return &ProviderError{Type: t, Message: err.Error(), Provider: provider}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if provider == "" {
			provider = apiErr.Provider
		}
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests && containsAny(apiErr.Body, "insufficient_quota", "quota", "billing"):
			return classified(ErrorTypeCreditExhausted)
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return classified(ErrorTypeRateLimit)
		case apiErr.StatusCode == http.StatusPaymentRequired:
			return classified(ErrorTypeCreditExhausted)
		case apiErr.StatusCode >= 500:
			return classified(ErrorTypeServerError)
		case apiErr.StatusCode >= 400:
			return classified(ErrorTypeClientError)
		}
	}

	if errors.Is(err, ErrInvalidRecipe) {
		return classified(ErrorTypeInvalidResponse)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return classified(ErrorTypeTimeout)
	}

	msg := err.Error()

	if containsAny(msg, "status 429", "HTTP 429", "rate limit", "too many requests") {
		return classified(ErrorTypeRateLimit)
	}
	if containsAny(msg, "status 402", "HTTP 402", "insufficient credit", "credit exhausted", "billing") {
		return classified(ErrorTypeCreditExhausted)
	}

	if appErr, ok := apperrors.As(err); ok {
		if appErr.Type == apperrors.ErrorTypeValidation {
			return classified(ErrorTypeClientError)
		}
		if appErr.StatusCode >= 500 {
			return classified(ErrorTypeServerError)
		}
		if appErr.StatusCode >= 400 {
			return classified(ErrorTypeClientError)
		}
	}

	if containsAny(msg, "status 5", "HTTP 5", "server error", "internal error") {
		return classified(ErrorTypeServerError)
	}
	if containsAny(msg, "status 4", "HTTP 4", "bad request", "unauthorized", "forbidden") {
		return classified(ErrorTypeClientError)
	}

	return classified(ErrorTypeUnknown)
}

// IsRetryableError reports whether another provider is worth trying.
func IsRetryableError(err error) bool {
	providerErr := ClassifyError(err, "")
	if providerErr == nil {
		return false
	}

	switch providerErr.Type {
	case ErrorTypeRateLimit, ErrorTypeCreditExhausted, ErrorTypeServerError, ErrorTypeTimeout, ErrorTypeInvalidResponse:
		return true
	default:
		return false
	}
}

func containsAny(s string, substrs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
