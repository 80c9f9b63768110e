package providers

import (
	"context"
	"errors"
	"iter"
	"time"
)

// Provider names accepted by configuration.
const (
	NameOpenAI = "openai"
	NameGemini = "gemini"
)

// Provider represents one upstream LLM API behind a uniform capability.
// Implementations are built once at startup and shared by all requests,
// so they must not keep per-request state.
type Provider interface {
	// Name returns the provider name ("openai" or "gemini")
	Name() string

	// Model returns the configured model identifier
	Model() string

	// Complete performs a blocking single-turn completion and returns the reply text
	Complete(ctx context.Context, message string) (string, error)

	// Stream returns a lazy, single-use sequence of non-empty text fragments.
	// A non-nil error terminates the sequence. Breaking out of the range loop
	// cancels the upstream call.
	Stream(ctx context.Context, message string) iter.Seq2[string, error]
}

// ProviderConfig holds the immutable settings an adapter is built with
type ProviderConfig struct {
	// APIKey for authentication
	APIKey string

	// BaseURL for the API (optional override)
	BaseURL string

	// Model identifier (e.g., "gpt-4o-mini", "gemini-2.5-flash")
	Model string

	// Temperature controls randomness
	Temperature float64

	// MaxTokens limits the response length
	MaxTokens int

	// Timeout bounds a single upstream call
	Timeout time.Duration
}

// DefaultProviderConfig returns a sensible default configuration
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Temperature: 0.7,
		MaxTokens:   512,
		Timeout:     60 * time.Second,
	}
}

// WithDefaults fills an unset MaxTokens or Timeout from
// DefaultProviderConfig. Temperature 0 is a valid setting and is kept.
func (c ProviderConfig) WithDefaults() ProviderConfig {
	d := DefaultProviderConfig()
	if c.MaxTokens <= 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	return c
}

// ProviderError represents a failed upstream call. Raw carries the upstream
// error text unchanged, which is what failure classification works on.
type ProviderError struct {
	// Provider that generated the error
	Provider string

	// Raw is the upstream error description
	Raw string

	// Cause is the underlying SDK error
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Raw
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error from an SDK error
func NewProviderError(provider string, cause error) *ProviderError {
	raw := ""
	if cause != nil {
		raw = cause.Error()
	}
	return &ProviderError{
		Provider: provider,
		Raw:      raw,
		Cause:    cause,
	}
}

// RawText returns the upstream error text of err. Errors that did not come
// from an adapter fall back to err.Error().
func RawText(err error) string {
	if err == nil {
		return ""
	}
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Raw
	}
	return err.Error()
}
