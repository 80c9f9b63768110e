package openai

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/upb/chat-relay/services/providers"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"

	// SystemInstruction frames every exchange sent to OpenAI.
	SystemInstruction = "You are a helpful, concise assistant."
)

// errNoChoices reports a completion that carried no reply at all
var errNoChoices = errors.New("openai: completion response has no choices")

// OpenAIAdapter implements the Provider interface for OpenAI chat completions
type OpenAIAdapter struct {
	config providers.ProviderConfig
	client openai.Client
}

// NewOpenAIAdapter creates a new OpenAI adapter
func NewOpenAIAdapter(config providers.ProviderConfig) (providers.Provider, error) {
	return newOpenAIAdapterWithHTTPClient(config, http.DefaultClient)
}

func newOpenAIAdapterWithHTTPClient(config providers.ProviderConfig, httpClient *http.Client) (*OpenAIAdapter, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Model == "" {
		config.Model = defaultModel
	}
	config = config.WithDefaults()

	// Retries belong to the relay's backoff controller, not the SDK.
	client := openai.NewClient(
		option.WithAPIKey(config.APIKey),
		option.WithBaseURL(config.BaseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	)

	return &OpenAIAdapter{
		config: config,
		client: client,
	}, nil
}

// Name returns the provider name
func (a *OpenAIAdapter) Name() string {
	return providers.NameOpenAI
}

// Model returns the configured model
func (a *OpenAIAdapter) Model() string {
	return a.config.Model
}

// Complete performs a chat completion request
func (a *OpenAIAdapter) Complete(ctx context.Context, message string) (string, error) {
	callCtx, cancel := a.withTimeout(ctx)
	defer cancel()

	resp, err := a.client.Chat.Completions.New(callCtx, a.buildParams(message))
	if err != nil {
		return "", providers.NewProviderError(a.Name(), err)
	}

	if len(resp.Choices) == 0 {
		return "", providers.NewProviderError(a.Name(), errNoChoices)
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream performs a streaming chat completion request and yields content deltas
func (a *OpenAIAdapter) Stream(ctx context.Context, message string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		callCtx, cancel := a.withTimeout(ctx)
		defer cancel()

		stream := a.client.Chat.Completions.NewStreaming(callCtx, a.buildParams(message))
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			if !yield(delta, nil) {
				return
			}
		}

		if err := stream.Err(); err != nil {
			yield("", providers.NewProviderError(a.Name(), err))
		}
	}
}

func (a *OpenAIAdapter) buildParams(message string) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.config.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemInstruction),
			openai.UserMessage(message),
		},
		Temperature: openai.Float(a.config.Temperature),
		MaxTokens:   openai.Int(int64(a.config.MaxTokens)),
	}
}

func (a *OpenAIAdapter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline || a.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.Timeout)
}

// Ensure interface compliance
var _ providers.Provider = (*OpenAIAdapter)(nil)
