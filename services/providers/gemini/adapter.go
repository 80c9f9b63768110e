package gemini

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"

	"github.com/upb/chat-relay/services/providers"
)

const defaultModel = "gemini-2.5-flash"

// Buffered completions frame the message as a single-turn transcript.
// Streaming sends the raw message.
const (
	promptPrefix = "User: "
	promptSuffix = "\nAssistant:"
)

type modelsClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

var newGenAIClient = func(ctx context.Context, cfg *genai.ClientConfig) (*genai.Client, error) {
	return genai.NewClient(ctx, cfg)
}

// GeminiAdapter implements the Provider interface using the Google GenAI SDK
type GeminiAdapter struct {
	config providers.ProviderConfig
	models modelsClient
}

// NewGeminiAdapter creates a new Gemini adapter
func NewGeminiAdapter(config providers.ProviderConfig) (providers.Provider, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if config.Model == "" {
		config.Model = defaultModel
	}
	config = config.WithDefaults()

	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := newGenAIClient(context.Background(), clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiAdapter{
		config: config,
		models: client.Models,
	}, nil
}

// Name returns the provider name
func (a *GeminiAdapter) Name() string {
	return providers.NameGemini
}

// Model returns the configured model
func (a *GeminiAdapter) Model() string {
	return a.config.Model
}

// Complete generates a reply for the framed single-turn prompt
func (a *GeminiAdapter) Complete(ctx context.Context, message string) (string, error) {
	callCtx, cancel := a.withTimeout(ctx)
	defer cancel()

	prompt := promptPrefix + message + promptSuffix
	resp, err := a.models.GenerateContent(callCtx, a.config.Model, genai.Text(prompt), a.generationConfig())
	if err != nil {
		return "", providers.NewProviderError(a.Name(), err)
	}

	return strings.TrimSpace(extractVisibleText(resp)), nil
}

// Stream yields the text of each streamed response chunk
func (a *GeminiAdapter) Stream(ctx context.Context, message string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		callCtx, cancel := a.withTimeout(ctx)
		defer cancel()

		for resp, err := range a.models.GenerateContentStream(callCtx, a.config.Model, genai.Text(message), a.generationConfig()) {
			if err != nil {
				yield("", providers.NewProviderError(a.Name(), err))
				return
			}
			text := extractVisibleText(resp)
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
	}
}

func (a *GeminiAdapter) generationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(a.config.Temperature)),
		MaxOutputTokens: int32(a.config.MaxTokens),
	}
}

func (a *GeminiAdapter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline || a.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.Timeout)
}

// Ensure interface compliance
var _ providers.Provider = (*GeminiAdapter)(nil)

func extractVisibleText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}
