package gemini

import (
	"context"
	"errors"
	"iter"
	"math"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/upb/chat-relay/services/providers"
)

type stubModelsClient struct {
	generateResp *genai.GenerateContentResponse
	generateErr  error
	streamSeq    iter.Seq2[*genai.GenerateContentResponse, error]

	gotModel    string
	gotContents []*genai.Content
	gotConfig   *genai.GenerateContentConfig
}

func (s *stubModelsClient) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.gotModel = model
	s.gotContents = contents
	s.gotConfig = cfg
	return s.generateResp, s.generateErr
}

func (s *stubModelsClient) GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	s.gotModel = model
	s.gotContents = contents
	s.gotConfig = cfg
	if s.streamSeq != nil {
		return s.streamSeq
	}
	return func(yield func(*genai.GenerateContentResponse, error) bool) {}
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Role:  genai.RoleModel,
					Parts: []*genai.Part{{Text: text}},
				},
			},
		},
	}
}

func newTestAdapter(stub *stubModelsClient) *GeminiAdapter {
	return &GeminiAdapter{
		config: providers.ProviderConfig{
			APIKey:      "test-key",
			Model:       "gemini-2.5-flash",
			Temperature: 0.7,
			MaxTokens:   512,
		},
		models: stub,
	}
}

func sentText(t *testing.T, contents []*genai.Content) string {
	t.Helper()
	if len(contents) != 1 || len(contents[0].Parts) != 1 {
		t.Fatalf("expected a single-part single-turn request, got %+v", contents)
	}
	return contents[0].Parts[0].Text
}

func TestNewGeminiAdapter_RequiresAPIKey(t *testing.T) {
	if _, err := NewGeminiAdapter(providers.ProviderConfig{}); err == nil {
		t.Fatal("expected error when Gemini API key is missing")
	}
}

func TestNewGeminiAdapter_Defaults(t *testing.T) {
	origNewClient := newGenAIClient
	defer func() {
		newGenAIClient = origNewClient
	}()

	var gotClientCfg *genai.ClientConfig
	newGenAIClient = func(ctx context.Context, cfg *genai.ClientConfig) (*genai.Client, error) {
		gotClientCfg = cfg
		return &genai.Client{}, nil
	}

	provider, err := NewGeminiAdapter(providers.ProviderConfig{APIKey: "test-key", BaseURL: "https://gemini.test"})
	if err != nil {
		t.Fatalf("NewGeminiAdapter() error: %v", err)
	}

	if provider.Name() != "gemini" {
		t.Errorf("Name() = %s, want gemini", provider.Name())
	}
	if provider.Model() != defaultModel {
		t.Errorf("Model() = %s, want %s", provider.Model(), defaultModel)
	}
	if gotClientCfg.APIKey != "test-key" || gotClientCfg.Backend != genai.BackendGeminiAPI {
		t.Errorf("unexpected client config %+v", gotClientCfg)
	}
	if gotClientCfg.HTTPOptions.BaseURL != "https://gemini.test" {
		t.Errorf("BaseURL = %q", gotClientCfg.HTTPOptions.BaseURL)
	}

	adapter := provider.(*GeminiAdapter)
	if adapter.config.MaxTokens != providers.DefaultProviderConfig().MaxTokens {
		t.Errorf("MaxTokens = %d, want the provider default", adapter.config.MaxTokens)
	}
}

func TestNewGeminiAdapter_ClientError(t *testing.T) {
	origNewClient := newGenAIClient
	defer func() {
		newGenAIClient = origNewClient
	}()

	newGenAIClient = func(ctx context.Context, cfg *genai.ClientConfig) (*genai.Client, error) {
		return nil, errors.New("boom")
	}

	if _, err := NewGeminiAdapter(providers.ProviderConfig{APIKey: "test-key"}); err == nil {
		t.Fatal("expected client construction error")
	}
}

func TestGeminiAdapter_Complete(t *testing.T) {
	stub := &stubModelsClient{generateResp: textResponse("  Hello!  \n")}
	adapter := newTestAdapter(stub)

	reply, err := adapter.Complete(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if reply != "Hello!" {
		t.Errorf("reply = %q, want trimmed %q", reply, "Hello!")
	}

	if stub.gotModel != "gemini-2.5-flash" {
		t.Errorf("model = %q", stub.gotModel)
	}
	if got := sentText(t, stub.gotContents); got != "User: hi\nAssistant:" {
		t.Errorf("prompt = %q, want framed prompt", got)
	}
	if stub.gotContents[0].Role != genai.RoleUser {
		t.Errorf("role = %q, want user", stub.gotContents[0].Role)
	}
	if stub.gotConfig.Temperature == nil || math.Abs(float64(*stub.gotConfig.Temperature)-0.7) > 0.0001 {
		t.Errorf("temperature = %v, want 0.7", stub.gotConfig.Temperature)
	}
	if stub.gotConfig.MaxOutputTokens != 512 {
		t.Errorf("MaxOutputTokens = %d, want 512", stub.gotConfig.MaxOutputTokens)
	}
	if stub.gotConfig.ThinkingConfig != nil {
		t.Errorf("ThinkingConfig = %+v, want nil so the model keeps its own thinking settings", stub.gotConfig.ThinkingConfig)
	}
}

func TestGeminiAdapter_CompleteSkipsThoughts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []*genai.Part{
						{Text: "planning...", Thought: true},
						{Text: "Answer"},
					},
				},
			},
		},
	}
	adapter := newTestAdapter(&stubModelsClient{generateResp: resp})

	reply, err := adapter.Complete(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if reply != "Answer" {
		t.Errorf("reply = %q, want Answer", reply)
	}
}

func TestGeminiAdapter_CompleteEmpty(t *testing.T) {
	adapter := newTestAdapter(&stubModelsClient{generateResp: &genai.GenerateContentResponse{}})

	reply, err := adapter.Complete(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if reply != "" {
		t.Errorf("reply = %q, want empty", reply)
	}
}

func TestGeminiAdapter_CompleteError(t *testing.T) {
	upstream := errors.New("Error 429, Message: Resource has been exhausted, Status: RESOURCE_EXHAUSTED")
	adapter := newTestAdapter(&stubModelsClient{generateErr: upstream})

	_, err := adapter.Complete(context.Background(), "hi")
	if !errors.Is(err, upstream) {
		t.Fatalf("expected wrapped upstream error, got %v", err)
	}
	if providers.RawText(err) != upstream.Error() {
		t.Errorf("raw text = %q", providers.RawText(err))
	}
}

func TestGeminiAdapter_StreamSendsRawMessage(t *testing.T) {
	stub := &stubModelsClient{
		streamSeq: func(yield func(*genai.GenerateContentResponse, error) bool) {
			for _, text := range []string{"Hel", "", "lo"} {
				if !yield(textResponse(text), nil) {
					return
				}
			}
		},
	}
	adapter := newTestAdapter(stub)

	var fragments []string
	for fragment, err := range adapter.Stream(context.Background(), "hi") {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		fragments = append(fragments, fragment)
	}

	if strings.Join(fragments, "|") != "Hel|lo" {
		t.Errorf("fragments = %q, want [Hel lo]", fragments)
	}
	if got := sentText(t, stub.gotContents); got != "hi" {
		t.Errorf("stream prompt = %q, want raw message", got)
	}
}

func TestGeminiAdapter_StreamErrorAfterFragment(t *testing.T) {
	upstream := errors.New("Error 500, Status: INTERNAL")
	stub := &stubModelsClient{
		streamSeq: func(yield func(*genai.GenerateContentResponse, error) bool) {
			if !yield(textResponse("Hel"), nil) {
				return
			}
			yield(nil, upstream)
		},
	}
	adapter := newTestAdapter(stub)

	var fragments []string
	var streamErr error
	for fragment, err := range adapter.Stream(context.Background(), "hi") {
		if err != nil {
			streamErr = err
			continue
		}
		fragments = append(fragments, fragment)
	}

	if strings.Join(fragments, "|") != "Hel" {
		t.Errorf("fragments = %q, want [Hel]", fragments)
	}
	if !errors.Is(streamErr, upstream) {
		t.Errorf("expected upstream error, got %v", streamErr)
	}
}

func TestGeminiAdapter_StreamStopsOnBreak(t *testing.T) {
	produced := 0
	stub := &stubModelsClient{
		streamSeq: func(yield func(*genai.GenerateContentResponse, error) bool) {
			for _, text := range []string{"a", "b", "c"} {
				produced++
				if !yield(textResponse(text), nil) {
					return
				}
			}
		},
	}
	adapter := newTestAdapter(stub)

	for range adapter.Stream(context.Background(), "hi") {
		break
	}

	if produced != 1 {
		t.Errorf("upstream produced %d chunks after break, want 1", produced)
	}
}
