package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/upb/chat-relay/config"
	"github.com/upb/chat-relay/internal/observability"
	"github.com/upb/chat-relay/services/providers"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment: "test",
		Server:      config.ServerConfig{Host: "127.0.0.1", Port: 5000},
		Relay: config.RelayConfig{
			Provider:    config.ProviderOpenAI,
			Mode:        config.ModeBuffered,
			Temperature: 0.3,
			MaxTokens:   128,
			Timeout:     5 * time.Second,
		},
		Providers: config.ProvidersConfig{
			OpenAI: config.OpenAIConfig{
				APIKey:  "sk-test",
				BaseURL: "http://127.0.0.1:1/v1",
				Model:   "gpt-4o-mini",
			},
			Gemini: config.GeminiConfig{
				APIKey: "g-test",
				Model:  "gemini-2.5-flash",
			},
		},
		Observability: config.ObservabilityConfig{
			LogLevel:       "debug",
			MetricsEnabled: true,
		},
	}
}

func TestNewDependencies(t *testing.T) {
	t.Run("openai with metrics", func(t *testing.T) {
		ctx := context.Background()
		cfg := testConfig(t)

		deps, err := NewDependencies(ctx, cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		require.NotNil(t, deps)

		assert.NotNil(t, deps.Config)
		assert.NotNil(t, deps.Logger)
		assert.NotNil(t, deps.MetricsRegistry)
		assert.IsType(t, &observability.PrometheusMetrics{}, deps.Metrics)

		require.NotNil(t, deps.Provider)
		assert.Equal(t, providers.NameOpenAI, deps.Provider.Name())
		assert.Equal(t, "gpt-4o-mini", deps.Provider.Model())
		assert.Equal(t, []string{providers.NameGemini, providers.NameOpenAI}, deps.ProviderRegistry.ListProviders())

		assert.NotNil(t, deps.Relay)
		assert.Same(t, deps.Provider, deps.Relay.Provider())
		assert.NotNil(t, deps.ChatHandler)
		assert.NotNil(t, deps.HealthHandler)

		assert.NoError(t, deps.Close(ctx))
	})

	t.Run("gemini without metrics", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Relay.Provider = config.ProviderGemini
		cfg.Observability.MetricsEnabled = false

		deps, err := NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
		require.NoError(t, err)

		assert.Equal(t, providers.NameGemini, deps.Provider.Name())
		assert.Equal(t, "gemini-2.5-flash", deps.Provider.Model())
		assert.Nil(t, deps.MetricsRegistry)
		assert.Equal(t, observability.NopMetrics{}, deps.Metrics)
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Relay.Provider = "anthropic"

		deps, err := NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
		assert.Nil(t, deps)
		require.Error(t, err)
		assert.ErrorIs(t, err, providers.ErrProviderNotFound)
		assert.Contains(t, err.Error(), "failed to initialize provider")
	})

	t.Run("missing credential", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Providers.OpenAI.APIKey = ""

		deps, err := NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
		assert.Nil(t, deps)
		assert.Error(t, err)
	})
}

func TestNewDependencies_LogsProviderSelection(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	_, err := NewDependencies(context.Background(), testConfig(t), zap.New(core))
	require.NoError(t, err)

	entries := logs.FilterMessage("provider initialized").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, providers.NameOpenAI, fields["provider"])
	assert.Equal(t, int64(2), fields["registered"])
}

func TestProviderConfig(t *testing.T) {
	cfg := testConfig(t)

	pc := ProviderConfig(cfg)
	assert.Equal(t, "sk-test", pc.APIKey)
	assert.Equal(t, "http://127.0.0.1:1/v1", pc.BaseURL)
	assert.Equal(t, "gpt-4o-mini", pc.Model)
	assert.Equal(t, 0.3, pc.Temperature)
	assert.Equal(t, 128, pc.MaxTokens)
	assert.Equal(t, 5*time.Second, pc.Timeout)

	cfg.Relay.Provider = config.ProviderGemini
	pc = ProviderConfig(cfg)
	assert.Equal(t, "g-test", pc.APIKey)
	assert.Empty(t, pc.BaseURL)
	assert.Equal(t, "gemini-2.5-flash", pc.Model)
}

func TestNewProviderRegistry(t *testing.T) {
	registry, err := NewProviderRegistry()
	require.NoError(t, err)
	assert.Equal(t, 2, registry.GetProviderCount())
}
