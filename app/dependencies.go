package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/upb/chat-relay/config"
	"github.com/upb/chat-relay/handlers"
	"github.com/upb/chat-relay/internal/observability"
	"github.com/upb/chat-relay/services/providers"
	"github.com/upb/chat-relay/services/providers/gemini"
	"github.com/upb/chat-relay/services/providers/openai"
	"github.com/upb/chat-relay/services/relay"
	"github.com/upb/chat-relay/web"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	Logger  *zap.Logger
	Metrics observability.Metrics

	// MetricsRegistry is nil when metrics are disabled
	MetricsRegistry *prometheus.Registry

	// Provider selected at startup
	ProviderRegistry *providers.Registry
	Provider         providers.Provider

	// Services
	Relay *relay.Service

	// Handlers
	ChatHandler   *handlers.ChatHandler
	HealthHandler *handlers.HealthHandler
}

// NewDependencies creates and wires up all application dependencies.
// An unknown provider or an adapter that cannot be built is a startup error.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// Initialize metrics
	if err := deps.initMetrics(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	// Initialize provider
	if err := deps.initProvider(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize provider: %w", err)
	}

	// Initialize relay service and handlers
	deps.initServices()
	deps.initHandlers(cfg)

	logger.Info("all dependencies initialized successfully",
		zap.String("provider", deps.Provider.Name()),
		zap.String("model", deps.Provider.Model()),
		zap.String("chat_mode", cfg.Relay.Mode))
	return deps, nil
}

// initMetrics creates a dedicated Prometheus registry with runtime collectors
func (d *Dependencies) initMetrics(cfg *config.Config) error {
	if !cfg.Observability.MetricsEnabled {
		d.Metrics = observability.NopMetrics{}
		d.Logger.Info("metrics disabled")
		return nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics, err := observability.NewPrometheusMetrics(reg)
	if err != nil {
		return err
	}

	d.MetricsRegistry = reg
	d.Metrics = metrics
	return nil
}

// initProvider builds the configured provider through the registry
func (d *Dependencies) initProvider(cfg *config.Config) error {
	registry, err := NewProviderRegistry()
	if err != nil {
		return err
	}

	provider, err := registry.Build(cfg.Relay.Provider, ProviderConfig(cfg))
	if err != nil {
		return err
	}

	d.ProviderRegistry = registry
	d.Provider = provider
	d.Logger.Info("provider initialized",
		zap.String("provider", provider.Name()),
		zap.String("model", provider.Model()),
		zap.Strings("available", registry.ListProviders()),
		zap.Int("registered", registry.GetProviderCount()))
	return nil
}

func (d *Dependencies) initServices() {
	d.Relay = relay.NewService(
		d.Provider,
		relay.NewRetrier(),
		observability.NewLogger(d.Logger),
		d.Metrics,
	)
}

func (d *Dependencies) initHandlers(cfg *config.Config) {
	d.ChatHandler = handlers.NewChatHandler(d.Relay, d.Provider.Name(), d.Metrics, d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(handlers.StatusInfo{
		Environment: cfg.Environment,
		Provider:    d.Provider.Name(),
		Model:       d.Provider.Model(),
		ChatMode:    cfg.Relay.Mode,
	}, web.Static(), d.Logger)
}

// NewProviderRegistry returns a registry holding both provider variants
func NewProviderRegistry() (*providers.Registry, error) {
	registry := providers.NewRegistry()

	if err := registry.RegisterFactory(providers.NameOpenAI, openai.NewOpenAIAdapter); err != nil {
		return nil, err
	}
	if err := registry.RegisterFactory(providers.NameGemini, gemini.NewGeminiAdapter); err != nil {
		return nil, err
	}

	return registry, nil
}

// ProviderConfig returns the adapter settings of the selected provider
func ProviderConfig(cfg *config.Config) providers.ProviderConfig {
	pc := providers.ProviderConfig{
		Temperature: cfg.Relay.Temperature,
		MaxTokens:   cfg.Relay.MaxTokens,
		Timeout:     cfg.Relay.Timeout,
	}

	switch cfg.Relay.Provider {
	case config.ProviderGemini:
		pc.APIKey = cfg.Providers.Gemini.APIKey
		pc.BaseURL = cfg.Providers.Gemini.BaseURL
		pc.Model = cfg.Providers.Gemini.Model
	default:
		pc.APIKey = cfg.Providers.OpenAI.APIKey
		pc.BaseURL = cfg.Providers.OpenAI.BaseURL
		pc.Model = cfg.Providers.OpenAI.Model
	}

	return pc
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	return nil
}
