package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/upb/chat-relay/utils"
)

// Provider names
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Chat modes for the /chat route
const (
	ModeBuffered = "buffered"
	ModeStream   = "stream"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Relay         RelayConfig         `yaml:"relay"`
	Providers     ProvidersConfig     `yaml:"providers"`
	Observability ObservabilityConfig `yaml:"observability"`
	Environment   string              `yaml:"environment"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"` // 0 disables the limit, required for long streams
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// RelayConfig holds the settings shared by every relayed request
type RelayConfig struct {
	Provider    string        `yaml:"provider" validate:"required,oneof=openai gemini"`
	Mode        string        `yaml:"mode" validate:"required,oneof=buffered stream"`
	Temperature float64       `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int           `yaml:"max_tokens" validate:"gt=0"`
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
}

// ProvidersConfig holds LLM provider configurations
type ProvidersConfig struct {
	OpenAI OpenAIConfig `yaml:"openai"`
	Gemini GeminiConfig `yaml:"gemini"`
}

// OpenAIConfig holds OpenAI provider configuration
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
	Model   string `yaml:"model" validate:"required"`
}

// GeminiConfig holds Gemini provider configuration
type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
	Model   string `yaml:"model" validate:"required"`
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"` // json or console
	LogFile        string `yaml:"log_file"`   // optional rotated file sink
	MetricsEnabled bool   `yaml:"metrics_enabled"`
}

// Defaults returns the configuration used when nothing overrides it
func Defaults() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            5000,
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Relay: RelayConfig{
			Provider:    ProviderOpenAI,
			Mode:        ModeBuffered,
			Temperature: 0.7,
			MaxTokens:   512,
			Timeout:     60 * time.Second,
		},
		Providers: ProvidersConfig{
			OpenAI: OpenAIConfig{
				BaseURL: "https://api.openai.com/v1",
				Model:   "gpt-4o-mini",
			},
			Gemini: GeminiConfig{
				Model: "gemini-2.5-flash",
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			LogFormat:      "json",
			MetricsEnabled: true,
		},
	}
}

// New builds the configuration in layers: defaults, then the YAML file
// named by CONFIG_FILE, then environment variables (a .env file is loaded
// into the environment first).
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadYAMLFile(path, cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	cfg.Relay.Provider = strings.ToLower(strings.TrimSpace(cfg.Relay.Provider))
	cfg.Relay.Mode = strings.ToLower(strings.TrimSpace(cfg.Relay.Mode))

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadYAMLFile decodes path over cfg. Keys missing from the file keep
// their current values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides replaces a field only when its variable is set
func applyEnvOverrides(cfg *Config) {
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)

	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getPort(cfg.Server.Port)
	cfg.Server.ReadTimeout = getEnvAsDuration("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvAsDuration("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.ShutdownTimeout = getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.AllowedOrigins = getEnvAsList("CORS_ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)

	cfg.Relay.Provider = getEnv("PROVIDER", cfg.Relay.Provider)
	cfg.Relay.Mode = getEnv("CHAT_MODE", cfg.Relay.Mode)
	cfg.Relay.Temperature = getEnvAsFloat("OPENAI_TEMPERATURE", cfg.Relay.Temperature)
	cfg.Relay.MaxTokens = getEnvAsInt("OPENAI_MAX_TOKENS", cfg.Relay.MaxTokens)
	cfg.Relay.Timeout = getEnvAsDuration("PROVIDER_TIMEOUT", cfg.Relay.Timeout)

	cfg.Providers.OpenAI.APIKey = getEnv("OPENAI_API_KEY", cfg.Providers.OpenAI.APIKey)
	cfg.Providers.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", cfg.Providers.OpenAI.BaseURL)
	cfg.Providers.OpenAI.Model = getEnv("OPENAI_MODEL", cfg.Providers.OpenAI.Model)
	cfg.Providers.Gemini.APIKey = getEnv("GEMINI_API_KEY", cfg.Providers.Gemini.APIKey)
	cfg.Providers.Gemini.BaseURL = getEnv("GEMINI_BASE_URL", cfg.Providers.Gemini.BaseURL)
	cfg.Providers.Gemini.Model = getEnv("GEMINI_MODEL", cfg.Providers.Gemini.Model)

	cfg.Observability.LogLevel = getEnv("LOG_LEVEL", cfg.Observability.LogLevel)
	cfg.Observability.LogFormat = getEnv("LOG_FORMAT", cfg.Observability.LogFormat)
	cfg.Observability.LogFile = getEnv("LOG_FILE", cfg.Observability.LogFile)
	cfg.Observability.MetricsEnabled = getEnvAsBool("METRICS_ENABLED", cfg.Observability.MetricsEnabled)
}

// Validate checks field constraints and that the selected provider has a credential
func (c *Config) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}

	switch c.Relay.Provider {
	case ProviderOpenAI:
		if c.Providers.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when PROVIDER=%s", ProviderOpenAI)
		}
	case ProviderGemini:
		if c.Providers.Gemini.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when PROVIDER=%s", ProviderGemini)
		}
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// IsStreaming reports whether /chat streams its reply
func (c *RelayConfig) IsStreaming() bool {
	return c.Mode == ModeStream
}

// ActiveModel returns the model id of the selected provider
func (c *Config) ActiveModel() string {
	if c.Relay.Provider == ProviderGemini {
		return c.Providers.Gemini.Model
	}
	return c.Providers.OpenAI.Model
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars
func getPort(defaultValue int) int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return defaultValue
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
