package providers

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrProviderNotFound is returned when a provider is not registered
	ErrProviderNotFound = errors.New("provider not found")

	// ErrProviderAlreadyRegistered is returned when trying to register a duplicate provider
	ErrProviderAlreadyRegistered = errors.New("provider already registered")
)

// Factory builds a provider from its configuration
type Factory func(cfg ProviderConfig) (Provider, error)

// Registry maps provider names to the factories that build them.
// Selection happens once at startup; requests never consult the registry.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// RegisterFactory registers a provider factory under name
func (r *Registry) RegisterFactory(name string, factory Factory) error {
	if factory == nil {
		return errors.New("provider factory cannot be nil")
	}

	name = normalizeName(name)
	if name == "" {
		return errors.New("provider name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return ErrProviderAlreadyRegistered
	}

	r.factories[name] = factory
	return nil
}

// Build constructs the named provider
func (r *Registry) Build(name string, cfg ProviderConfig) (Provider, error) {
	r.mu.RLock()
	factory, exists := r.factories[normalizeName(name)]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotFound, name)
	}

	provider, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("build %s provider: %w", name, err)
	}
	return provider, nil
}

// ListProviders returns all registered provider names, sorted
func (r *Registry) ListProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// GetProviderCount returns the number of registered providers
func (r *Registry) GetProviderCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.factories)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
