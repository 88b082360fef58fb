package extraction

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"recall-backend/internal/config"
)

// Provider registry keys.
const (
	ProviderLocal     = "local"
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Registry constructs and caches providers by name. Construction is
// memoized so each provider (and its HTTP client and circuit breaker) is
// built once per process.
type Registry struct {
	cfg    *config.Config
	logger *zap.Logger

	mu        sync.Mutex
	providers map[string]Provider
}

// NewRegistry creates a provider registry bound to the given configuration.
func NewRegistry(cfg *config.Config, logger *zap.Logger) *Registry {
	return &Registry{
		cfg:       cfg,
		logger:    logger,
		providers: make(map[string]Provider),
	}
}

// Get returns the provider registered under name, building it on first use.
// Unknown names resolve to the local provider with a warning; provider
// selection must never fail.
func (r *Registry) Get(name string) Provider {
	key := strings.ToLower(strings.TrimSpace(name))

	r.mu.Lock()
	defer r.mu.Unlock()

	if provider, ok := r.providers[key]; ok {
		return provider
	}

	provider := r.build(key)
	r.providers[key] = provider
	return provider
}

// Primary returns the provider named by the configuration.
func (r *Registry) Primary() Provider {
	return r.Get(r.cfg.ExtractionProvider)
}

// FallbackLocal returns the shared local provider used as the pipeline's
// last resort.
func (r *Registry) FallbackLocal() *LocalProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.local()
}

func (r *Registry) build(key string) Provider {
	switch key {
	case ProviderLocal:
		return r.local()
	case ProviderOllama:
		return NewOllamaProvider(r.cfg, r.logger)
	case ProviderOpenAI:
		return NewOpenAIProvider(r.cfg, r.local(), r.logger)
	case ProviderAnthropic:
		return NewAnthropicProvider(r.cfg, r.local(), r.logger)
	default:
		r.logger.Warn("Unknown extraction provider; using local",
			zap.String("requested", key))
		return r.local()
	}
}

// local returns the memoized local provider, shared by the registry entry
// and the cloud providers' degradation path. Callers must hold r.mu.
func (r *Registry) local() *LocalProvider {
	if provider, ok := r.providers[ProviderLocal]; ok {
		return provider.(*LocalProvider)
	}
	provider := NewLocalProvider(SeedsFromConfig(r.cfg), r.logger)
	r.providers[ProviderLocal] = provider
	return provider
}
