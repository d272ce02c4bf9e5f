package embedding

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Provider generates embeddings from text.
type Provider interface {
	// Embed generates an embedding for the given text.
	Embed(ctx context.Context, text string) (Embedding, error)

	// ModelName returns the name of the embedding model.
	ModelName() string

	// Dimensions returns the expected vector dimensions (0 if not fixed up front).
	Dimensions() int
}

// Supported provider names.
const (
	ProviderOllama     = "ollama"      // direct Ollama HTTP client
	ProviderEinoOllama = "eino-ollama" // Ollama through the eino embedder
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
)

// Config selects and tunes an embedding provider.
type Config struct {
	Provider   string
	Model      string
	BaseURL    string
	APIKey     string
	Dimensions int
	Timeout    time.Duration

	// RateLimit caps requests per second to the backend (0 disables limiting).
	RateLimit float64

	// CacheSize is the number of embeddings memoized in process (0 disables caching).
	CacheSize int

	// CheckModel verifies that the model is installed when the provider starts (ollama only).
	CheckModel bool
}

// New creates the provider described by cfg and checks that it can serve requests.
func New(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "", ProviderOllama:
		opts := []OllamaOption{}
		if cfg.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.BaseURL))
		}
		if cfg.Model != "" {
			opts = append(opts, WithModel(cfg.Model))
		}
		opts = append(opts, WithDimensions(dimensionsFor(cfg)))
		if cfg.Timeout > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout))
		}
		p := NewOllamaProvider(opts...)
		if err := p.IsAvailable(ctx); err != nil {
			return nil, err
		}
		if cfg.CheckModel {
			ok, err := p.HasModel(ctx)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("embedding model %q not found (run 'ollama pull %s')", p.ModelName(), p.ModelName())
			}
		}
		return p, nil

	case ProviderEinoOllama, ProviderOpenAI, ProviderGemini:
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv(apiKeyEnv(cfg.Provider))
		}
		return NewEinoProvider(ctx, cfg)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (supported: ollama, eino-ollama, openai, gemini)", cfg.Provider)
	}
}

// NewShared returns the process-wide provider for cfg. The backend is created
// lazily on first use and at most once; caching and rate limiting are layered on top.
func NewShared(cfg Config) Provider {
	model := DefaultModel
	if d, ok := defaultsFor(cfg.Provider); ok {
		model = d.model
	}
	if cfg.Model != "" {
		model = cfg.Model
	}
	dims := dimensionsFor(cfg)

	var p Provider = NewLazy(model, dims, func(ctx context.Context) (Provider, error) {
		return New(ctx, cfg)
	})
	if cfg.RateLimit > 0 {
		p = NewRateLimited(p, cfg.RateLimit)
	}
	if cfg.CacheSize > 0 {
		p = NewCached(p, cfg.CacheSize)
	}
	return p
}

type providerDefaults struct {
	model      string
	dimensions int
}

var defaults = map[string]providerDefaults{
	ProviderOllama:     {DefaultModel, DefaultDimensions},
	ProviderEinoOllama: {"all-minilm", 384},
	ProviderOpenAI:     {"text-embedding-3-small", 1536},
	ProviderGemini:     {"text-embedding-004", 768},
}

func defaultsFor(provider string) (providerDefaults, bool) {
	if provider == "" {
		provider = ProviderOllama
	}
	d, ok := defaults[provider]
	return d, ok
}

// dimensionsFor returns the configured vector size, or the provider's size
// when its default model is used. A custom model without a configured size
// gives 0: the size of the first response is used.
func dimensionsFor(cfg Config) int {
	if cfg.Dimensions > 0 {
		return cfg.Dimensions
	}
	d, ok := defaultsFor(cfg.Provider)
	if !ok {
		return 0
	}
	if cfg.Model == "" || cfg.Model == d.model {
		return d.dimensions
	}
	return 0
}

func apiKeyEnv(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}
