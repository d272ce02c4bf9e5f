package embedding

import (
	"context"
	"fmt"

	geminiEmbed "github.com/cloudwego/eino-ext/components/embedding/gemini"
	ollamaEmbed "github.com/cloudwego/eino-ext/components/embedding/ollama"
	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	einoembedding "github.com/cloudwego/eino/components/embedding"
	"google.golang.org/genai"
)

// EinoProvider adapts an eino Embedder (OpenAI, Gemini, Ollama) to Provider.
type EinoProvider struct {
	embedder   einoembedding.Embedder
	model      string
	dimensions int
}

// NewEinoProvider creates an eino-backed provider for cfg.Provider.
func NewEinoProvider(ctx context.Context, cfg Config) (*EinoProvider, error) {
	d, _ := defaultsFor(cfg.Provider)
	model := cfg.Model
	if model == "" {
		model = d.model
	}
	dims := dimensionsFor(cfg)

	var (
		embedder einoembedding.Embedder
		err      error
	)
	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		embedder, err = openaiEmbed.NewEmbedder(ctx, &openaiEmbed.EmbeddingConfig{
			Model:  model,
			APIKey: cfg.APIKey,
		})

	case ProviderEinoOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = DefaultOllamaURL
		}
		embedder, err = ollamaEmbed.NewEmbedder(ctx, &ollamaEmbed.EmbeddingConfig{
			BaseURL: baseURL,
			Model:   model,
		})

	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini API key is required")
		}
		client, cerr := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if cerr != nil {
			return nil, fmt.Errorf("creating gemini client: %w", cerr)
		}
		embedder, err = geminiEmbed.NewEmbedder(ctx, &geminiEmbed.EmbeddingConfig{
			Client: client,
			Model:  model,
		})

	default:
		return nil, fmt.Errorf("unsupported eino embedding provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s embedder: %w", cfg.Provider, err)
	}

	return newEinoProvider(embedder, model, dims), nil
}

func newEinoProvider(embedder einoembedding.Embedder, model string, dims int) *EinoProvider {
	return &EinoProvider{embedder: embedder, model: model, dimensions: dims}
}

// Embed generates an embedding for the given text.
func (p *EinoProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	embs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return Embedding{}, err
	}
	return embs[0], nil
}

// EmbedBatch embeds texts with one EmbedStrings call.
func (p *EinoProvider) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	// Eino returns [][]float64
	vectors, err := p.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, unavailable("%s: %v", p.model, err)
	}
	if len(vectors) != len(texts) {
		return nil, unavailable("%s returned %d vectors for %d texts", p.model, len(vectors), len(texts))
	}

	out := make([]Embedding, len(vectors))
	for k, v64 := range vectors {
		if p.dimensions > 0 && len(v64) != p.dimensions {
			return nil, unavailable("unexpected embedding dimensions: got %d, want %d", len(v64), p.dimensions)
		}
		vec := make([]float32, len(v64))
		for i, v := range v64 {
			vec[i] = float32(v)
		}
		out[k] = Embedding{Vector: vec}
	}
	return out, nil
}

// ModelName returns the name of the embedding model.
func (p *EinoProvider) ModelName() string {
	return p.model
}

// Dimensions returns the expected vector dimensions.
func (p *EinoProvider) Dimensions() int {
	return p.dimensions
}
