package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	DefaultOllamaURL  = "http://localhost:11434"
	DefaultModel      = "all-minilm:l6-v2"
	DefaultDimensions = 384
	DefaultTimeout    = 30 * time.Second

	// DefaultKeepAlive keeps the model resident between the question and answer calls of a run.
	DefaultKeepAlive = "5m"

	apiPathTags  = "/api/tags"
	apiPathEmbed = "/api/embed"
)

// OllamaProvider embeds text through a local Ollama server.
type OllamaProvider struct {
	baseURL   string
	model     string
	keepAlive string
	client    *http.Client

	mu         sync.Mutex
	dimensions int // 0 until the first response when not configured
}

// OllamaOption configures an OllamaProvider.
type OllamaOption func(*OllamaProvider)

func WithBaseURL(url string) OllamaOption {
	return func(p *OllamaProvider) { p.baseURL = strings.TrimRight(url, "/") }
}

func WithModel(model string) OllamaOption {
	return func(p *OllamaProvider) { p.model = model }
}

// WithDimensions sets the expected vector size; 0 accepts the size of the
// first response and requires it from then on.
func WithDimensions(dims int) OllamaOption {
	return func(p *OllamaProvider) { p.dimensions = dims }
}

func WithTimeout(timeout time.Duration) OllamaOption {
	return func(p *OllamaProvider) { p.client.Timeout = timeout }
}

// NewOllamaProvider creates an Ollama provider with the default model and endpoint.
func NewOllamaProvider(opts ...OllamaOption) *OllamaProvider {
	p := &OllamaProvider{
		baseURL:    DefaultOllamaURL,
		model:      DefaultModel,
		dimensions: DefaultDimensions,
		keepAlive:  DefaultKeepAlive,
		client:     &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Embed embeds a single question or answer text.
// Transport and protocol failures wrap ErrUnavailable; context errors are returned as is.
func (p *OllamaProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	vectors, err := p.embed(ctx, []string{text})
	if err != nil {
		return Embedding{}, err
	}
	return Embedding{Vector: vectors[0]}, nil
}

// EmbedBatch embeds several texts in one request, preserving order.
func (p *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := p.embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	out := make([]Embedding, len(vectors))
	for i, v := range vectors {
		out[i] = Embedding{Vector: v}
	}
	return out, nil
}

func (p *OllamaProvider) embed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{
		Model:     p.model,
		Input:     texts,
		KeepAlive: p.keepAlive,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+apiPathEmbed, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, unavailable("ollama at %s: %v", p.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, unavailable("ollama returned status %d: %s", resp.StatusCode, formatErrorBody(resp.Body))
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, unavailable("decoding response: %v", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, unavailable("ollama returned %d embeddings for %d inputs", len(result.Embeddings), len(texts))
	}
	for _, v := range result.Embeddings {
		if err := p.checkDimensions(len(v)); err != nil {
			return nil, err
		}
	}
	return result.Embeddings, nil
}

func (p *OllamaProvider) checkDimensions(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dimensions == 0 && n > 0 {
		p.dimensions = n
		slog.Debug("embedding dimensions from first response", "model", p.model, "dimensions", n)
		return nil
	}
	if n != p.dimensions {
		return unavailable("model %s returned %d dimensions, want %d", p.model, n, p.dimensions)
	}
	return nil
}

func (p *OllamaProvider) ModelName() string { return p.model }

func (p *OllamaProvider) Dimensions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dimensions
}

// IsAvailable reports whether the Ollama server answers at all.
func (p *OllamaProvider) IsAvailable(ctx context.Context) error {
	if _, err := p.tags(ctx); err != nil {
		return fmt.Errorf("ollama is not running (start it with 'ollama serve'): %w", err)
	}
	return nil
}

// HasModel reports whether the configured model has been pulled.
// A model named without a tag matches its ":latest" variant.
func (p *OllamaProvider) HasModel(ctx context.Context) (bool, error) {
	models, err := p.tags(ctx)
	if err != nil {
		return false, fmt.Errorf("checking models: %w", err)
	}
	want := withDefaultTag(p.model)
	for _, m := range models {
		if withDefaultTag(m.Name) == want {
			return true, nil
		}
	}
	return false, nil
}

func (p *OllamaProvider) tags(ctx context.Context) ([]ollamaModel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+apiPathTags, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, unavailable("ollama at %s: %v", p.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, unavailable("ollama returned status %d", resp.StatusCode)
	}
	var result ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, unavailable("decoding model list: %v", err)
	}
	return result.Models, nil
}

func withDefaultTag(name string) string {
	if strings.Contains(name, ":") {
		return name
	}
	return name + ":latest"
}

// formatErrorBody reads an error response for inclusion in a message.
func formatErrorBody(body io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return fmt.Sprintf("(failed to read response body: %v)", err)
	}
	return strings.TrimSpace(string(b))
}

type ollamaEmbedRequest struct {
	Model     string   `json:"model"`
	Input     []string `json:"input"`
	KeepAlive string   `json:"keep_alive,omitempty"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

type ollamaTagsResponse struct {
	Models []ollamaModel `json:"models"`
}

type ollamaModel struct {
	Name string `json:"name"`
}
