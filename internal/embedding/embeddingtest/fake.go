// Package embeddingtest provides a deterministic in-memory embedding provider for tests.
package embeddingtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/matsen/examdup/internal/embedding"
)

// Dimensions is the vector size produced by Provider.
const Dimensions = 64

// Provider returns fixed vectors for registered texts. Every unregistered
// text gets its own basis vector, so distinct unknown texts have cosine
// similarity 0 with each other and identical texts have similarity 1.
type Provider struct {
	mu      sync.Mutex
	vectors map[string][]float32
	next    int
	calls   map[string]int
	failOn  map[string]error
}

// New returns an empty fake provider.
func New() *Provider {
	return &Provider{
		vectors: make(map[string][]float32),
		calls:   make(map[string]int),
		failOn:  make(map[string]error),
	}
}

// Set registers the vector for text; shorter vectors are zero-padded.
func (p *Provider) Set(text string, vec ...float32) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vectors[text] = Pad(vec...)
	return p
}

// Fail makes Embed return err for text.
func (p *Provider) Fail(text string, err error) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failOn[text] = err
	return p
}

// Calls returns how many times text was embedded.
func (p *Provider) Calls(text string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[text]
}

// TotalCalls returns the number of Embed calls across all texts.
func (p *Provider) TotalCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, n := range p.calls {
		total += n
	}
	return total
}

// Embed implements embedding.Provider.
func (p *Provider) Embed(ctx context.Context, text string) (embedding.Embedding, error) {
	if err := ctx.Err(); err != nil {
		return embedding.Embedding{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[text]++

	if err, ok := p.failOn[text]; ok {
		return embedding.Embedding{}, err
	}
	vec, ok := p.vectors[text]
	if !ok {
		if p.next >= Dimensions {
			return embedding.Embedding{}, fmt.Errorf("embeddingtest: more than %d distinct unregistered texts", Dimensions)
		}
		vec = make([]float32, Dimensions)
		// Fill from the top so hand-registered low-index vectors stay orthogonal.
		vec[Dimensions-1-p.next] = 1
		p.next++
		p.vectors[text] = vec
	}

	out := make([]float32, len(vec))
	copy(out, vec)
	return embedding.Embedding{Vector: out}, nil
}

// ModelName implements embedding.Provider.
func (p *Provider) ModelName() string {
	return "embeddingtest"
}

// Dimensions implements embedding.Provider.
func (p *Provider) Dimensions() int {
	return Dimensions
}

// Pad zero-extends vec to Dimensions.
func Pad(vec ...float32) []float32 {
	out := make([]float32, Dimensions)
	copy(out, vec)
	return out
}
