package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Lazy defers creating a provider until the first Embed call and creates it
// at most once. An initialization failure is permanent: every later call
// reports it as ErrUnavailable.
type Lazy struct {
	model      string
	dimensions int
	init       func(context.Context) (Provider, error)

	once     sync.Once
	provider Provider
	err      error
}

// NewLazy returns a provider that runs init on first use.
// model and dims describe the provider before it has been created.
func NewLazy(model string, dims int, init func(context.Context) (Provider, error)) *Lazy {
	return &Lazy{model: model, dimensions: dims, init: init}
}

func (l *Lazy) get(ctx context.Context) (Provider, error) {
	l.once.Do(func() {
		slog.Debug("initializing embedding provider", "model", l.model)
		l.provider, l.err = l.init(ctx)
		switch {
		case l.err == nil:
		case errors.Is(l.err, ErrUnavailable):
			l.err = fmt.Errorf("initializing %s: %w", l.model, l.err)
		default:
			l.err = fmt.Errorf("%w: initializing %s: %w", ErrUnavailable, l.model, l.err)
		}
	})
	return l.provider, l.err
}

// Embed generates an embedding for the given text.
func (l *Lazy) Embed(ctx context.Context, text string) (Embedding, error) {
	p, err := l.get(ctx)
	if err != nil {
		return Embedding{}, err
	}
	return p.Embed(ctx, text)
}

// EmbedBatch initializes the provider if needed and embeds texts in order.
func (l *Lazy) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	p, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return EmbedAll(ctx, p, texts)
}

// ModelName returns the name of the embedding model.
func (l *Lazy) ModelName() string {
	return l.model
}

// Dimensions returns the expected vector dimensions.
func (l *Lazy) Dimensions() int {
	return l.dimensions
}
