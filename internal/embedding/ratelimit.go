package embedding

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited throttles calls to an underlying provider.
type RateLimited struct {
	Provider
	limiter *rate.Limiter
}

// NewRateLimited allows at most rps Embed calls per second to reach p.
func NewRateLimited(p Provider, rps float64) *RateLimited {
	return &RateLimited{
		Provider: p,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Embed waits for the limiter, then delegates.
func (r *RateLimited) Embed(ctx context.Context, text string) (Embedding, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Embedding{}, err
	}
	return r.Provider.Embed(ctx, text)
}

// EmbedBatch counts one batched request against the limit. A backend
// without batching is throttled per text.
func (r *RateLimited) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	if _, ok := r.Provider.(BatchProvider); !ok {
		return embedEach(ctx, r, texts)
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return EmbedAll(ctx, r.Provider, texts)
}
