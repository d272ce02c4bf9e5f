package embedding

import "context"

// BatchProvider embeds several texts in one backend request.
type BatchProvider interface {
	Provider
	EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error)
}

// EmbedAll embeds texts in order, in a single request when p supports
// batching and one call per text otherwise.
func EmbedAll(ctx context.Context, p Provider, texts []string) ([]Embedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	b, ok := p.(BatchProvider)
	if !ok {
		return embedEach(ctx, p, texts)
	}
	embs, err := b.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(embs) != len(texts) {
		return nil, unavailable("%s returned %d embeddings for %d texts", p.ModelName(), len(embs), len(texts))
	}
	return embs, nil
}

func embedEach(ctx context.Context, p Provider, texts []string) ([]Embedding, error) {
	out := make([]Embedding, len(texts))
	for i, text := range texts {
		emb, err := p.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}
