package embedding

import (
	"container/list"
	"context"
	"sync"
)

// CacheStats is implemented by providers that count cache hits.
type CacheStats interface {
	Stats() (hits, misses int)
}

// Cached memoizes embeddings by exact text with LRU eviction.
// It is safe for concurrent use.
type Cached struct {
	Provider

	mu     sync.Mutex
	cap    int
	ll     *list.List
	items  map[string]*list.Element
	hits   int
	misses int
}

type cacheEntry struct {
	key string
	vec []float32
}

// NewCached wraps p with an LRU cache holding up to capacity embeddings.
func NewCached(p Provider, capacity int) *Cached {
	return &Cached{
		Provider: p,
		cap:      capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Embed returns the cached embedding for text, computing it on a miss.
// Concurrent misses for the same text may both reach the provider.
func (c *Cached) Embed(ctx context.Context, text string) (Embedding, error) {
	if vec, ok := c.get(text); ok {
		return Embedding{Vector: vec}, nil
	}
	emb, err := c.Provider.Embed(ctx, text)
	if err != nil {
		return Embedding{}, err
	}
	c.add(text, emb.Vector)
	return Embedding{Vector: cloneVec(emb.Vector)}, nil
}

// EmbedBatch serves cached texts and embeds the distinct misses in one batch.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	out := make([]Embedding, len(texts))
	var missing []string
	positions := make(map[string][]int)
	for i, text := range texts {
		if vec, ok := c.get(text); ok {
			out[i] = Embedding{Vector: vec}
			continue
		}
		if _, seen := positions[text]; !seen {
			missing = append(missing, text)
		}
		positions[text] = append(positions[text], i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	embs, err := EmbedAll(ctx, c.Provider, missing)
	if err != nil {
		return nil, err
	}
	for k, text := range missing {
		c.add(text, embs[k].Vector)
		for _, i := range positions[text] {
			out[i] = Embedding{Vector: cloneVec(embs[k].Vector)}
		}
	}
	return out, nil
}

// Stats returns the number of cache hits and misses so far.
func (c *Cached) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *Cached) get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		c.hits++
		return cloneVec(el.Value.(*cacheEntry).vec), true
	}
	c.misses++
	return nil, false
}

func (c *Cached) add(key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*cacheEntry).vec = cloneVec(vec)
		c.ll.MoveToFront(el)
		return
	}
	c.items[key] = c.ll.PushFront(&cacheEntry{key: key, vec: cloneVec(vec)})
	if c.ll.Len() > c.cap {
		back := c.ll.Back()
		c.ll.Remove(back)
		delete(c.items, back.Value.(*cacheEntry).key)
	}
}

func cloneVec(vec []float32) []float32 {
	if vec == nil {
		return nil
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}
