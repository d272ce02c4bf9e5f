package embedding

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	einoembedding "github.com/cloudwego/eino/components/embedding"
)

// countingProvider returns a vector derived from the text length and counts calls.
type countingProvider struct {
	calls atomic.Int64
	err   error
}

func (c *countingProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	c.calls.Add(1)
	if c.err != nil {
		return Embedding{}, c.err
	}
	return Embedding{Vector: []float32{float32(len(text)), 1}}, nil
}

func (c *countingProvider) ModelName() string { return "counting" }
func (c *countingProvider) Dimensions() int   { return 2 }

func TestLazy_InitializesOnce(t *testing.T) {
	var inits atomic.Int64
	inner := &countingProvider{}
	lazy := NewLazy("counting", 2, func(context.Context) (Provider, error) {
		inits.Add(1)
		return inner, nil
	})

	if inits.Load() != 0 {
		t.Fatal("provider initialized before first use")
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := lazy.Embed(context.Background(), "text"); err != nil {
				t.Errorf("Embed() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := inits.Load(); got != 1 {
		t.Errorf("init ran %d times, want 1", got)
	}
	if got := inner.calls.Load(); got != 16 {
		t.Errorf("inner calls = %d, want 16", got)
	}
}

func TestLazy_InitFailureIsSticky(t *testing.T) {
	var inits atomic.Int64
	lazy := NewLazy("broken", 2, func(context.Context) (Provider, error) {
		inits.Add(1)
		return nil, errors.New("model download failed")
	})

	for i := 0; i < 3; i++ {
		_, err := lazy.Embed(context.Background(), "text")
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("Embed() error = %v, want ErrUnavailable", err)
		}
		if !strings.Contains(err.Error(), "model download failed") {
			t.Errorf("error %q does not carry the init failure", err)
		}
	}
	if _, err := lazy.EmbedBatch(context.Background(), []string{"a"}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("EmbedBatch() error = %v, want ErrUnavailable", err)
	}
	if got := inits.Load(); got != 1 {
		t.Errorf("init ran %d times, want 1", got)
	}
}

func TestLazy_UnavailableNamedOnce(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"plain init error", errors.New("model not found")},
		{"already unavailable", unavailable("ollama at http://localhost:11434: connection refused")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lazy := NewLazy("m", 2, func(context.Context) (Provider, error) { return nil, tt.err })
			_, err := lazy.Embed(context.Background(), "x")
			if !errors.Is(err, ErrUnavailable) {
				t.Fatalf("Embed() error = %v, want ErrUnavailable", err)
			}
			if n := strings.Count(err.Error(), ErrUnavailable.Error()); n != 1 {
				t.Errorf("error %q names %q %d times, want 1", err, ErrUnavailable, n)
			}
		})
	}
}

// batchingProvider wraps countingProvider with EmbedBatch and records batch sizes.
type batchingProvider struct {
	countingProvider
	mu      sync.Mutex
	batches [][]string
}

func (b *batchingProvider) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	b.mu.Lock()
	b.batches = append(b.batches, texts)
	b.mu.Unlock()
	return embedEach(ctx, &b.countingProvider, texts)
}

func TestEmbedAll(t *testing.T) {
	ctx := context.Background()

	plain := &countingProvider{}
	embs, err := EmbedAll(ctx, plain, []string{"a", "bb"})
	if err != nil || len(embs) != 2 || embs[1].Vector[0] != 2 {
		t.Fatalf("EmbedAll(plain) = %v, %v", embs, err)
	}
	if plain.calls.Load() != 2 {
		t.Errorf("plain calls = %d, want 2", plain.calls.Load())
	}

	batching := &batchingProvider{}
	if _, err := EmbedAll(ctx, batching, []string{"a", "bb", "ccc"}); err != nil {
		t.Fatalf("EmbedAll(batching) error = %v", err)
	}
	if len(batching.batches) != 1 || len(batching.batches[0]) != 3 {
		t.Errorf("batches = %v, want one batch of 3", batching.batches)
	}

	if embs, err := EmbedAll(ctx, batching, nil); embs != nil || err != nil {
		t.Errorf("EmbedAll(nil) = %v, %v", embs, err)
	}
}

func TestWrappers_BatchThroughStack(t *testing.T) {
	ctx := context.Background()
	inner := &batchingProvider{}
	var p Provider = NewLazy("counting", 2, func(context.Context) (Provider, error) { return inner, nil })
	p = NewRateLimited(p, 1000)
	cached := NewCached(p, 16)

	embs, err := EmbedAll(ctx, cached, []string{"a", "bb", "a"})
	if err != nil {
		t.Fatalf("EmbedAll() error = %v", err)
	}
	if embs[0].Vector[0] != 1 || embs[1].Vector[0] != 2 || embs[2].Vector[0] != 1 {
		t.Errorf("embeddings out of order: %v", embs)
	}
	if !reflect.DeepEqual(inner.batches, [][]string{{"a", "bb"}}) {
		t.Errorf("batches = %v, want [[a bb]]", inner.batches)
	}

	// Everything is cached now; the backend sees no new request.
	if _, err := EmbedAll(ctx, cached, []string{"bb", "a"}); err != nil {
		t.Fatalf("second EmbedAll() error = %v", err)
	}
	if len(inner.batches) != 1 {
		t.Errorf("batches = %v, want 1", inner.batches)
	}
	hits, _ := cached.Stats()
	if hits != 2 {
		t.Errorf("hits = %d, want 2", hits)
	}
}

func TestRateLimited_BatchWithoutBatchingBackend(t *testing.T) {
	inner := &countingProvider{}
	limited := NewRateLimited(inner, 1000)

	embs, err := limited.EmbedBatch(context.Background(), []string{"a", "bb"})
	if err != nil || len(embs) != 2 {
		t.Fatalf("EmbedBatch() = %v, %v", embs, err)
	}
	if inner.calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", inner.calls.Load())
	}
}

func TestCached(t *testing.T) {
	inner := &countingProvider{}
	cached := NewCached(inner, 2)
	ctx := context.Background()

	for _, text := range []string{"a", "a", "bb", "a"} {
		if _, err := cached.Embed(ctx, text); err != nil {
			t.Fatalf("Embed(%q) error = %v", text, err)
		}
	}
	if got := inner.calls.Load(); got != 2 {
		t.Errorf("inner calls = %d, want 2", got)
	}
	hits, misses := cached.Stats()
	if hits != 2 || misses != 2 {
		t.Errorf("Stats() = %d hits, %d misses, want 2, 2", hits, misses)
	}

	// "ccc" evicts the least recently used entry ("bb").
	cached.Embed(ctx, "ccc")
	cached.Embed(ctx, "bb")
	if got := inner.calls.Load(); got != 4 {
		t.Errorf("inner calls after eviction = %d, want 4", got)
	}
}

func TestCached_ReturnsCopies(t *testing.T) {
	cached := NewCached(&countingProvider{}, 4)
	ctx := context.Background()

	first, _ := cached.Embed(ctx, "abc")
	first.Vector[0] = 999

	second, _ := cached.Embed(ctx, "abc")
	if second.Vector[0] != 3 {
		t.Errorf("cached vector mutated through returned slice: %v", second.Vector)
	}
}

func TestCached_ErrorsNotCached(t *testing.T) {
	inner := &countingProvider{err: errors.New("boom")}
	cached := NewCached(inner, 4)

	for i := 0; i < 2; i++ {
		if _, err := cached.Embed(context.Background(), "x"); err == nil {
			t.Fatal("expected error")
		}
	}
	if got := inner.calls.Load(); got != 2 {
		t.Errorf("inner calls = %d, want 2", got)
	}
}

func TestRateLimited_Delegates(t *testing.T) {
	inner := &countingProvider{}
	limited := NewRateLimited(inner, 1000)

	emb, err := limited.Embed(context.Background(), "abcd")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if emb.Vector[0] != 4 {
		t.Errorf("Vector = %v", emb.Vector)
	}
	if limited.ModelName() != "counting" {
		t.Errorf("ModelName() = %s, want counting", limited.ModelName())
	}
}

func TestRateLimited_CanceledContext(t *testing.T) {
	limited := NewRateLimited(&countingProvider{}, 0.001)
	ctx, cancel := context.WithCancel(context.Background())

	// Drain the single burst token, then cancel.
	limited.Embed(ctx, "x")
	cancel()
	if _, err := limited.Embed(ctx, "x"); err == nil {
		t.Error("expected error from canceled context")
	}
}

// fakeEinoEmbedder implements the eino Embedder interface.
type fakeEinoEmbedder struct {
	vectors [][]float64
	err     error
}

func (f *fakeEinoEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...einoembedding.Option) ([][]float64, error) {
	return f.vectors, f.err
}

func TestEinoProvider_Embed(t *testing.T) {
	p := newEinoProvider(&fakeEinoEmbedder{vectors: [][]float64{{0.5, -0.25, 1}}}, "fake", 3)

	emb, err := p.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	want := []float32{0.5, -0.25, 1}
	for i := range want {
		if emb.Vector[i] != want[i] {
			t.Fatalf("Vector = %v, want %v", emb.Vector, want)
		}
	}
}

func TestEinoProvider_Errors(t *testing.T) {
	tests := []struct {
		name     string
		embedder *fakeEinoEmbedder
		dims     int
	}{
		{"backend error", &fakeEinoEmbedder{err: errors.New("401 unauthorized")}, 3},
		{"no vectors", &fakeEinoEmbedder{vectors: [][]float64{}}, 3},
		{"wrong dimensions", &fakeEinoEmbedder{vectors: [][]float64{{1, 2}}}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newEinoProvider(tt.embedder, "fake", tt.dims)
			if _, err := p.Embed(context.Background(), "text"); !errors.Is(err, ErrUnavailable) {
				t.Errorf("Embed() error = %v, want ErrUnavailable", err)
			}
		})
	}
}

func TestNew_Validation(t *testing.T) {
	ctx := context.Background()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"unsupported provider", Config{Provider: "fastembed"}, "unsupported embedding provider"},
		{"openai requires API key", Config{Provider: ProviderOpenAI}, "OpenAI API key is required"},
		{"gemini requires API key", Config{Provider: ProviderGemini}, "gemini API key is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(ctx, tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("New() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestDimensionsFor(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want int
	}{
		{"default ollama", Config{}, DefaultDimensions},
		{"default model named", Config{Model: DefaultModel}, DefaultDimensions},
		{"custom model", Config{Model: "nomic-embed-text"}, 0},
		{"custom model with size", Config{Model: "nomic-embed-text", Dimensions: 768}, 768},
		{"openai default", Config{Provider: ProviderOpenAI}, 1536},
		{"openai custom", Config{Provider: ProviderOpenAI, Model: "text-embedding-3-large"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dimensionsFor(tt.cfg); got != tt.want {
				t.Errorf("dimensionsFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewShared_DescribesProviderBeforeInit(t *testing.T) {
	p := NewShared(Config{Provider: ProviderOpenAI, CacheSize: 10, RateLimit: 5})
	if p.ModelName() != "text-embedding-3-small" {
		t.Errorf("ModelName() = %s", p.ModelName())
	}
	if p.Dimensions() != 1536 {
		t.Errorf("Dimensions() = %d", p.Dimensions())
	}

	p = NewShared(Config{Model: "nomic-embed-text", Dimensions: 768})
	if p.ModelName() != "nomic-embed-text" || p.Dimensions() != 768 {
		t.Errorf("NewShared(custom) = %s/%d", p.ModelName(), p.Dimensions())
	}
}
