package reference

import (
	"context"
	"sync"
)

// Memory is an in-process store, used for tests and dry runs.
type Memory struct {
	mu    sync.Mutex
	pairs []Pair
	err   error
}

// NewMemory returns a store holding pairs.
func NewMemory(pairs ...Pair) *Memory {
	return &Memory{pairs: pairs}
}

// FailWith makes every later call return err wrapped in ErrStore.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *Memory) Init(ctx context.Context) error { return nil }
func (m *Memory) Close() error                   { return nil }

func (m *Memory) FetchPairs(ctx context.Context) ([]Pair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, wrapStore("fetching pairs", m.err)
	}
	out := make([]Pair, len(m.pairs))
	copy(out, m.pairs)
	if _, err := CheckDimensions(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Memory) AddPairs(ctx context.Context, pairs []Pair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return wrapStore("adding pairs", m.err)
	}
	m.pairs = append(m.pairs, pairs...)
	return nil
}

func (m *Memory) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pairs), nil
}
