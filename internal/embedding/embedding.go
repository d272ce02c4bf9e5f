// Package embedding provides vector embedding generation for text.
package embedding

import (
	"errors"
	"fmt"
)

// ErrUnavailable is returned when the embedding model or service cannot be
// reached, fails to initialize, or returns an unusable response.
var ErrUnavailable = errors.New("embedding unavailable")

// Embedding represents a vector embedding of text.
type Embedding struct {
	Vector []float32 // The embedding vector (e.g., 384 dimensions for all-minilm)
}

// Dimensions returns the dimensionality of the embedding.
func (e Embedding) Dimensions() int {
	return len(e.Vector)
}

// unavailable wraps a provider failure so callers can classify it with errors.Is.
func unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnavailable, fmt.Sprintf(format, args...))
}
