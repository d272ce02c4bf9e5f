// Package semantic provides the similarity primitives used to compare embeddings.
package semantic

import (
	"fmt"
	"math"
)

// ScoreScale maps a mean similarity in [-1, 1] onto the display range used in reports.
const ScoreScale = 100

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical direction.
//
// If either vector has zero norm (including empty vectors) the result is 0,
// never NaN, so threshold comparisons stay well-defined. Vectors of different
// lengths are a programming error: every vector in a run comes from the same
// embedding model, and callers validate dimensions before comparing.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		panic(fmt.Sprintf("semantic: cosine similarity of vectors with different dimensions (%d vs %d)", len(a), len(b)))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Exceeds reports whether a similarity clears the threshold.
// The comparison is strict: a similarity equal to the threshold is not a match.
func Exceeds(similarity, threshold float64) bool {
	return similarity > threshold
}

// BothExceed reports whether a question/answer similarity pair clears the threshold.
func BothExceed(questionSim, answerSim, threshold float64) bool {
	return Exceeds(questionSim, threshold) && Exceeds(answerSim, threshold)
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Score combines a question and an answer similarity into a display score.
// It is symmetric and monotonic in both inputs.
func Score(questionSim, answerSim float64) float64 {
	return (questionSim + answerSim) / 2 * ScoreScale
}

// Percent converts a single similarity to the display range.
func Percent(similarity float64) float64 {
	return similarity * ScoreScale
}
