package semantic

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{
			name:     "identical vectors",
			a:        []float32{1, 0, 0},
			b:        []float32{1, 0, 0},
			expected: 1.0,
		},
		{
			name:     "orthogonal vectors",
			a:        []float32{1, 0},
			b:        []float32{0, 1},
			expected: 0.0,
		},
		{
			name:     "opposite vectors",
			a:        []float32{1, 0},
			b:        []float32{-1, 0},
			expected: -1.0,
		},
		{
			name:     "similar vectors",
			a:        []float32{1, 1},
			b:        []float32{1, 0},
			expected: 0.7071067, // cos(45 degrees)
		},
		{
			name:     "empty vectors",
			a:        []float32{},
			b:        []float32{},
			expected: 0.0,
		},
		{
			name:     "zero vector a",
			a:        []float32{0, 0, 0},
			b:        []float32{1, 0, 0},
			expected: 0.0,
		},
		{
			name:     "zero vector b",
			a:        []float32{1, 0, 0},
			b:        []float32{0, 0, 0},
			expected: 0.0,
		},
		{
			name:     "both zero",
			a:        []float32{0, 0},
			b:        []float32{0, 0},
			expected: 0.0,
		},
		{
			name:     "normalized vectors",
			a:        []float32{0.6, 0.8},
			b:        []float32{0.6, 0.8},
			expected: 1.0,
		},
		{
			name:     "scaled copy",
			a:        []float32{1, 2, 3},
			b:        []float32{2, 4, 6},
			expected: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.IsNaN(got) {
				t.Fatalf("CosineSimilarity(%v, %v) = NaN", tt.a, tt.b)
			}
			if math.Abs(got-tt.expected) > 0.0001 {
				t.Errorf("CosineSimilarity(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestCosineSimilarity_Commutative(t *testing.T) {
	pairs := [][2][]float32{
		{{1, 2, 3}, {4, 5, 6}},
		{{-1, 0.5, 2}, {3, -2, 0.25}},
		{{0, 0, 1}, {0, 0, 0}},
	}

	for _, p := range pairs {
		ab := CosineSimilarity(p[0], p[1])
		ba := CosineSimilarity(p[1], p[0])
		if ab != ba {
			t.Errorf("CosineSimilarity is not commutative: (%v, %v) = %v, reversed = %v", p[0], p[1], ab, ba)
		}
	}
}

func TestCosineSimilarity_SelfIsOne(t *testing.T) {
	vectors := [][]float32{
		{1, 2, 3},
		{-0.3, 0.7, 0.1, 9},
		{1e-3, 1e-3},
	}
	for _, v := range vectors {
		if got := CosineSimilarity(v, v); math.Abs(got-1) > 1e-6 {
			t.Errorf("CosineSimilarity(%v, self) = %v, want 1", v, got)
		}
	}
}

func TestCosineSimilarity_DimensionMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for mismatched dimensions")
		}
	}()
	CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0})
}

func TestBothExceed(t *testing.T) {
	tests := []struct {
		name      string
		qs, as    float64
		threshold float64
		want      bool
	}{
		{"question equal to threshold", 0.5, 0.9, 0.5, false},
		{"answer equal to threshold", 0.9, 0.5, 0.5, false},
		{"both just above", 0.51, 0.51, 0.5, true},
		{"one below", 0.49, 0.99, 0.5, false},
		{"negative similarities", -0.2, -0.1, 0.5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BothExceed(tt.qs, tt.as, tt.threshold); got != tt.want {
				t.Errorf("BothExceed(%v, %v, %v) = %v, want %v", tt.qs, tt.as, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestScore(t *testing.T) {
	if got := Score(0.6, 0.4); math.Abs(got-50) > 1e-9 {
		t.Errorf("Score(0.6, 0.4) = %v, want 50", got)
	}
	if Score(0.6, 0.4) != Score(0.4, 0.6) {
		t.Error("Score is not symmetric")
	}
	if Score(0.7, 0.4) <= Score(0.6, 0.4) {
		t.Error("Score is not monotonic in the question similarity")
	}
	if Score(0.6, 0.5) <= Score(0.6, 0.4) {
		t.Error("Score is not monotonic in the answer similarity")
	}
}

func TestMean(t *testing.T) {
	if got := Mean(nil); got != 0 {
		t.Errorf("Mean(nil) = %v, want 0", got)
	}
	if got := Mean([]float64{1, 0.5, 0}); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Mean = %v, want 0.5", got)
	}
}
