package embedding

import "math"

// Cosine computes the cosine similarity between two vectors in [-1, 1].
// Mismatched lengths or zero-norm vectors yield 0, never a division error.
func Cosine(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, false
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}

// Similarity normalizes cosine similarity from the natural [-1, 1] range to
// [0, 1]. Zero-norm vectors (for example from empty text) yield 0.
func Similarity(a, b []float32) float64 {
	cos, ok := Cosine(a, b)
	if !ok {
		return 0
	}
	return (cos + 1) / 2
}
