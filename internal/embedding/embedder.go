// Package embedding provides semantic text embedding for the matching
// engine: a provider interface, a Gemini-backed implementation, a
// permanently-unavailable stub, and a content-addressed caching decorator.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrUnavailable is returned by providers that cannot serve embeddings.
// Callers are expected to route to the keyword fallback, never to crash.
var ErrUnavailable = errors.New("embedding provider is unavailable")

// MaxTextLength is the longest text sent to the model; longer inputs are
// truncated to keep embeddings stable across providers.
const MaxTextLength = 5000

// Embedder converts text into fixed-dimension vectors.
//
// Empty or whitespace-only text yields a zero vector of the provider's
// dimensionality without a model call. Available reports whether the
// provider is usable; callers check it once at construction time and route
// permanently to the fallback path when it is false.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds several texts at once. More efficient than
	// repeated Embed calls for providers with batch endpoints.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	Dimensions() int
	Model() string
	Available() bool
}

// NormalizeText trims, lowercases and collapses whitespace so the same
// semantic input always maps to the same cache key regardless of call site.
func NormalizeText(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// CacheKey derives a deterministic content-addressed key from normalized
// text plus a purpose tag and model identifier.
func CacheKey(purpose, model, text string) string {
	h := sha256.New()
	h.Write([]byte(purpose))
	h.Write([]byte{0})
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(NormalizeText(text)))
	return hex.EncodeToString(h.Sum(nil))
}

// TruncateText caps text at MaxTextLength characters.
func TruncateText(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxTextLength {
		return text
	}
	return string(runes[:MaxTextLength])
}

// ZeroVector returns an all-zero vector of the given dimensionality.
func ZeroVector(dimensions int) []float32 {
	if dimensions <= 0 {
		return nil
	}
	return make([]float32, dimensions)
}
