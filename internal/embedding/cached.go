package embedding

import (
	"context"
	"time"

	"github.com/spigell/talent-matcher/internal/cache"
	"github.com/spigell/talent-matcher/internal/logger"

	"go.uber.org/zap"
)

const embeddingPurpose = "embedding"

// DefaultEmbeddingTTL keeps vectors for a long time: keys are
// content-addressed and stable for a given model.
const DefaultEmbeddingTTL = 24 * time.Hour

// Cached decorates an Embedder with a content-addressed TTL cache. Keys are
// derived from normalized text, the model identifier and a purpose tag, so
// identical semantic inputs hit the same entry regardless of call site.
type Cached struct {
	inner  Embedder
	store  *cache.TTL[[]float32]
	logger *zap.Logger
}

// NewCached wraps the provider with the given cache store.
func NewCached(inner Embedder, store *cache.TTL[[]float32], log *zap.Logger) *Cached {
	return &Cached{
		inner:  inner,
		store:  store,
		logger: logger.WithCommonFields(log, "cached", inner.Model()),
	}
}

func (c *Cached) Dimensions() int { return c.inner.Dimensions() }

func (c *Cached) Model() string { return c.inner.Model() }

func (c *Cached) Available() bool { return c.inner.Available() }

func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.store == nil {
		return c.inner.Embed(ctx, text)
	}

	key := CacheKey(embeddingPurpose, c.inner.Model(), text)
	if vector, ok := c.store.Get(key); ok {
		return vector, nil
	}

	vector, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.store.Set(key, vector)
	return vector, nil
}

// EmbedBatch serves cached positions locally and forwards only the misses
// to the underlying provider in a single call.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if c.store == nil {
		return c.inner.EmbedBatch(ctx, texts)
	}

	vectors := make([][]float32, len(texts))
	missing := make([]string, 0, len(texts))
	positions := make([]int, 0, len(texts))

	for i, text := range texts {
		key := CacheKey(embeddingPurpose, c.inner.Model(), text)
		if vector, ok := c.store.Get(key); ok {
			vectors[i] = vector
			continue
		}
		missing = append(missing, text)
		positions = append(positions, i)
	}

	if len(missing) == 0 {
		return vectors, nil
	}

	computed, err := c.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}

	for idx, vector := range computed {
		pos := positions[idx]
		vectors[pos] = vector
		c.store.Set(CacheKey(embeddingPurpose, c.inner.Model(), texts[pos]), vector)
	}

	stats := c.store.Stats()
	c.logger.Debug("embedding cache state",
		zap.Int64("hits", stats.Hits),
		zap.Int64("misses", stats.Misses),
		zap.Int("entries", c.store.Len()),
	)

	return vectors, nil
}
