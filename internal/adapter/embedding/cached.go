package embedding

import (
	"context"

	"repologic/internal/adapter/cache"
	"repologic/internal/port"
)

// CachedEmbedder memoizes single-text embeddings, which is what retrieval
// issues for questions and selection anchors. Batch calls pass through.
type CachedEmbedder struct {
	inner port.Embedder
	cache *cache.EmbeddingCache
}

func NewCachedEmbedder(inner port.Embedder, c *cache.EmbeddingCache) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: c}
}

func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	model := e.inner.ModelName()
	if vec, ok := e.cache.Get(model, text); ok {
		return vec, nil
	}
	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Put(model, text, vec)
	return vec, nil
}

func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return e.inner.EmbedBatch(ctx, texts)
}

func (e *CachedEmbedder) ModelName() string {
	return e.inner.ModelName()
}
