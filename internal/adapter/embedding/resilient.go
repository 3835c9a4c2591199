package embedding

import (
	"context"

	"repologic/internal/adapter/resilience"
	"repologic/internal/port"
)

// ResilientEmbedder applies a resilience policy to every call of the
// wrapped embedder.
type ResilientEmbedder struct {
	inner  port.Embedder
	policy *resilience.Policy
}

func WithPolicy(inner port.Embedder, policy *resilience.Policy) *ResilientEmbedder {
	return &ResilientEmbedder{inner: inner, policy: policy}
}

func (e *ResilientEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return resilience.Do(ctx, e.policy, "embed", func(ctx context.Context) ([]float32, error) {
		return e.inner.Embed(ctx, text)
	})
}

func (e *ResilientEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return resilience.Do(ctx, e.policy, "embed batch", func(ctx context.Context) ([][]float32, error) {
		return e.inner.EmbedBatch(ctx, texts)
	})
}

func (e *ResilientEmbedder) ModelName() string {
	return e.inner.ModelName()
}
