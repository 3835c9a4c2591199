package llm

import (
	"context"

	"repologic/internal/adapter/resilience"
	"repologic/internal/port"
)

type ResilientGenerator struct {
	inner  port.Generator
	policy *resilience.Policy
}

func WithPolicy(inner port.Generator, policy *resilience.Policy) *ResilientGenerator {
	return &ResilientGenerator{inner: inner, policy: policy}
}

func (g *ResilientGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return resilience.Do(ctx, g.policy, "generate", func(ctx context.Context) (string, error) {
		return g.inner.Generate(ctx, prompt)
	})
}

func (g *ResilientGenerator) ModelName() string {
	return g.inner.ModelName()
}
