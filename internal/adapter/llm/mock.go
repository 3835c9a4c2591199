package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockGenerator answers every prompt with a fixed reply and records prompts.
type MockGenerator struct {
	Reply string

	mu      sync.Mutex
	prompts []string
}

func NewMockGenerator(reply string) *MockGenerator {
	return &MockGenerator{Reply: reply}
}

func (m *MockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.Reply != "" {
		return m.Reply, nil
	}
	return fmt.Sprintf("mock answer (%d prompt chars)", len(prompt)), nil
}

func (m *MockGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

func (m *MockGenerator) ModelName() string {
	return "mock"
}
