package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"repologic/internal/adapter/resilience"
	"repologic/internal/domain"
	"repologic/internal/port"
)

var (
	_ port.Generator = (*ChatClient)(nil)
	_ port.Generator = (*OllamaGenerator)(nil)
	_ port.Generator = (*MockGenerator)(nil)
	_ port.Generator = (*ResilientGenerator)(nil)
)

func TestChatClientGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "explain this", req.Messages[0].Content)

		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"it parses config"}}]}`))
	}))
	defer srv.Close()

	c := NewChatClientWithKey(srv.URL, "k", "deepseek-chat", srv.Client())
	out, err := c.Generate(context.Background(), "explain this")
	require.NoError(t, err)
	assert.Equal(t, "it parses config", out)

	stats := c.Stats()
	assert.Equal(t, 1, stats.TotalCalls)
	assert.Equal(t, len("explain this"), stats.TotalInputChars)
}

func TestChatClientErrors(t *testing.T) {
	body := `{"choices":[]}`
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewChatClientWithKey(srv.URL, "", "m", nil)
	_, err := c.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, domain.ErrExternalService)

	body = `{"error":{"message":"quota"}}`
	_, err = c.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, domain.ErrExternalService)

	status = http.StatusTooManyRequests
	_, err = c.Generate(context.Background(), "p")
	var statusErr *resilience.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.True(t, statusErr.Retryable())
}

func TestNewChatClientConfiguration(t *testing.T) {
	_, err := NewChatClient("unknown", "m", "", "")
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	t.Setenv("DEEPSEEK_API_KEY", "")
	_, err = NewChatClient("deepseek", "deepseek-chat", "", "")
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	t.Setenv("DEEPSEEK_API_KEY", "k")
	c, err := NewChatClient("deepseek", "deepseek-chat", "", "")
	require.NoError(t, err)
	assert.Equal(t, "https://api.deepseek.com/v1", c.baseURL)
}

func TestOllamaGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req struct {
			Stream bool `json:"stream"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		w.Write([]byte(`{"message":{"role":"assistant","content":"hello"}}`))
	}))
	defer srv.Close()

	g := NewOllamaGenerator(srv.URL, "qwen3", "", srv.Client())
	out, err := g.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestResilientGeneratorTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	policy := resilience.NewPolicy(resilience.Config{Timeout: 20 * time.Millisecond}, nil)
	g := WithPolicy(NewChatClientWithKey(srv.URL, "", "m", nil), policy)

	_, err := g.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

func TestMockGeneratorRecordsPrompts(t *testing.T) {
	g := NewMockGenerator("fixed")
	out, err := g.Generate(context.Background(), "one")
	require.NoError(t, err)
	assert.Equal(t, "fixed", out)
	assert.Equal(t, []string{"one"}, g.Prompts())
}
