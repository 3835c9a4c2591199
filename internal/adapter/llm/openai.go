package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"repologic/internal/adapter/resilience"
	"repologic/internal/domain"
)

// ChatClient is a generic OpenAI-compatible /chat/completions client.
type ChatClient struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client

	mu    sync.Mutex
	stats Stats
}

// Stats tracks usage of a ChatClient.
type Stats struct {
	TotalCalls       int
	TotalInputChars  int
	TotalOutputChars int
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

var providers = map[string]struct {
	baseURL   string
	keyEnvVar string
}{
	"deepseek": {"https://api.deepseek.com/v1", "DEEPSEEK_API_KEY"},
	"openai":   {"https://api.openai.com/v1", "OPENAI_API_KEY"},
}

// NewChatClient creates a client for a known provider or, with baseURL set,
// any compatible endpoint. An empty apiKeyEnv falls back to the provider's
// conventional variable.
func NewChatClient(provider, model, baseURL, apiKeyEnv string) (*ChatClient, error) {
	p, ok := providers[provider]
	if !ok && baseURL == "" {
		return nil, fmt.Errorf("%w: unknown generation provider %q (set base_url for custom endpoints)", domain.ErrConfiguration, provider)
	}
	if baseURL == "" {
		baseURL = p.baseURL
	}
	if apiKeyEnv == "" {
		apiKeyEnv = p.keyEnvVar
	}

	var apiKey string
	if apiKeyEnv != "" {
		apiKey = os.Getenv(apiKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("%w: API key not found, set %s", domain.ErrConfiguration, apiKeyEnv)
		}
	}

	return NewChatClientWithKey(baseURL, apiKey, model, nil), nil
}

func NewChatClientWithKey(baseURL, apiKey, model string, client *http.Client) *ChatClient {
	if client == nil {
		client = &http.Client{}
	}
	return &ChatClient{
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		temperature: 0.2,
		maxTokens:   2000,
		client:      client,
	}
}

func (c *ChatClient) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	inputChars := 0
	for _, msg := range messages {
		inputChars += len(msg.Content)
	}

	jsonData, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &resilience.StatusError{Code: resp.StatusCode, Body: preview(body)}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("%w: failed to parse response: %v", domain.ErrExternalService, err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("%w: API error: %s", domain.ErrExternalService, chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", domain.ErrExternalService)
	}

	output := chatResp.Choices[0].Message.Content

	c.mu.Lock()
	c.stats.TotalCalls++
	c.stats.TotalInputChars += inputChars
	c.stats.TotalOutputChars += len(output)
	c.mu.Unlock()

	return output, nil
}

// Generate implements single-turn generation.
func (c *ChatClient) Generate(ctx context.Context, prompt string) (string, error) {
	return c.Chat(ctx, []ChatMessage{{Role: "user", Content: prompt}})
}

func (c *ChatClient) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *ChatClient) ModelName() string {
	return c.model
}

func preview(body []byte) string {
	if len(body) > 200 {
		return string(body[:200])
	}
	return string(body)
}
