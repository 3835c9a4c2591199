package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"repologic/internal/adapter/resilience"
	"repologic/internal/domain"
)

// OllamaGenerator uses the native Ollama /api/chat endpoint without streaming.
type OllamaGenerator struct {
	baseURL string
	model   string
	token   string
	client  *http.Client
}

func NewOllamaGenerator(baseURL, model, token string, client *http.Client) *OllamaGenerator {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if client == nil {
		client = &http.Client{}
	}
	return &OllamaGenerator{baseURL: baseURL, model: model, token: token, client: client}
}

func (o *OllamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"model": o.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"stream": false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.token != "" {
		req.Header.Set("Authorization", "Bearer "+o.token)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &resilience.StatusError{Code: resp.StatusCode, Body: preview(body)}
	}

	var out struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: ollama chat decode: %v", domain.ErrExternalService, err)
	}
	return out.Message.Content, nil
}

func (o *OllamaGenerator) ModelName() string {
	return o.model
}
