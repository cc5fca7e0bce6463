package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const aimlapiDefaultBaseURL = "https://api.aimlapi.com/v1"

// AIMLAPIClient calls an OpenAI-Chat-Completions-compatible endpoint,
// matching the corpus's pattern of treating any OpenAI-shaped provider
// (aimlapi.com, Ollama, LM Studio, ...) with one client implementation
// parameterized by base URL.
type AIMLAPIClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// AIMLAPIOption configures an AIMLAPIClient.
type AIMLAPIOption func(*AIMLAPIClient)

// WithAIMLAPIBaseURL overrides the API base URL, useful for tests.
func WithAIMLAPIBaseURL(url string) AIMLAPIOption {
	return func(c *AIMLAPIClient) { c.baseURL = url }
}

// NewAIMLAPIClient creates an AIMLAPIClient with the given API key.
func NewAIMLAPIClient(apiKey string, opts ...AIMLAPIOption) *AIMLAPIClient {
	c := &AIMLAPIClient{
		apiKey:  apiKey,
		baseURL: aimlapiDefaultBaseURL,
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *AIMLAPIClient) Name() string { return string(SelectorAIMLAPI) }

func (c *AIMLAPIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	var messages []map[string]string
	if req.SystemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.SystemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": req.UserPrompt})

	body := map[string]any{
		"model":    req.Model,
		"messages": messages,
	}
	if req.Temperature > 0 {
		body["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal aimlapi request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build aimlapi request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("aimlapi request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("aimlapi API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var apiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("decode aimlapi response: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("aimlapi response contained no choices")
	}
	return apiResp.Choices[0].Message.Content, nil
}
