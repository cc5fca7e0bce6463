package provider

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"
)

// GeminiClient uses the google.golang.org/genai SDK directly, matching
// this corpus's native (non-OpenAI-compat) Gemini integration.
type GeminiClient struct {
	apiKey string

	once    sync.Once
	client  *genai.Client
	initErr error
}

// NewGeminiClient creates a Gemini completion client for the given API key.
func NewGeminiClient(apiKey string) *GeminiClient {
	return &GeminiClient{apiKey: apiKey}
}

func (g *GeminiClient) Name() string { return string(SelectorGemini) }

func (g *GeminiClient) ensureClient(ctx context.Context) error {
	g.once.Do(func() {
		g.client, g.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	return g.initErr
}

func (g *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if err := g.ensureClient(ctx); err != nil {
		return "", fmt.Errorf("gemini: client init failed: %w", err)
	}

	cfg := &genai.GenerateContentConfig{}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.Temperature > 0 {
		t := req.Temperature
		cfg.Temperature = &t
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	contents := []*genai.Content{genai.NewContentFromText(req.UserPrompt, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini: empty response")
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			return part.Text, nil
		}
	}
	return "", fmt.Errorf("gemini: response contained no text part")
}
