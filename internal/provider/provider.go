// Package provider implements the LLM provider contract of spec.md §6:
// a single completion call per Reasoner attempt, selected by provider
// name ("claude", "aimlapi", "gemini"), each reading its API key from a
// fixed environment variable.
package provider

import (
	"context"
	"fmt"
)

// CompletionRequest is the input to a single LLM completion call.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Model        string
	Temperature  float32
	MaxTokens    int
}

// Client is the narrow contract the Reasoner depends on. The HTTP/websocket
// collaborator is responsible for supplying a concrete Client when this
// module is embedded behind a network surface; internal/provider supplies
// the three built-in implementations (claude, aimlapi, gemini) used when
// this module runs standalone.
type Client interface {
	// Name returns the provider's selector string ("claude", "aimlapi", "gemini").
	Name() string
	// Complete performs one completion call and returns the raw text response.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Selector identifies a built-in provider.
type Selector string

const (
	SelectorClaude  Selector = "claude"
	SelectorAIMLAPI Selector = "aimlapi"
	SelectorGemini  Selector = "gemini"
)

// DefaultModel is the per-provider default model identifier (spec.md §6).
var DefaultModel = map[Selector]string{
	SelectorClaude:  "claude-haiku-4-5",
	SelectorAIMLAPI: "x-ai/grok-4-fast-reasoning",
	SelectorGemini:  "gemini-2.5-pro",
}

// EnvVar is the environment variable each built-in provider reads its API
// key from.
var EnvVar = map[Selector]string{
	SelectorClaude:  "ANTHROPIC_API_KEY",
	SelectorAIMLAPI: "AIMLAPI_KEY",
	SelectorGemini:  "GEMINI_API_KEY",
}

// ErrUnknownProvider is returned by New for a selector outside {claude,
// aimlapi, gemini}.
var ErrUnknownProvider = fmt.Errorf("unknown provider")

// ErrNoAPIKey is returned by New when the provider's environment variable
// is unset or empty.
type ErrNoAPIKey struct {
	Selector Selector
	EnvVar   string
}

func (e *ErrNoAPIKey) Error() string {
	return fmt.Sprintf("no API key for provider %q: set %s", e.Selector, e.EnvVar)
}
