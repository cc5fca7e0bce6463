package provider

import (
	"fmt"
	"os"
)

// New builds the built-in Client for the given selector, reading its API
// key from the fixed environment variable (spec.md §6). Returns a
// ConfigurationError-shaped error (via ErrNoAPIKey/ErrUnknownProvider) when
// the provider is unrecognized or its key is absent — this surfaces
// immediately, before the run starts, per the error taxonomy of §7.
func New(sel Selector) (Client, error) {
	envVar, ok := EnvVar[sel]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, sel)
	}
	key := os.Getenv(envVar)
	if key == "" {
		return nil, &ErrNoAPIKey{Selector: sel, EnvVar: envVar}
	}
	switch sel {
	case SelectorClaude:
		return NewClaudeClient(key), nil
	case SelectorAIMLAPI:
		return NewAIMLAPIClient(key), nil
	case SelectorGemini:
		return NewGeminiClient(key), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, sel)
	}
}

// ResolveModel returns the explicit model if non-empty, else the
// provider's default model identifier.
func ResolveModel(sel Selector, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return DefaultModel[sel]
}
