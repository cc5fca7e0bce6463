package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(Selector("bogus"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestNewMissingAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := New(SelectorClaude)
	require.Error(t, err)
	var keyErr *ErrNoAPIKey
	require.ErrorAs(t, err, &keyErr)
	assert.Equal(t, "ANTHROPIC_API_KEY", keyErr.EnvVar)
}

func TestNewWithAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	client, err := New(SelectorClaude)
	require.NoError(t, err)
	assert.Equal(t, "claude", client.Name())
}

func TestResolveModel(t *testing.T) {
	assert.Equal(t, "custom-model", ResolveModel(SelectorClaude, "custom-model"))
	assert.Equal(t, "claude-haiku-4-5", ResolveModel(SelectorClaude, ""))
	assert.Equal(t, "gemini-2.5-pro", ResolveModel(SelectorGemini, ""))
}
