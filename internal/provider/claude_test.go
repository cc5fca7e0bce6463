package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaudeClientComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-haiku-4-5", body["model"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": `{"name":"wf"}`},
			},
			"stop_reason": "end_turn",
		})
	}))
	defer srv.Close()

	client := NewClaudeClient("test-key", WithClaudeBaseURL(srv.URL))
	text, err := client.Complete(context.Background(), CompletionRequest{
		SystemPrompt: "system",
		UserPrompt:   "user",
		Model:        "claude-haiku-4-5",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"wf"}`, text)
	assert.Equal(t, "claude", client.Name())
}

func TestClaudeClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	client := NewClaudeClient("test-key", WithClaudeBaseURL(srv.URL))
	_, err := client.Complete(context.Background(), CompletionRequest{Model: "claude-haiku-4-5"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
