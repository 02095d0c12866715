package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pensionguru/backend/internal/apperr"
	"pensionguru/backend/internal/config"
)

func openAITestConfig(baseURL string) config.Config {
	return config.Config{
		AIProvider:        "openai",
		OpenAIAPIKey:      "test-key",
		OpenAIModel:       "gpt-4.1-mini",
		OpenAIBaseURL:     baseURL,
		AIMaxOutputTokens: 200,
		AITemperature:     0.5,
	}
}

func TestOpenAIClientComplete(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id":"chatcmpl-1",
			"object":"chat.completion",
			"created":1,
			"model":"gpt-4.1-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":" Hello there "}}],
			"usage":{"prompt_tokens":12,"completion_tokens":3,"total_tokens":15}
		}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(openAITestConfig(server.URL))
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "directive"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
		{Role: RoleUser, Content: "how much should I save?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello there", resp.Text)
	assert.Equal(t, 15, resp.Usage.TotalTokens)

	messages, ok := payload["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 4)
	first := messages[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.EqualValues(t, 200, payload["max_completion_tokens"])
}

func TestOpenAIClientDoesNotRetry(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(openAITestConfig(server.URL))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeProviderUpstream))
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	cfg := openAITestConfig("")
	cfg.OpenAIAPIKey = ""
	_, err := NewOpenAIClient(cfg)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeProviderConfig))
}

func TestConvertOpenAIMessagesSkipsUnknownRoles(t *testing.T) {
	converted := convertOpenAIMessages([]Message{
		{Role: RoleSystem, Content: "s"},
		{Role: "tool", Content: "t"},
		{Role: RoleUser, Content: "  "},
		{Role: RoleUser, Content: "u"},
	})
	assert.Len(t, converted, 2)
}
