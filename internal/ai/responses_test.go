package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"pensionguru/backend/internal/apperr"
)

func newTestResponsesClient(baseURL string, maxOutputTokens int) *ResponsesClient {
	return &ResponsesClient{
		apiKey:          "test",
		baseURL:         baseURL,
		model:           "gpt-4.1-mini",
		maxOutputTokens: maxOutputTokens,
		httpClient: &http.Client{
			Timeout: 2 * time.Second,
		},
	}
}

func TestResponsesClientDoesNotRetryOnServerError(t *testing.T) {
	t.Parallel()

	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"message":"temporary upstream issue"}}`))
	}))
	defer server.Close()

	client := newTestResponsesClient(server.URL, 256)
	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hello"}})
	if err == nil {
		t.Fatalf("expected upstream failure")
	}
	if !apperr.HasCode(err, apperr.CodeProviderUpstream) {
		t.Fatalf("expected upstream code, got %q", apperr.CodeOf(err))
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", got)
	}
}

func TestResponsesClientHonorsConfiguredMaxOutputTokens(t *testing.T) {
	t.Parallel()

	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode request payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model":"gpt-4.1-mini",
			"output":[{"content":[{"type":"output_text","text":"ok"}]}],
			"usage":{"input_tokens":8,"output_tokens":3,"total_tokens":11}
		}`))
	}))
	defer server.Close()

	client := newTestResponsesClient(server.URL, 320)
	resp, err := client.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "earlier question"},
		{Role: RoleAssistant, Content: "earlier answer"},
		{Role: RoleUser, Content: "token test"},
	})
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if resp.Text != "ok" || resp.Usage.TotalTokens != 11 {
		t.Fatalf("unexpected completion: %+v", resp)
	}
	if got := int(extractNumberFromMap(received, "max_output_tokens")); got != 320 {
		t.Fatalf("expected max_output_tokens=320, got %d", got)
	}
	input, _ := received["input"].([]any)
	if len(input) != 4 {
		t.Fatalf("expected 4 input blocks, got %d", len(input))
	}
	assistant, _ := input[2].(map[string]any)
	content, _ := assistant["content"].([]any)
	first, _ := content[0].(map[string]any)
	if toString(first["type"]) != "output_text" {
		t.Fatalf("assistant turns must be sent as output_text, got %v", first["type"])
	}
}

func TestResponsesClientReportsIncompleteOutput(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model":"gpt-4.1-mini",
			"output":[],
			"incomplete_details":{"reason":"max_output_tokens"}
		}`))
	}))
	defer server.Close()

	client := newTestResponsesClient(server.URL, 600)
	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "needs a longer response"}})
	if !apperr.HasCode(err, apperr.CodeProviderResponse) {
		t.Fatalf("expected response code, got %v", err)
	}
}

func TestResponsesClientTimesOutWithContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := newTestResponsesClient(server.URL, 100)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, []Message{{Role: RoleUser, Content: "slow"}})
	if !apperr.IsTimeout(err) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestResponsesClientRequiresAPIKey(t *testing.T) {
	client := newTestResponsesClient("http://127.0.0.1:1", 100)
	client.apiKey = ""
	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if !apperr.HasCode(err, apperr.CodeProviderConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestExtractResponseAnswerPrefersOutputText(t *testing.T) {
	parsed := parseJSONStringMap([]byte(`{"output_text":"direct","output":[{"content":[{"type":"output_text","text":"nested"}]}]}`))
	if got := extractResponseAnswer(parsed); got != "direct" {
		t.Fatalf("unexpected answer %q", got)
	}
	parsed = parseJSONStringMap([]byte(`{"output":[{"content":[{"type":"output_text","text":{"value":"from value"}}]}]}`))
	if got := extractResponseAnswer(parsed); got != "from value" {
		t.Fatalf("unexpected answer %q", got)
	}
}
