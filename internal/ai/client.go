// Package ai talks to the language-model providers that write assistant replies.
package ai

import (
	"context"
	"strings"

	"pensionguru/backend/internal/apperr"
	"pensionguru/backend/internal/config"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Completion struct {
	Text  string
	Model string
	Usage Usage
}

// Client produces one assistant reply for an ordered message list. A call is
// made exactly once; implementations never retry and never persist.
type Client interface {
	Complete(ctx context.Context, messages []Message) (Completion, error)
}

// NewFromConfig picks the provider named by AI_PROVIDER.
func NewFromConfig(ctx context.Context, cfg config.Config) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.AIProvider)) {
	case "", "openai":
		return NewOpenAIClient(cfg)
	case "responses":
		return NewResponsesClient(cfg), nil
	case "gemini":
		return NewGeminiClient(ctx, cfg)
	case "mock":
		return MockClient{Model: "mock-pension-guru"}, nil
	}
	return nil, apperr.New(apperr.CodeProviderConfig, "unsupported AI_PROVIDER", "provider", cfg.AIProvider)
}

// splitSystem separates the leading system directive from the conversation.
func splitSystem(messages []Message) (string, []Message) {
	system := make([]string, 0, 1)
	rest := make([]Message, 0, len(messages))
	for _, msg := range messages {
		if strings.EqualFold(strings.TrimSpace(msg.Role), RoleSystem) {
			if text := strings.TrimSpace(msg.Content); text != "" {
				system = append(system, text)
			}
			continue
		}
		rest = append(rest, msg)
	}
	return strings.Join(system, "\n\n"), rest
}

func normalizedRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
