package ai

import (
	"context"
	"strings"
)

// MockClient answers locally without network access.
type MockClient struct {
	Model string
}

func (m MockClient) Complete(_ context.Context, messages []Message) (Completion, error) {
	question := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if normalizedRole(messages[i].Role) == RoleUser {
			question = strings.TrimSpace(messages[i].Content)
			break
		}
	}
	if question == "" {
		question = "No question provided."
	}

	answer := "Mock response: " + question
	if strings.Contains(strings.ToLower(question), "pension") {
		answer = "Mock response: a steady contribution habit is the simplest lever. Would you like tips to boost your pension?"
	}

	model := strings.TrimSpace(m.Model)
	if model == "" {
		model = "mock"
	}
	return Completion{
		Text:  answer,
		Model: model,
		Usage: Usage{PromptTokens: 120, CompletionTokens: 80, TotalTokens: 200},
	}, nil
}
