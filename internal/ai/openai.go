package ai

import (
	"context"
	"errors"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"pensionguru/backend/internal/apperr"
	"pensionguru/backend/internal/config"
)

// OpenAIClient uses the Chat Completions API through the official SDK.
type OpenAIClient struct {
	client          openaisdk.Client
	model           string
	maxOutputTokens int
	temperature     float64
}

func NewOpenAIClient(cfg config.Config) (*OpenAIClient, error) {
	apiKey := strings.TrimSpace(cfg.OpenAIAPIKey)
	if apiKey == "" {
		return nil, apperr.New(apperr.CodeProviderConfig, "OPENAI_API_KEY is not configured", "provider", "openai")
	}
	model := strings.TrimSpace(cfg.OpenAIModel)
	if model == "" {
		return nil, apperr.New(apperr.CodeProviderConfig, "OPENAI_MODEL is not configured", "provider", "openai")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL := strings.TrimSpace(cfg.OpenAIBaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}

	return &OpenAIClient{
		client:          openaisdk.NewClient(opts...),
		model:           model,
		maxOutputTokens: cfg.AIMaxOutputTokens,
		temperature:     cfg.AITemperature,
	}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, messages []Message) (Completion, error) {
	converted := convertOpenAIMessages(messages)
	if len(converted) == 0 {
		return Completion{}, apperr.New(apperr.CodeProviderConfig, "AI request input is empty", "provider", "openai")
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: converted,
	}
	if c.maxOutputTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(c.maxOutputTokens))
	}
	if c.temperature > 0 {
		params.Temperature = param.NewOpt(c.temperature)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openaisdk.Error
		if errors.As(err, &apiErr) {
			return Completion{}, apperr.Wrap(err, apperr.CodeProviderUpstream, "openai chat completion failed",
				"provider", "openai",
				"status", apiErr.StatusCode,
			)
		}
		return Completion{}, classifyTransportError(ctx, err, "openai")
	}
	if len(resp.Choices) == 0 {
		return Completion{}, apperr.New(apperr.CodeProviderResponse, "openai returned no choices", "provider", "openai")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return Completion{}, apperr.New(apperr.CodeProviderResponse, "openai returned an empty answer", "provider", "openai")
	}

	model := strings.TrimSpace(resp.Model)
	if model == "" {
		model = c.model
	}
	return Completion{
		Text:  text,
		Model: model,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

func convertOpenAIMessages(messages []Message) []openaisdk.ChatCompletionMessageParamUnion {
	result := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		switch normalizedRole(msg.Role) {
		case RoleSystem:
			result = append(result, openaisdk.SystemMessage(content))
		case RoleUser:
			result = append(result, openaisdk.UserMessage(content))
		case RoleAssistant:
			result = append(result, openaisdk.AssistantMessage(content))
		}
	}
	return result
}
