package ai

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"pensionguru/backend/internal/apperr"
	"pensionguru/backend/internal/config"
)

// GeminiClient calls Google Gemini through the genai SDK.
type GeminiClient struct {
	client          *genai.Client
	model           string
	maxOutputTokens int
	temperature     float64
}

func NewGeminiClient(ctx context.Context, cfg config.Config) (*GeminiClient, error) {
	apiKey := strings.TrimSpace(cfg.GeminiAPIKey)
	if apiKey == "" {
		return nil, apperr.New(apperr.CodeProviderConfig, "GEMINI_API_KEY is not configured", "provider", "gemini")
	}
	model := strings.TrimSpace(cfg.GeminiModel)
	if model == "" {
		return nil, apperr.New(apperr.CodeProviderConfig, "GEMINI_MODEL is not configured", "provider", "gemini")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeProviderConfig, "creating gemini client", "provider", "gemini")
	}
	return &GeminiClient{
		client:          client,
		model:           model,
		maxOutputTokens: cfg.AIMaxOutputTokens,
		temperature:     cfg.AITemperature,
	}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, messages []Message) (Completion, error) {
	system, contents := buildGeminiContents(messages)
	if len(contents) == 0 {
		return Completion{}, apperr.New(apperr.CodeProviderConfig, "AI request input is empty", "provider", "gemini")
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, c.generateConfig(system))
	if err != nil {
		return Completion{}, classifyTransportError(ctx, err, "gemini")
	}
	text := geminiText(resp)
	if text == "" {
		return Completion{}, apperr.New(apperr.CodeProviderResponse, "gemini returned an empty answer", "provider", "gemini")
	}

	completion := Completion{Text: text, Model: c.model}
	if resp.ModelVersion != "" {
		completion.Model = resp.ModelVersion
	}
	if meta := resp.UsageMetadata; meta != nil {
		completion.Usage = Usage{
			PromptTokens:     int(meta.PromptTokenCount),
			CompletionTokens: int(meta.CandidatesTokenCount),
			TotalTokens:      int(meta.TotalTokenCount),
		}
	}
	return completion, nil
}

func (c *GeminiClient) generateConfig(system string) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if c.maxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(c.maxOutputTokens)
	}
	if c.temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(c.temperature))
	}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}
	return cfg
}

// buildGeminiContents maps assistant turns onto Gemini's "model" role and
// lifts system messages into the system instruction.
func buildGeminiContents(messages []Message) (string, []*genai.Content) {
	system, rest := splitSystem(messages)
	contents := make([]*genai.Content, 0, len(rest))
	for _, msg := range rest {
		text := strings.TrimSpace(msg.Content)
		if text == "" {
			continue
		}
		var role string
		switch normalizedRole(msg.Role) {
		case RoleUser:
			role = "user"
		case RoleAssistant:
			role = "model"
		default:
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: text}},
		})
	}
	return system, contents
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	parts := make([]string, 0)
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil && part.Text != "" && !part.Thought {
				parts = append(parts, part.Text)
			}
		}
		break
	}
	return strings.TrimSpace(strings.Join(parts, ""))
}
