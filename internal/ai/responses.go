package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pensionguru/backend/internal/apperr"
	"pensionguru/backend/internal/config"
)

// ResponsesClient calls the OpenAI Responses API directly over HTTP.
type ResponsesClient struct {
	apiKey          string
	baseURL         string
	model           string
	maxOutputTokens int
	temperature     float64
	httpClient      *http.Client
}

func NewResponsesClient(cfg config.Config) *ResponsesClient {
	timeoutSeconds := cfg.AITimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = 20
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.OpenAIBaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &ResponsesClient{
		apiKey:          strings.TrimSpace(cfg.OpenAIAPIKey),
		baseURL:         baseURL,
		model:           strings.TrimSpace(cfg.OpenAIModel),
		maxOutputTokens: cfg.AIMaxOutputTokens,
		temperature:     cfg.AITemperature,
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
		},
	}
}

type responsesInputText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responsesInputBlock struct {
	Role    string               `json:"role"`
	Content []responsesInputText `json:"content"`
}

func buildResponsesInput(messages []Message) []responsesInputBlock {
	input := make([]responsesInputBlock, 0, len(messages))
	for _, msg := range messages {
		role := normalizedRole(msg.Role)
		if role != RoleSystem && role != RoleUser && role != RoleAssistant {
			continue
		}
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		contentType := "input_text"
		if role == RoleAssistant {
			contentType = "output_text"
		}
		input = append(input, responsesInputBlock{
			Role:    role,
			Content: []responsesInputText{{Type: contentType, Text: content}},
		})
	}
	return input
}

func (c *ResponsesClient) Complete(ctx context.Context, messages []Message) (Completion, error) {
	if c.apiKey == "" {
		return Completion{}, apperr.New(apperr.CodeProviderConfig, "OPENAI_API_KEY is not configured")
	}
	if c.model == "" {
		return Completion{}, apperr.New(apperr.CodeProviderConfig, "OPENAI_MODEL is not configured")
	}

	input := buildResponsesInput(messages)
	if len(input) == 0 {
		return Completion{}, apperr.New(apperr.CodeProviderConfig, "AI request input is empty")
	}

	payload := map[string]any{
		"model":             c.model,
		"input":             input,
		"max_output_tokens": c.maxOutputTokens,
		"temperature":       c.temperature,
	}
	bodyRaw, err := json.Marshal(payload)
	if err != nil {
		return Completion{}, apperr.Wrap(err, apperr.CodeProviderConfig, "encoding responses payload")
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(bodyRaw))
	if err != nil {
		return Completion{}, apperr.Wrap(err, apperr.CodeProviderConfig, "building responses request")
	}
	request.Header.Set("Authorization", "Bearer "+c.apiKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return Completion{}, classifyTransportError(ctx, err, "responses")
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return Completion{}, classifyTransportError(ctx, err, "responses")
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return Completion{}, apperr.New(
			apperr.CodeProviderUpstream,
			fmt.Sprintf("openai responses error (%d)", response.StatusCode),
			"status", response.StatusCode,
			"body", truncateForLog(string(responseBody), 600),
		)
	}

	parsed := parseJSONStringMap(responseBody)
	answer := extractResponseAnswer(parsed)
	if answer == "" {
		if isMaxOutputTokenIncomplete(parsed) {
			return Completion{}, apperr.New(apperr.CodeProviderResponse, "openai response incomplete due to max_output_tokens")
		}
		return Completion{}, apperr.New(
			apperr.CodeProviderResponse,
			"openai response answer is empty",
			"body", truncateForLog(string(responseBody), 600),
		)
	}

	usageMap, _ := parsed["usage"].(map[string]any)
	usage := Usage{
		PromptTokens:     int(extractNumberFromMap(usageMap, "input_tokens", "prompt_tokens")),
		CompletionTokens: int(extractNumberFromMap(usageMap, "output_tokens", "completion_tokens")),
		TotalTokens:      int(extractNumberFromMap(usageMap, "total_tokens")),
	}

	modelName := strings.TrimSpace(toString(parsed["model"]))
	if modelName == "" {
		modelName = c.model
	}
	return Completion{Text: answer, Model: modelName, Usage: usage}, nil
}

// classifyTransportError separates deadline expiry from other network failures.
func classifyTransportError(ctx context.Context, err error, provider string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.Wrap(err, apperr.CodeProviderTimeout, "completion timed out", "provider", provider)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperr.Wrap(err, apperr.CodeProviderTimeout, "completion timed out", "provider", provider)
	}
	return apperr.Wrap(err, apperr.CodeProviderUpstream, "completion request failed", "provider", provider)
}

func extractResponseAnswer(data map[string]any) string {
	if direct := strings.TrimSpace(toString(data["output_text"])); direct != "" {
		return direct
	}

	outputs, ok := data["output"].([]any)
	if !ok {
		return ""
	}
	parts := make([]string, 0)
	for _, item := range outputs {
		block, ok := item.(map[string]any)
		if !ok {
			continue
		}
		contentList, ok := block["content"].([]any)
		if !ok {
			continue
		}
		for _, contentItem := range contentList {
			contentMap, ok := contentItem.(map[string]any)
			if !ok {
				continue
			}
			contentType := strings.ToLower(strings.TrimSpace(toString(contentMap["type"])))
			if contentType != "output_text" && contentType != "text" {
				continue
			}
			if text := extractResponseTextValue(contentMap); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func extractResponseTextValue(content map[string]any) string {
	if text := strings.TrimSpace(toString(content["text"])); text != "" {
		return text
	}
	if textMap, ok := content["text"].(map[string]any); ok {
		if value := strings.TrimSpace(toString(textMap["value"])); value != "" {
			return value
		}
	}
	return strings.TrimSpace(toString(content["output_text"]))
}

func isMaxOutputTokenIncomplete(parsed map[string]any) bool {
	details, ok := parsed["incomplete_details"].(map[string]any)
	if !ok {
		return false
	}
	return strings.ToLower(strings.TrimSpace(toString(details["reason"]))) == "max_output_tokens"
}

func truncateForLog(value string, limit int) string {
	trimmed := strings.TrimSpace(value)
	if limit <= 0 || len(trimmed) <= limit {
		return trimmed
	}
	return trimmed[:limit] + "...(truncated)"
}

func parseJSONStringMap(input []byte) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	var result map[string]any
	if err := json.Unmarshal(input, &result); err != nil || result == nil {
		return map[string]any{}
	}
	return result
}

func extractNumberFromMap(data map[string]any, keys ...string) float64 {
	if data == nil {
		return 0
	}
	for _, key := range keys {
		switch v := data[key].(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f
			}
		}
	}
	return 0
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}
