package genai

import (
	"context"
	"fmt"
	"strings"

	"shopgenie-workers/internal/common/config"
	commonhttp "shopgenie-workers/internal/common/http"
	"shopgenie-workers/internal/common/metrics"
)

// GroqClient talks to an OpenAI-compatible /chat/completions endpoint.
type GroqClient struct {
	http       *commonhttp.Client
	url        string
	apiKey     string
	model      string
	defaults   Settings
	maxRetries int
}

func NewGroqClient(cfg config.LLMConfig) *GroqClient {
	return &GroqClient{
		http:   commonhttp.NewClient(0),
		url:    strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		defaults: Settings{
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		},
		maxRetries: cfg.MaxRetries,
	}
}

func (c *GroqClient) Model() string {
	return c.model
}

func (c *GroqClient) Complete(ctx context.Context, prompt string, opts ...Option) (string, error) {
	settings := applyOptions(c.defaults, opts)

	request := groqRequest{
		Model:       c.model,
		Temperature: settings.Temperature,
		MaxTokens:   settings.MaxTokens,
	}
	if settings.System != "" {
		request.Messages = append(request.Messages, groqMessage{Role: "system", Content: settings.System})
	}
	request.Messages = append(request.Messages, groqMessage{Role: "user", Content: prompt})

	var response groqResponse
	err := c.http.PostJSON(ctx, c.url, map[string]string{"Authorization": "Bearer " + c.apiKey}, request, &response, c.maxRetries)
	metrics.RecordExternalCall(metrics.ServiceLLM, err)
	if err != nil {
		return "", classify(ctx, err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrLLMRequestFailed)
	}

	return response.Choices[0].Message.Content, nil
}

type groqRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_completion_tokens,omitempty"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []groqChoice `json:"choices"`
}

type groqChoice struct {
	Index        int         `json:"index"`
	Message      groqMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}
