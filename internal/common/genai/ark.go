package genai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	mdl "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"shopgenie-workers/internal/common/config"
	"shopgenie-workers/internal/common/metrics"
)

// generator is the slice of the eino chat model the client needs.
type generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...mdl.Option) (*schema.Message, error)
}

// ArkClient drives a Volcengine Ark model through eino.
type ArkClient struct {
	model    generator
	defaults Settings
}

func NewArkClient(ctx context.Context, cfg config.LLMConfig) (*ArkClient, error) {
	cm, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("init ark chat model: %w", err)
	}
	return newArkClient(cm, cfg), nil
}

func newArkClient(model generator, cfg config.LLMConfig) *ArkClient {
	return &ArkClient{
		model: model,
		defaults: Settings{
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		},
	}
}

func (c *ArkClient) Complete(ctx context.Context, prompt string, opts ...Option) (string, error) {
	settings := applyOptions(c.defaults, opts)

	var messages []*schema.Message
	if settings.System != "" {
		messages = append(messages, schema.SystemMessage(settings.System))
	}
	messages = append(messages, schema.UserMessage(prompt))

	callOpts := []mdl.Option{mdl.WithTemperature(float32(settings.Temperature))}
	if settings.MaxTokens > 0 {
		callOpts = append(callOpts, mdl.WithMaxTokens(settings.MaxTokens))
	}

	out, err := c.model.Generate(ctx, messages, callOpts...)
	metrics.RecordExternalCall(metrics.ServiceLLM, err)
	if err != nil {
		return "", classify(ctx, err)
	}
	if out == nil {
		return "", fmt.Errorf("%w: empty message", ErrLLMRequestFailed)
	}
	return out.Content, nil
}
