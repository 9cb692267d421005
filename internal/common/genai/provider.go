package genai

import (
	"context"
	"fmt"

	"shopgenie-workers/internal/common/config"
)

// New builds the configured language-model client.
func New(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case config.ProviderGroq:
		return NewGroqClient(cfg), nil
	case config.ProviderArk:
		return NewArkClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}
