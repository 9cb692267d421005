// Package genai wraps the language-model service behind a single
// prompt-in, text-out call.
package genai

import (
	"context"
	"errors"
)

var (
	ErrLLMTimeout       = errors.New("LLM_TIMEOUT")
	ErrLLMRequestFailed = errors.New("LLM_REQUEST_FAILED")
)

// Client is the language-model service used by every stage.
type Client interface {
	Complete(ctx context.Context, prompt string, opts ...Option) (string, error)
}

type Settings struct {
	System      string
	Temperature float64
	MaxTokens   int
}

type Option func(*Settings)

func WithSystemPrompt(prompt string) Option {
	return func(s *Settings) { s.System = prompt }
}

func WithTemperature(temp float64) Option {
	return func(s *Settings) { s.Temperature = temp }
}

func WithMaxTokens(tokens int) Option {
	return func(s *Settings) { s.MaxTokens = tokens }
}

func applyOptions(base Settings, opts []Option) Settings {
	for _, opt := range opts {
		opt(&base)
	}
	return base
}

// classify maps a raw provider error to the package sentinels.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrLLMTimeout
	}
	return errors.Join(ErrLLMRequestFailed, err)
}
