package classifyintent

import (
	"time"

	"shopgenie-workers/internal/models"
)

type Config struct {
	Timeout        time.Duration
	GreetingTokens []string
	DefaultUseCase string
	Temperature    float64
	MaxTokens      int
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 20 * time.Second,
		GreetingTokens: []string{
			"hi", "hello", "hey", "hiya", "howdy", "yo", "sup", "hola",
			"good morning", "good afternoon", "good evening", "thanks", "thank you",
		},
		DefaultUseCase: models.DefaultUseCase,
		MaxTokens:      256,
	}
}
