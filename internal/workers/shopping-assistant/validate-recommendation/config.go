package validaterecommendation

import "shopgenie-workers/internal/models"

type Config struct {
	// MaxRetries is the retry count at which validation gives up and accepts.
	MaxRetries int
}

func LoadConfig() *Config {
	return &Config{
		MaxRetries: models.MaxRetries,
	}
}
