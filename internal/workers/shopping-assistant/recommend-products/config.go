package recommendproducts

import "time"

type Config struct {
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
	MaxOptions  int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    60 * time.Second,
		MaxTokens:  4096,
		MaxOptions: 3,
	}
}
