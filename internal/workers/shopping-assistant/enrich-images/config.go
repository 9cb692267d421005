package enrichimages

import "time"

type Config struct {
	Timeout     time.Duration
	MaxOptions  int
	Concurrency int
	// QueryModifier is appended to the product name for each image search.
	QueryModifier string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       10 * time.Second,
		MaxOptions:    3,
		Concurrency:   3,
		QueryModifier: "product photo, white background",
	}
}
