package retrieveproducts

import "time"

type Config struct {
	Timeout         time.Duration
	MaxResults      int
	SearchDepth     string
	RetailerDomains []string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:         15 * time.Second,
		MaxResults:      7,
		SearchDepth:     "advanced",
		RetailerDomains: []string{"amazon.com", "bestbuy.com", "walmart.com"},
	}
}
