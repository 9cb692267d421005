// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LLM and web-search provider names.
const (
	ProviderGroq    = "groq"
	ProviderArk     = "ark"
	ProviderTavily  = "tavily"
	ProviderCatalog = "catalog"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	// ENV override like APIS_LLM_MODEL
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	// 1️⃣ base config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// 2️⃣ environment overlay
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // ignore error if not found

	// 3️⃣ expand ${VAR} placeholders
	expandEnvVars(v)

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(v)

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// Direct override if credentials are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	if cfg.APIs.LLM.APIKey == "" {
		switch cfg.APIs.LLM.Provider {
		case ProviderArk:
			cfg.APIs.LLM.APIKey = os.Getenv("ARK_API_KEY")
		default:
			cfg.APIs.LLM.APIKey = os.Getenv("GROQ_API_KEY")
		}
	}

	if cfg.APIs.WebSearch.APIKey == "" {
		cfg.APIs.WebSearch.APIKey = os.Getenv("TAVILY_API_KEY")
	}

	if cfg.Database.Elasticsearch.Password == "" {
		if val := os.Getenv("ELASTICSEARCH_PASSWORD"); val != "" {
			cfg.Database.Elasticsearch.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "shopgenie-workers"
	}

	// Camunda defaults
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	// Elasticsearch URL fallback
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "products"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}

	// LLM defaults
	llm := &cfg.APIs.LLM
	if llm.Provider == "" {
		llm.Provider = ProviderGroq
	}
	if llm.BaseURL == "" && llm.Provider == ProviderGroq {
		llm.BaseURL = "https://api.groq.com/openai/v1"
	}
	if llm.Model == "" && llm.Provider == ProviderGroq {
		llm.Model = "llama-3.3-70b-versatile"
	}
	if llm.MaxTokens == 0 {
		llm.MaxTokens = 4096
	}
	if llm.Timeout == 0 {
		llm.Timeout = 60000
	}
	if llm.MaxRetries == 0 {
		llm.MaxRetries = 2
	}

	// Web search defaults
	ws := &cfg.APIs.WebSearch
	if ws.Provider == "" {
		ws.Provider = ProviderTavily
	}
	if ws.BaseURL == "" && ws.Provider == ProviderTavily {
		ws.BaseURL = "https://api.tavily.com"
	}
	if ws.Timeout == 0 {
		ws.Timeout = 15000
	}
	if ws.MaxResults == 0 {
		ws.MaxResults = 7
	}
	if ws.SearchDepth == "" {
		ws.SearchDepth = "advanced"
	}

	// Assistant defaults
	a := &cfg.Assistant
	if a.MaxRetries == 0 {
		a.MaxRetries = 3
	}
	if a.MaxOptions == 0 {
		a.MaxOptions = 3
	}
	if a.HistoryWindow == 0 {
		a.HistoryWindow = 4
	}
	if a.ImageConcurrency == 0 {
		a.ImageConcurrency = 3
	}
	if a.DefaultUseCase == "" {
		a.DefaultUseCase = "General"
	}
	if len(a.RetailerDomains) == 0 {
		a.RetailerDomains = []string{"amazon.com", "bestbuy.com", "walmart.com"}
	}
	if len(a.GreetingTokens) == 0 {
		a.GreetingTokens = []string{
			"hi", "hello", "hey", "hiya", "howdy", "yo", "sup", "hola",
			"good morning", "good afternoon", "good evening", "thanks", "thank you",
		}
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when camunda is enabled")
	}

	switch cfg.APIs.LLM.Provider {
	case ProviderGroq:
		if cfg.APIs.LLM.BaseURL == "" {
			return fmt.Errorf("apis.llm.base_url is required")
		}
	case ProviderArk:
		if cfg.APIs.LLM.Model == "" {
			return fmt.Errorf("apis.llm.model is required for the ark provider")
		}
	default:
		return fmt.Errorf("unsupported apis.llm.provider %q", cfg.APIs.LLM.Provider)
	}

	switch cfg.APIs.WebSearch.Provider {
	case ProviderTavily:
	case ProviderCatalog:
		if cfg.Database.Elasticsearch.GetURL() == "" {
			return fmt.Errorf("database.elasticsearch.addresses or url is required for the catalog provider")
		}
	default:
		return fmt.Errorf("unsupported apis.web_search.provider %q", cfg.APIs.WebSearch.Provider)
	}

	if cfg.Assistant.MaxRetries < 0 {
		return fmt.Errorf("assistant.max_retries must not be negative")
	}

	if cfg.Tracing.Enabled && cfg.Tracing.JaegerEndpoint == "" {
		return fmt.Errorf("tracing.jaeger_endpoint is required when tracing is enabled")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
