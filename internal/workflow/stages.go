package workflow

import (
	"time"

	"shopgenie-workers/internal/common/config"
	"shopgenie-workers/internal/common/genai"
	"shopgenie-workers/internal/common/logger"
	"shopgenie-workers/internal/common/websearch"
	ci "shopgenie-workers/internal/workers/shopping-assistant/classify-intent"
	ei "shopgenie-workers/internal/workers/shopping-assistant/enrich-images"
	rp "shopgenie-workers/internal/workers/shopping-assistant/recommend-products"
	rt "shopgenie-workers/internal/workers/shopping-assistant/retrieve-products"
	vr "shopgenie-workers/internal/workers/shopping-assistant/validate-recommendation"
)

// Stages holds one handler per pipeline stage.
type Stages struct {
	Classifier  *ci.Handler
	Retriever   *rt.Handler
	Recommender *rp.Handler
	Enricher    *ei.Handler
	Validator   *vr.Handler
}

// NewStages builds every stage handler from the service configuration and
// the injected language-model and web-search services.
func NewStages(cfg *config.Config, llm genai.Client, searcher websearch.Searcher, log logger.Logger) Stages {
	llmTimeout := config.GetDuration(cfg.APIs.LLM.Timeout)
	searchTimeout := config.GetDuration(cfg.APIs.WebSearch.Timeout)

	classifyCfg := ci.LoadConfig()
	if llmTimeout > 0 {
		classifyCfg.Timeout = llmTimeout
	}
	classifyCfg.Temperature = cfg.APIs.LLM.Temperature
	if len(cfg.Assistant.GreetingTokens) > 0 {
		classifyCfg.GreetingTokens = cfg.Assistant.GreetingTokens
	}
	if cfg.Assistant.DefaultUseCase != "" {
		classifyCfg.DefaultUseCase = cfg.Assistant.DefaultUseCase
	}

	retrieveCfg := rt.LoadConfig()
	if searchTimeout > 0 {
		retrieveCfg.Timeout = searchTimeout
	}
	if cfg.APIs.WebSearch.MaxResults > 0 {
		retrieveCfg.MaxResults = cfg.APIs.WebSearch.MaxResults
	}
	if cfg.APIs.WebSearch.SearchDepth != "" {
		retrieveCfg.SearchDepth = cfg.APIs.WebSearch.SearchDepth
	}
	if len(cfg.Assistant.RetailerDomains) > 0 {
		retrieveCfg.RetailerDomains = cfg.Assistant.RetailerDomains
	}

	recommendCfg := rp.LoadConfig()
	if llmTimeout > 0 {
		recommendCfg.Timeout = llmTimeout
	}
	recommendCfg.Temperature = cfg.APIs.LLM.Temperature
	if cfg.APIs.LLM.MaxTokens > 0 {
		recommendCfg.MaxTokens = cfg.APIs.LLM.MaxTokens
	}
	if cfg.Assistant.MaxOptions > 0 {
		recommendCfg.MaxOptions = cfg.Assistant.MaxOptions
	}

	enrichCfg := ei.LoadConfig()
	if searchTimeout > 0 {
		enrichCfg.Timeout = searchTimeout
	}
	if cfg.Assistant.MaxOptions > 0 {
		enrichCfg.MaxOptions = cfg.Assistant.MaxOptions
	}
	if cfg.Assistant.ImageConcurrency > 0 {
		enrichCfg.Concurrency = cfg.Assistant.ImageConcurrency
	}

	validateCfg := vr.LoadConfig()
	validateCfg.MaxRetries = cfg.Assistant.MaxRetries

	return Stages{
		Classifier:  ci.NewHandler(classifyCfg, llm, &classifyLogger{log}),
		Retriever:   rt.NewHandler(retrieveCfg, searcher, &retrieveLogger{log}),
		Recommender: rp.NewHandler(recommendCfg, llm, &recommendLogger{log}),
		Enricher:    ei.NewHandler(enrichCfg, searcher, &enrichLogger{log}),
		Validator:   vr.NewHandler(validateCfg, &validateLogger{log}),
	}
}

// TurnBudget is how long a turn can take when every external call runs to
// its timeout: one classifier call plus MaxPasses passes of search,
// recommendation and image search.
func TurnBudget(cfg *config.Config) time.Duration {
	classify := ci.LoadConfig().Timeout
	recommend := rp.LoadConfig().Timeout
	if llm := config.GetDuration(cfg.APIs.LLM.Timeout); llm > 0 {
		classify, recommend = llm, llm
	}
	retrieve := rt.LoadConfig().Timeout
	enrich := ei.LoadConfig().Timeout
	if search := config.GetDuration(cfg.APIs.WebSearch.Timeout); search > 0 {
		retrieve, enrich = search, search
	}

	passes := cfg.Assistant.MaxRetries + 1
	if passes < 1 {
		passes = 1
	}
	return classify + time.Duration(passes)*(retrieve+recommend+enrich)
}

// Logger adapters: each stage package declares its own Logger whose With
// returns that package's type.

type classifyLogger struct {
	logger.Logger
}

func (a *classifyLogger) With(fields map[string]interface{}) ci.Logger {
	return &classifyLogger{a.Logger.With(fields)}
}

type retrieveLogger struct {
	logger.Logger
}

func (a *retrieveLogger) With(fields map[string]interface{}) rt.Logger {
	return &retrieveLogger{a.Logger.With(fields)}
}

type recommendLogger struct {
	logger.Logger
}

func (a *recommendLogger) With(fields map[string]interface{}) rp.Logger {
	return &recommendLogger{a.Logger.With(fields)}
}

type enrichLogger struct {
	logger.Logger
}

func (a *enrichLogger) With(fields map[string]interface{}) ei.Logger {
	return &enrichLogger{a.Logger.With(fields)}
}

type validateLogger struct {
	logger.Logger
}

func (a *validateLogger) With(fields map[string]interface{}) vr.Logger {
	return &validateLogger{a.Logger.With(fields)}
}
