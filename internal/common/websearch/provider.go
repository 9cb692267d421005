package websearch

import (
	"fmt"

	"shopgenie-workers/internal/common/config"
	"shopgenie-workers/internal/common/database"
)

// New builds the configured search provider.
func New(cfg *config.Config) (Searcher, error) {
	switch cfg.APIs.WebSearch.Provider {
	case config.ProviderTavily:
		return NewTavilyClient(cfg.APIs.WebSearch), nil
	case config.ProviderCatalog:
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return nil, err
		}
		return NewCatalogSearcher(es.Client, cfg.Database.Elasticsearch.Index), nil
	default:
		return nil, fmt.Errorf("unsupported web search provider %q", cfg.APIs.WebSearch.Provider)
	}
}
