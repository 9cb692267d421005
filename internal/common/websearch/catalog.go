package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"shopgenie-workers/internal/common/metrics"
	"shopgenie-workers/internal/models"
)

// CatalogSearcher answers searches from a local Elasticsearch product index.
// Retailer site: operators in the query are plain text to it.
type CatalogSearcher struct {
	client *elasticsearch.Client
	index  string
}

func NewCatalogSearcher(client *elasticsearch.Client, index string) *CatalogSearcher {
	return &CatalogSearcher{client: client, index: index}
}

type catalogProduct struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	URL         string `json:"url"`
	ImageURL    string `json:"image_url"`
}

func (s *CatalogSearcher) Search(ctx context.Context, req Request) (*Response, error) {
	size := req.MaxResults
	if size <= 0 {
		size = 10
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  req.Query,
				"fields": []string{"name^3", "description^2", "category", "brand"},
				"type":   "best_fields",
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWebSearchFailed, err)
	}

	searchReq := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}

	res, err := searchReq.Do(ctx, s.client)
	metrics.RecordExternalCall(serviceLabel(req), err)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: catalog search error: %s", ErrWebSearchFailed, res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Score  float64        `json:"_score"`
				Source catalogProduct `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode catalog response: %v", ErrWebSearchFailed, err)
	}

	resp := &Response{
		Results: make([]models.SearchResult, 0, len(parsed.Hits.Hits)),
		Images:  []string{},
	}
	for _, hit := range parsed.Hits.Hits {
		p := hit.Source
		snippet := p.Description
		if p.Price != "" {
			snippet = fmt.Sprintf("%s Price: %s", snippet, p.Price)
		}
		resp.Results = append(resp.Results, models.SearchResult{
			Title:   p.Name,
			URL:     p.URL,
			Snippet: snippet,
			Score:   hit.Score,
		})
		if req.IncludeImages && p.ImageURL != "" {
			resp.Images = append(resp.Images, p.ImageURL)
		}
	}
	return resp, nil
}
