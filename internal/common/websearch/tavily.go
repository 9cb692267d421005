package websearch

import (
	"context"
	"strings"

	"shopgenie-workers/internal/common/config"
	commonhttp "shopgenie-workers/internal/common/http"
	"shopgenie-workers/internal/common/metrics"
	"shopgenie-workers/internal/models"
)

// TavilyClient calls the Tavily /search endpoint.
type TavilyClient struct {
	http   *commonhttp.Client
	url    string
	apiKey string
}

func NewTavilyClient(cfg config.WebSearchConfig) *TavilyClient {
	return &TavilyClient{
		http:   commonhttp.NewClient(0),
		url:    strings.TrimRight(cfg.BaseURL, "/") + "/search",
		apiKey: cfg.APIKey,
	}
}

func (c *TavilyClient) Search(ctx context.Context, req Request) (*Response, error) {
	body := tavilyRequest{
		APIKey:        c.apiKey,
		Query:         req.Query,
		SearchDepth:   req.SearchDepth,
		MaxResults:    req.MaxResults,
		IncludeImages: req.IncludeImages,
	}
	if body.SearchDepth == "" {
		body.SearchDepth = DepthBasic
	}

	var out tavilyResponse
	err := c.http.PostJSON(ctx, c.url, nil, body, &out, 0)
	metrics.RecordExternalCall(serviceLabel(req), err)
	if err != nil {
		return nil, classify(ctx, err)
	}

	resp := &Response{
		Results: make([]models.SearchResult, 0, len(out.Results)),
		Images:  make([]string, 0, len(out.Images)),
	}
	for _, r := range out.Results {
		resp.Results = append(resp.Results, models.SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
			Score:   r.Score,
		})
	}
	for _, img := range out.Images {
		if img != "" {
			resp.Images = append(resp.Images, img)
		}
	}
	return resp, nil
}

func serviceLabel(req Request) string {
	if req.IncludeImages {
		return metrics.ServiceImageSearch
	}
	return metrics.ServiceWebSearch
}

type tavilyRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth"`
	MaxResults    int    `json:"max_results,omitempty"`
	IncludeImages bool   `json:"include_images"`
}

type tavilyResponse struct {
	Query   string         `json:"query"`
	Results []tavilyResult `json:"results"`
	Images  []string       `json:"images"`
}

type tavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}
