package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopgenie-workers/internal/common/config"
)

// ==========================
// Tavily
// ==========================

func TestTavilyClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)

		var req tavilyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tvly-key", req.APIKey)
		assert.Equal(t, "gaming laptop", req.Query)
		assert.Equal(t, DepthAdvanced, req.SearchDepth)
		assert.Equal(t, 7, req.MaxResults)
		assert.False(t, req.IncludeImages)

		_, _ = w.Write([]byte(`{
			"query": "gaming laptop",
			"results": [
				{"title": "ASUS TUF A15", "url": "https://www.bestbuy.com/tuf", "content": "RTX 4060, $999", "score": 0.91},
				{"title": "Acer Nitro 5", "url": "https://www.amazon.com/nitro", "content": "RTX 4050", "score": 0.82}
			],
			"images": []
		}`))
	}))
	defer server.Close()

	client := NewTavilyClient(config.WebSearchConfig{BaseURL: server.URL, APIKey: "tvly-key"})
	resp, err := client.Search(context.Background(), Request{Query: "gaming laptop", SearchDepth: DepthAdvanced, MaxResults: 7})

	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "ASUS TUF A15", resp.Results[0].Title)
	assert.Equal(t, "https://www.bestbuy.com/tuf", resp.Results[0].URL)
	assert.Equal(t, "RTX 4060, $999", resp.Results[0].Snippet)
	assert.InDelta(t, 0.91, resp.Results[0].Score, 0.001)
	assert.Empty(t, resp.Images)
}

func TestTavilyClient_Images(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req tavilyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.IncludeImages)
		assert.Equal(t, DepthBasic, req.SearchDepth)
		_, _ = w.Write([]byte(`{"results": [], "images": ["https://img.example/tuf.jpg", ""]}`))
	}))
	defer server.Close()

	client := NewTavilyClient(config.WebSearchConfig{BaseURL: server.URL})
	resp, err := client.Search(context.Background(), Request{Query: "ASUS TUF A15 product photo", MaxResults: 1, IncludeImages: true})

	require.NoError(t, err)
	assert.Equal(t, []string{"https://img.example/tuf.jpg"}, resp.Images)
}

func TestTavilyClient_Errors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := NewTavilyClient(config.WebSearchConfig{BaseURL: server.URL}).Search(context.Background(), Request{Query: "x"})
		assert.ErrorIs(t, err, ErrWebSearchFailed)
	})

	t.Run("timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := NewTavilyClient(config.WebSearchConfig{BaseURL: server.URL}).Search(ctx, Request{Query: "x"})
		assert.ErrorIs(t, err, ErrWebSearchTimeout)
	})
}

// ==========================
// Elasticsearch catalog
// ==========================

func newCatalogServer(t *testing.T, status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/_search") {
			assert.Equal(t, "/products/_search", r.URL.Path)
			var q map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&q))
			assert.Contains(t, q, "query")
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func newESClient(t *testing.T, url string) *elasticsearch.Client {
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{url}})
	require.NoError(t, err)
	return es
}

func TestCatalogSearcher_Search(t *testing.T) {
	server := newCatalogServer(t, http.StatusOK, `{
		"hits": {"hits": [
			{"_score": 4.2, "_source": {"name": "Sony WH-1000XM5", "description": "Noise cancelling headphones", "price": "$348", "url": "https://www.bestbuy.com/xm5", "image_url": "https://img.example/xm5.jpg"}}
		]}
	}`)
	defer server.Close()

	searcher := NewCatalogSearcher(newESClient(t, server.URL), "products")
	resp, err := searcher.Search(context.Background(), Request{Query: "headphones", MaxResults: 7, IncludeImages: true})

	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Sony WH-1000XM5", resp.Results[0].Title)
	assert.Equal(t, "Noise cancelling headphones Price: $348", resp.Results[0].Snippet)
	assert.Equal(t, []string{"https://img.example/xm5.jpg"}, resp.Images)
}

func TestCatalogSearcher_IndexError(t *testing.T) {
	server := newCatalogServer(t, http.StatusNotFound, `{"error": {"type": "index_not_found_exception"}}`)
	defer server.Close()

	searcher := NewCatalogSearcher(newESClient(t, server.URL), "products")
	_, err := searcher.Search(context.Background(), Request{Query: "headphones"})
	assert.ErrorIs(t, err, ErrWebSearchFailed)
}

func TestNew(t *testing.T) {
	cfg := &config.Config{}
	cfg.APIs.WebSearch.Provider = config.ProviderTavily
	s, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &TavilyClient{}, s)

	cfg.APIs.WebSearch.Provider = config.ProviderCatalog
	cfg.Database.Elasticsearch.Addresses = []string{"http://localhost:9200"}
	cfg.Database.Elasticsearch.Index = "products"
	s, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &CatalogSearcher{}, s)

	cfg.APIs.WebSearch.Provider = "bing"
	_, err = New(cfg)
	assert.Error(t, err)
}
