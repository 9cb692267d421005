// Package websearch wraps the product search providers the retriever and the
// image enricher query.
package websearch

import (
	"context"
	"errors"

	"shopgenie-workers/internal/models"
)

var (
	ErrWebSearchTimeout = errors.New("WEB_SEARCH_TIMEOUT")
	ErrWebSearchFailed  = errors.New("WEB_SEARCH_FAILED")
)

// Search depths understood by the providers.
const (
	DepthBasic    = "basic"
	DepthAdvanced = "advanced"
)

type Request struct {
	Query         string
	SearchDepth   string
	MaxResults    int
	IncludeImages bool
}

type Response struct {
	Results []models.SearchResult
	Images  []string
}

// Searcher is the web-search service.
type Searcher interface {
	Search(ctx context.Context, req Request) (*Response, error)
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrWebSearchTimeout
	}
	return errors.Join(ErrWebSearchFailed, err)
}
