// Package websearchtest provides a recording web-search service for tests.
package websearchtest

import (
	"context"
	"sync"

	"shopgenie-workers/internal/common/websearch"
	"shopgenie-workers/internal/models"
)

// Searcher returns Results for text searches and Images for image searches.
// ImagesFor and ErrFor override the response per exact query.
type Searcher struct {
	mu        sync.Mutex
	Results   []models.SearchResult
	Images    []string
	ImagesFor map[string][]string
	ErrFor    map[string]error
	Err       error
	requests  []websearch.Request
}

func New() *Searcher {
	return &Searcher{ImagesFor: map[string][]string{}, ErrFor: map[string]error{}}
}

func (s *Searcher) Search(ctx context.Context, req websearch.Request) (*websearch.Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	err, hasErr := s.ErrFor[req.Query]
	images, hasImages := s.ImagesFor[req.Query]
	s.mu.Unlock()

	if ctx.Err() != nil {
		return nil, websearch.ErrWebSearchTimeout
	}
	if hasErr {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}

	if req.IncludeImages {
		if !hasImages {
			images = s.Images
		}
		return &websearch.Response{Results: []models.SearchResult{}, Images: append([]string{}, images...)}, nil
	}
	return &websearch.Response{Results: append([]models.SearchResult{}, s.Results...), Images: []string{}}, nil
}

// Requests returns every request received, in arrival order.
func (s *Searcher) Requests() []websearch.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]websearch.Request(nil), s.requests...)
}

// Count returns the number of text (includeImages=false) or image searches.
func (s *Searcher) Count(images bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.IncludeImages == images {
			n++
		}
	}
	return n
}
