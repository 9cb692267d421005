package retrieveproducts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopgenie-workers/internal/common/websearch"
	"shopgenie-workers/internal/common/websearch/websearchtest"
	"shopgenie-workers/internal/models"
)

// ==========================
// Test Logger Implementation
// ==========================

type TestLogger struct {
	t      *testing.T
	fields map[string]interface{}
}

func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{t: t, fields: make(map[string]interface{})}
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("WARN: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) With(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &TestLogger{t: l.t, fields: merged}
}

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	cfg := LoadConfig()
	cfg.Timeout = time.Second
	return cfg
}

func sampleResults() []models.SearchResult {
	return []models.SearchResult{
		{Title: "ASUS TUF Gaming A15", URL: "https://www.bestbuy.com/tuf-a15", Snippet: "RTX 4050, $899", Score: 0.93},
		{Title: "Acer Nitro V", URL: "https://www.amazon.com/nitro-v", Snippet: "RTX 4050, $749", Score: 0.88},
	}
}

// ==========================
// Query Construction Tests
// ==========================

func TestHandler_BuildQuery(t *testing.T) {
	handler := NewHandler(createTestConfig(), websearchtest.New(), NewTestLogger(t))

	tests := []struct {
		name  string
		input *Input
		want  string
	}{
		{
			name:  "initial search",
			input: &Input{RefinedQuery: "gaming laptop under $1000", Critique: models.CritiqueNone},
			want:  "gaming laptop under $1000 price buy online site:amazon.com OR site:bestbuy.com OR site:walmart.com",
		},
		{
			name:  "initial search with use case",
			input: &Input{RefinedQuery: "laptop under $1000", UseCase: "Gaming"},
			want:  "laptop under $1000 for Gaming price buy online site:amazon.com OR site:bestbuy.com OR site:walmart.com",
		},
		{
			name:  "default use case is not appended",
			input: &Input{RefinedQuery: "laptop under $1000", UseCase: models.DefaultUseCase},
			want:  "laptop under $1000 price buy online site:amazon.com OR site:bestbuy.com OR site:walmart.com",
		},
		{
			name:  "revision search carries critique",
			input: &Input{RefinedQuery: "gaming laptop under $1000", RevisionNeeded: true, Critique: "invalid JSON"},
			want:  "gaming laptop under $1000 buy page amazon bestbuy walmart invalid JSON",
		},
		{
			name:  "revision search without critique",
			input: &Input{RefinedQuery: "earbuds under $80", RevisionNeeded: true, Critique: models.CritiqueNone, UseCase: "Running"},
			want:  "earbuds under $80 for Running buy page amazon bestbuy walmart",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, handler.BuildQuery(tt.input))
		})
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	searcher := websearchtest.New()
	searcher.Results = sampleResults()
	handler := NewHandler(createTestConfig(), searcher, NewTestLogger(t))

	output, err := handler.execute(context.Background(), &Input{RefinedQuery: "gaming laptop under $1000"})

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeOK, output.Status)
	assert.Len(t, output.SearchResults, 2)
	assert.Equal(t, "ASUS TUF Gaming A15", output.SearchResults[0].Title)

	requests := searcher.Requests()
	require.Len(t, requests, 1, "exactly one search per invocation")
	assert.Equal(t, websearch.DepthAdvanced, requests[0].SearchDepth)
	assert.Equal(t, 7, requests[0].MaxResults)
	assert.False(t, requests[0].IncludeImages)
	assert.Equal(t, output.Query, requests[0].Query)
}

func TestHandler_Execute_EmptyRefinedQuery(t *testing.T) {
	searcher := websearchtest.New()
	handler := NewHandler(createTestConfig(), searcher, NewTestLogger(t))

	output, err := handler.execute(context.Background(), &Input{RefinedQuery: "   "})

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSkipped, output.Status)
	assert.NotNil(t, output.SearchResults)
	assert.Empty(t, output.SearchResults)
	assert.Empty(t, searcher.Requests())
}

func TestHandler_Execute_NoResults(t *testing.T) {
	searcher := websearchtest.New()
	handler := NewHandler(createTestConfig(), searcher, NewTestLogger(t))

	output, err := handler.execute(context.Background(), &Input{RefinedQuery: "obscure gadget under $5"})

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeEmpty, output.Status)
	assert.Empty(t, output.SearchResults)
}

// ==========================
// Failure Tests
// ==========================

func TestHandler_Execute_ProviderFailuresDegrade(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantReason string
	}{
		{"timeout", websearch.ErrWebSearchTimeout, "WEB_SEARCH_TIMEOUT"},
		{"provider error", errors.Join(websearch.ErrWebSearchFailed, errors.New("status 502")), "WEB_SEARCH_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := websearchtest.New()
			searcher.Err = tt.err
			handler := NewHandler(createTestConfig(), searcher, NewTestLogger(t))

			output, err := handler.execute(context.Background(), &Input{RefinedQuery: "4k monitor under $300"})

			require.NoError(t, err)
			assert.Equal(t, models.OutcomeFailed, output.Status)
			assert.NotNil(t, output.SearchResults)
			assert.Empty(t, output.SearchResults)
			assert.Contains(t, output.Reason, tt.wantReason)
			assert.Len(t, searcher.Requests(), 1)
		})
	}
}

func TestHandler_Execute_CancelledContextDegrades(t *testing.T) {
	searcher := websearchtest.New()
	searcher.Results = sampleResults()
	handler := NewHandler(createTestConfig(), searcher, NewTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	output, err := handler.execute(ctx, &Input{RefinedQuery: "laptop under $900"})

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeFailed, output.Status)
	assert.Empty(t, output.SearchResults)
}
