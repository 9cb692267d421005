package classifyintent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "shopgenie-workers/internal/common/errors"
	"shopgenie-workers/internal/common/genai"
	"shopgenie-workers/internal/common/genai/genaitest"
	"shopgenie-workers/internal/models"
)

// ==========================
// Test Logger Implementation
// ==========================

// TestLogger implements the Logger interface for testing
type TestLogger struct {
	t      *testing.T
	fields map[string]interface{}
}

func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{
		t:      t,
		fields: make(map[string]interface{}),
	}
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v", msg, l.mergeFields(fields))
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("WARN: %s %v", msg, l.mergeFields(fields))
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v", msg, l.mergeFields(fields))
}

func (l *TestLogger) With(fields map[string]interface{}) Logger {
	return &TestLogger{t: l.t, fields: l.mergeFields(fields)}
}

func (l *TestLogger) mergeFields(fields map[string]interface{}) map[string]interface{} {
	allFields := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		allFields[k] = v
	}
	for k, v := range fields {
		allFields[k] = v
	}
	return allFields
}

// BenchmarkLogger is a minimal logger for benchmarks
type BenchmarkLogger struct{}

func (b *BenchmarkLogger) Info(msg string, fields map[string]interface{})  {}
func (b *BenchmarkLogger) Warn(msg string, fields map[string]interface{})  {}
func (b *BenchmarkLogger) Error(msg string, fields map[string]interface{}) {}
func (b *BenchmarkLogger) With(fields map[string]interface{}) Logger       { return b }

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	cfg := LoadConfig()
	cfg.Timeout = time.Second
	return cfg
}

func newTestHandler(t *testing.T, llm genai.Client) *Handler {
	return NewHandler(createTestConfig(), llm, NewTestLogger(t))
}

// ==========================
// Greeting Tests
// ==========================

func TestHandler_Execute_Greetings(t *testing.T) {
	queries := []string{"hello", "Hello!", "HEY", "hi.", "Good Morning!!", "thanks", "Thank you?", "  yo  "}

	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			llm := genaitest.New()
			handler := newTestHandler(t, llm)

			output, err := handler.execute(context.Background(), &Input{Query: q})

			require.NoError(t, err)
			assert.Equal(t, models.IntentCasualChat, output.Intent)
			assert.Empty(t, output.RefinedQuery)
			assert.Equal(t, SourceGreeting, output.Source)
			assert.NotEmpty(t, output.Reply)
			assert.Equal(t, 0, llm.Calls(""), "greetings must not call the model")
		})
	}
}

func TestHandler_Execute_GreetingNeedsExactMatch(t *testing.T) {
	llm := genaitest.New().On(PromptMarker, genaitest.Reply{Text: "CHAT: Hello there! What are you shopping for?"})
	handler := newTestHandler(t, llm)

	output, err := handler.execute(context.Background(), &Input{Query: "hello, how are you doing today"})

	require.NoError(t, err)
	assert.Equal(t, models.IntentCasualChat, output.Intent)
	assert.Equal(t, "Hello there! What are you shopping for?", output.Reply)
	assert.Equal(t, SourceModel, output.Source)
	assert.Equal(t, 1, llm.Calls(PromptMarker))
}

// ==========================
// Routing Tests
// ==========================

func TestHandler_Execute_Routing(t *testing.T) {
	tests := []struct {
		name        string
		input       *Input
		reply       string
		wantIntent  models.Intent
		wantRefined string
		wantUseCase string
		wantReply   string
		wantSource  string
	}{
		{
			name:        "buy request with budget",
			input:       &Input{Query: "gaming laptop under $1000"},
			reply:       "SEARCH: gaming laptop under $1000 || USE_CASE: Gaming",
			wantIntent:  models.IntentBuyRequest,
			wantRefined: "gaming laptop under $1000",
			wantUseCase: "Gaming",
			wantSource:  SourceModel,
		},
		{
			name:        "shopping without budget asks for one",
			input:       &Input{Query: "I want a laptop"},
			reply:       "SEARCH: laptop || USE_CASE: General",
			wantIntent:  models.IntentAskBudget,
			wantUseCase: models.DefaultUseCase,
			wantReply:   budgetReply,
			wantSource:  SourceModel,
		},
		{
			name:        "budget question from model",
			input:       &Input{Query: "I need headphones"},
			reply:       "BUDGET: What's the most you'd like to spend on headphones?",
			wantIntent:  models.IntentAskBudget,
			wantUseCase: models.DefaultUseCase,
			wantReply:   "What's the most you'd like to spend on headphones?",
			wantSource:  SourceModel,
		},
		{
			name: "budget found in history",
			input: &Input{
				Query:       "the cheaper one",
				ChatHistory: "USER: noise cancelling headphones around 300 dollars\nASSISTANT: Here are my picks.",
			},
			reply:       "SEARCH: Sony WH-CH720N noise cancelling headphones || USE_CASE: Travel",
			wantIntent:  models.IntentBuyRequest,
			wantRefined: "Sony WH-CH720N noise cancelling headphones",
			wantUseCase: "Travel",
			wantSource:  SourceModel,
		},
		{
			name: "assistant lines do not count as budget",
			input: &Input{
				Query:       "a tablet please",
				ChatHistory: "USER: hi\nASSISTANT: What's your budget? Tell me a price range.",
			},
			reply:       "SEARCH: tablet || USE_CASE: General",
			wantIntent:  models.IntentAskBudget,
			wantUseCase: models.DefaultUseCase,
			wantReply:   budgetReply,
			wantSource:  SourceModel,
		},
		{
			name:        "missing use case delimiter keeps search query",
			input:       &Input{Query: "cheap wireless mouse"},
			reply:       "SEARCH: cheap wireless mouse for office",
			wantIntent:  models.IntentBuyRequest,
			wantRefined: "cheap wireless mouse for office",
			wantUseCase: models.DefaultUseCase,
			wantSource:  SourceModel,
		},
		{
			name:        "unparseable reply falls back to raw query",
			input:       &Input{Query: "budget 4k monitor"},
			reply:       "Sure! Here is what I think the user wants.",
			wantIntent:  models.IntentBuyRequest,
			wantRefined: "budget 4k monitor",
			wantUseCase: models.DefaultUseCase,
			wantSource:  SourceFallback,
		},
		{
			name:        "lowercase tag",
			input:       &Input{Query: "phone under 500"},
			reply:       "search: smartphone under $500 || use_case: Photography",
			wantIntent:  models.IntentBuyRequest,
			wantRefined: "smartphone under $500",
			wantUseCase: "Photography",
			wantSource:  SourceModel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := genaitest.New().On(PromptMarker, genaitest.Reply{Text: tt.reply})
			handler := newTestHandler(t, llm)

			output, err := handler.execute(context.Background(), tt.input)

			require.NoError(t, err)
			assert.Equal(t, tt.wantIntent, output.Intent)
			assert.Equal(t, tt.wantRefined, output.RefinedQuery)
			assert.Equal(t, tt.wantUseCase, output.UseCase)
			assert.Equal(t, tt.wantSource, output.Source)
			if tt.wantReply != "" {
				assert.Equal(t, tt.wantReply, output.Reply)
			}
			if output.Intent != models.IntentBuyRequest {
				assert.Empty(t, output.RefinedQuery)
			}
			assert.Equal(t, 1, llm.Calls(PromptMarker))
		})
	}
}

func TestHandler_Execute_PromptCarriesHistory(t *testing.T) {
	llm := genaitest.New().On(PromptMarker, genaitest.Reply{Text: "SEARCH: x || USE_CASE: General"})
	handler := newTestHandler(t, llm)

	_, err := handler.execute(context.Background(), &Input{Query: "compare them under $200", ChatHistory: "USER: earbuds"})
	require.NoError(t, err)

	prompts := llm.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "USER: earbuds")
	assert.Contains(t, prompts[0], "CURRENT USER INPUT: compare them under $200")
}

// ==========================
// Failure Tests
// ==========================

func TestHandler_Execute_ModelFailureFallsBack(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		err        error
		wantIntent models.Intent
	}{
		{"timeout with budget", "laptop under $900", genai.ErrLLMTimeout, models.IntentBuyRequest},
		{"request failure with budget", "cheap keyboard", errors.Join(genai.ErrLLMRequestFailed, errors.New("status 500")), models.IntentBuyRequest},
		{"failure without budget", "a new keyboard", genai.ErrLLMRequestFailed, models.IntentAskBudget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := genaitest.New().On(PromptMarker, genaitest.Reply{Err: tt.err})
			handler := newTestHandler(t, llm)

			output, err := handler.execute(context.Background(), &Input{Query: tt.query, RetryCount: 2})

			require.NoError(t, err)
			assert.Equal(t, tt.wantIntent, output.Intent)
			assert.Equal(t, SourceFallback, output.Source)
			assert.Equal(t, models.OutcomeFallback, output.Status)
			assert.Contains(t, output.Reason, string(apperrors.ErrCodeIntentClassificationFailed))
			assert.Equal(t, 2, output.RetryCount)
			if tt.wantIntent == models.IntentBuyRequest {
				assert.Equal(t, tt.query, output.RefinedQuery)
			}
		})
	}
}

func TestHandler_Execute_EmptyQuery(t *testing.T) {
	handler := newTestHandler(t, genaitest.New())

	for _, q := range []string{"", "   ", "\n\t"} {
		output, err := handler.execute(context.Background(), &Input{Query: q})
		assert.Nil(t, output)
		var stdErr *apperrors.StandardError
		require.ErrorAs(t, err, &stdErr)
		assert.Equal(t, apperrors.ErrCodeInvalidInput, stdErr.Code)
	}
}

// ==========================
// Heuristic Tests
// ==========================

func TestHasBudgetSignal(t *testing.T) {
	tests := []struct {
		query   string
		history string
		want    bool
	}{
		{"gaming laptop under $1000", "", true},
		{"phone for 400", "", true},
		{"affordable headphones", "", true},
		{"€300 camera", "", true},
		{"I want a laptop", "", false},
		{"best mechanical keyboard", "", false},
		{"I want AirPods Max", "", false},
		{"what's the price of the Kindle Paperwhite?", "", false},
		{"how much does a robot vacuum cost", "", false},
		{"AirPods Max under $450", "", true},
		{"show me more", "USER: budget is 50 bucks", true},
		{"show me more", "ASSISTANT: what is your budget?", false},
		{"show me more", "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HasBudgetSignal(tt.query, tt.history), tt.query+" | "+tt.history)
	}
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		reply   string
		kind    verdictKind
		query   string
		useCase string
	}{
		{"CHAT: hi!", verdictChat, "", ""},
		{"BUDGET: how much?", verdictBudget, "", ""},
		{"SEARCH: oled tv || USE_CASE: Movies", verdictSearch, "oled tv", "Movies"},
		{"`SEARCH: \"oled tv\" || USE_CASE: Movies.`", verdictSearch, "oled tv", "Movies"},
		{"SEARCH: oled tv || something else", verdictSearch, "oled tv", ""},
		{"SEARCH:   || USE_CASE: Movies", verdictUnparsed, "", ""},
		{"RECOMMEND: oled tv", verdictUnparsed, "", ""},
		{"no tag at all", verdictUnparsed, "", ""},
	}
	for _, tt := range tests {
		v := parseVerdict(tt.reply)
		assert.Equal(t, tt.kind, v.kind, tt.reply)
		assert.Equal(t, tt.query, v.query, tt.reply)
		assert.Equal(t, tt.useCase, v.useCase, tt.reply)
	}
}

func BenchmarkHandler_Greeting(b *testing.B) {
	handler := NewHandler(LoadConfig(), genaitest.New(), &BenchmarkLogger{})
	input := &Input{Query: "Hello!"}
	for i := 0; i < b.N; i++ {
		_, _ = handler.execute(context.Background(), input)
	}
}
