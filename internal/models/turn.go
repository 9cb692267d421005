package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Intent is the classified purpose of a single user turn.
type Intent string

const (
	IntentUnset      Intent = ""
	IntentCasualChat Intent = "casual_chat"
	IntentAskBudget  Intent = "ask_budget"
	IntentBuyRequest Intent = "buy_request"
)

const (
	// DefaultUseCase is applied when the classifier cannot infer a persona.
	DefaultUseCase = "General"
	// CritiqueNone marks that the last validation passed (or none has run yet).
	CritiqueNone = "none"
	// MaxRetries caps the number of revision passes per turn.
	MaxRetries = 3
)

// SearchResult is one raw web search hit.
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// ConversationTurn is the state record shared by every stage of one turn.
// All fields are always present; stages never look up optional keys.
type ConversationTurn struct {
	ID                  string         `json:"turnId"`
	Query               string         `json:"query"`
	ChatHistory         string         `json:"chatHistory"`
	Intent              Intent         `json:"intent"`
	RefinedQuery        string         `json:"refinedQuery"`
	UseCase             string         `json:"useCase"`
	SearchResults       []SearchResult `json:"searchResults"`
	FinalRecommendation string         `json:"finalRecommendation"`
	Critique            string         `json:"critique"`
	RevisionNeeded      bool           `json:"revisionNeeded"`
	RetryCount          int            `json:"retryCount"`
	Passes              int            `json:"passes"`
	Outcomes            []StageOutcome `json:"outcomes"`
	StartedAt           time.Time      `json:"startedAt"`
}

// NewConversationTurn creates a fresh turn. Only the chat history is carried
// over from earlier turns.
func NewConversationTurn(query, chatHistory string) *ConversationTurn {
	return &ConversationTurn{
		ID:            uuid.NewString(),
		Query:         strings.TrimSpace(query),
		ChatHistory:   chatHistory,
		Intent:        IntentUnset,
		UseCase:       DefaultUseCase,
		SearchResults: []SearchResult{},
		Critique:      CritiqueNone,
		Outcomes:      []StageOutcome{},
		StartedAt:     time.Now().UTC(),
	}
}

// Record appends a stage outcome to the turn.
func (t *ConversationTurn) Record(outcome StageOutcome) {
	t.Outcomes = append(t.Outcomes, outcome)
}

// OutcomesFor returns the recorded outcomes of one stage in order.
func (t *ConversationTurn) OutcomesFor(stage Stage) []StageOutcome {
	var out []StageOutcome
	for _, o := range t.Outcomes {
		if o.Stage == stage {
			out = append(out, o)
		}
	}
	return out
}
