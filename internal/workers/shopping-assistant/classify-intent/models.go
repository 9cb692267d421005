package classifyintent

import "shopgenie-workers/internal/models"

type Input struct {
	Query       string `json:"query"`
	ChatHistory string `json:"chatHistory"`
	RetryCount  int    `json:"retryCount"`
}

type Output struct {
	Intent       models.Intent        `json:"intent"`
	RefinedQuery string               `json:"refinedQuery"`
	UseCase      string               `json:"useCase"`
	Reply        string               `json:"reply"`
	RetryCount   int                  `json:"retryCount"`
	Source       string               `json:"source"` // "greeting", "model", "fallback"
	Status       models.OutcomeStatus `json:"status"`
	Reason       string               `json:"reason,omitempty"`
}

const (
	SourceGreeting = "greeting"
	SourceModel    = "model"
	SourceFallback = "fallback"
)

// verdictKind is the tag of a parsed classifier reply.
type verdictKind int

const (
	verdictChat verdictKind = iota
	verdictBudget
	verdictSearch
	// verdictUnparsed is the fallback for replies that match no tag; it is
	// treated as a shopping request for the raw user query.
	verdictUnparsed
)

type verdict struct {
	kind    verdictKind
	text    string
	query   string
	useCase string
}
