package runturn

import "shopgenie-workers/internal/models"

type Input struct {
	Query       string `json:"query"`
	ChatHistory string `json:"chatHistory"`
}

// Output is the externally visible result of one turn.
type Output struct {
	TurnID              string                         `json:"turnId"`
	Intent              models.Intent                  `json:"intent"`
	RefinedQuery        string                         `json:"refinedQuery"`
	UseCase             string                         `json:"useCase"`
	SearchResultCount   int                            `json:"searchResultCount"`
	FinalRecommendation string                         `json:"finalRecommendation"`
	Recommendation      *models.RecommendationDocument `json:"recommendation"`
	RevisionNeeded      bool                           `json:"revisionNeeded"`
	RetryCount          int                            `json:"retryCount"`
	Passes              int                            `json:"passes"`
	Statuses            []models.StatusUpdate          `json:"statuses"`
	Outcomes            []models.StageOutcome          `json:"outcomes"`
}
