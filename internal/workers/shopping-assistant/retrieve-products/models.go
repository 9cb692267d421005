package retrieveproducts

import "shopgenie-workers/internal/models"

type Input struct {
	RefinedQuery   string `json:"refinedQuery"`
	Critique       string `json:"critique"`
	RevisionNeeded bool   `json:"revisionNeeded"`
	UseCase        string `json:"useCase"`
}

type Output struct {
	SearchResults []models.SearchResult `json:"searchResults"`
	Query         string                `json:"query"`
	Status        models.OutcomeStatus  `json:"status"`
	Reason        string                `json:"reason,omitempty"`
}
