package recommendproducts

import "shopgenie-workers/internal/models"

type Input struct {
	SearchResults []models.SearchResult `json:"searchResults"`
	RefinedQuery  string                `json:"refinedQuery"`
	UseCase       string                `json:"useCase"`
}

type Output struct {
	FinalRecommendation string               `json:"finalRecommendation"`
	Status              models.OutcomeStatus `json:"status"`
	Reason              string               `json:"reason,omitempty"`
}
