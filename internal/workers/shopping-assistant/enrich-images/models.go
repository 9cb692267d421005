package enrichimages

import "shopgenie-workers/internal/models"

type Input struct {
	FinalRecommendation string `json:"finalRecommendation"`
}

type Output struct {
	FinalRecommendation string               `json:"finalRecommendation"`
	ImageCalls          int                  `json:"imageCalls"`
	ImageCount          int                  `json:"imageCount"`
	Status              models.OutcomeStatus `json:"status"`
	Reason              string               `json:"reason,omitempty"`
}
