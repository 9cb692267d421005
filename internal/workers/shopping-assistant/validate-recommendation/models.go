package validaterecommendation

import (
	"shopgenie-workers/internal/common/validation"
	"shopgenie-workers/internal/models"
)

type Input struct {
	FinalRecommendation string `json:"finalRecommendation"`
	RetryCount          int    `json:"retryCount"`
}

type Output struct {
	RevisionNeeded bool                         `json:"revisionNeeded"`
	Critique       string                       `json:"critique"`
	RetryCount     int                          `json:"retryCount"`
	Valid          bool                         `json:"valid"`
	Errors         []validation.ValidationError `json:"errors,omitempty"`
	Status         models.OutcomeStatus         `json:"status"`
}

// CritiqueMaxRetries is the critique once the retry budget is spent.
const CritiqueMaxRetries = "Max retries reached."
