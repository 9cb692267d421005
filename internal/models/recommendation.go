package models

import (
	"encoding/json"
	"math"
)

// Product categories the recommender assigns.
const (
	CategoryPowerhouse = "Powerhouse"
	CategoryBalanced   = "Balanced"
	CategoryBudget     = "Budget"
)

// RecommendationDocument is the structured payload final_recommendation is
// expected to deserialize into for buy requests.
type RecommendationDocument struct {
	Options []ProductOption `json:"options"`
}

// ProductOption is one recommended product.
type ProductOption struct {
	Category    string                 `json:"category"`
	Name        string                 `json:"name"`
	Price       string                 `json:"price"`
	Summary     string                 `json:"summary"`
	Link        string                 `json:"link"`
	FitSummary  string                 `json:"fit_summary"`
	FullDetails []string               `json:"full_details"`
	TechSpecs   map[string]interface{} `json:"tech_specs"`
	Specs       OptionSpecs            `json:"specs"`
	AIInsights  AIInsights             `json:"ai_insights"`
	// Images is filled by the image enricher; it is never nil after enrichment.
	Images []string `json:"images"`
}

// OptionSpecs holds the fixed-key spec summary.
type OptionSpecs struct {
	Performance  string `json:"Performance"`
	BuildQuality string `json:"Build_Quality"`
	KeyFeature   string `json:"Key_Feature"`
}

// AIInsights is the model's verdict on an option.
type AIInsights struct {
	Score       int    `json:"score"`
	BestFor     string `json:"best_for"`
	Dealbreaker string `json:"dealbreaker"`
}

// UnmarshalJSON accepts any integral JSON number for score, so 8.0 decodes
// as 8.
func (a *AIInsights) UnmarshalJSON(data []byte) error {
	type plain AIInsights
	aux := struct {
		*plain
		Score json.Number `json:"score"`
	}{plain: (*plain)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Score == "" {
		return nil
	}
	f, err := aux.Score.Float64()
	if err != nil {
		return err
	}
	a.Score = int(math.Round(f))
	return nil
}

// PrimaryImage returns the first image URL, or "" when none was found.
func (p ProductOption) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
