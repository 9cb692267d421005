package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"shopgenie-workers/internal/models"
)

// RecommendationSchema is the JSON schema a recommendation document must
// satisfy. Optional fields are type-checked only when present.
const RecommendationSchema = `{
  "type": "object",
  "required": ["options"],
  "properties": {
    "options": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "category":    {"type": "string"},
          "name":        {"type": "string", "minLength": 1},
          "price":       {"type": "string"},
          "summary":     {"type": "string"},
          "link":        {"type": "string"},
          "fit_summary": {"type": "string"},
          "full_details": {"type": "array", "items": {"type": "string"}},
          "tech_specs":  {"type": "object"},
          "specs": {
            "type": "object",
            "properties": {
              "Performance":   {"type": "string"},
              "Build_Quality": {"type": "string"},
              "Key_Feature":   {"type": "string"}
            }
          },
          "ai_insights": {
            "type": "object",
            "properties": {
              "score":       {"type": "integer", "minimum": 1, "maximum": 10},
              "best_for":    {"type": "string"},
              "dealbreaker": {"type": "string"}
            }
          },
          "images": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(RecommendationSchema)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Summary renders the errors as one diagnostic line.
func (r *ValidationResult) Summary() string {
	if r == nil || len(r.Errors) == 0 {
		return ""
	}
	parts := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		if e.Field == "" {
			parts[i] = e.Message
			continue
		}
		parts[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return strings.Join(parts, "; ")
}

// CleanModelOutput strips the markdown code fences models wrap JSON in.
func CleanModelOutput(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```JSON", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}

// ValidateRecommendation checks raw model text against the recommendation
// schema and decodes it. The document is nil whenever the result is invalid.
func ValidateRecommendation(raw string) (*models.RecommendationDocument, *ValidationResult) {
	cleaned := CleanModelOutput(raw)
	if cleaned == "" {
		return nil, invalid("", "recommendation is empty", "EMPTY_DOCUMENT")
	}

	var generic interface{}
	if err := json.Unmarshal([]byte(cleaned), &generic); err != nil {
		return nil, invalid("", fmt.Sprintf("invalid JSON: %v", err), "INVALID_JSON")
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(generic))
	if err != nil {
		return nil, invalid("", fmt.Sprintf("schema validation error: %v", err), "SCHEMA_ERROR")
	}

	if !result.Valid() {
		out := &ValidationResult{Valid: false}
		for _, desc := range result.Errors() {
			out.Errors = append(out.Errors, ValidationError{
				Field:   desc.Field(),
				Message: desc.Description(),
				Code:    strings.ToUpper(desc.Type()),
			})
		}
		return nil, out
	}

	var doc models.RecommendationDocument
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, invalid("", fmt.Sprintf("document does not match recommendation fields: %v", err), "TYPE_MISMATCH")
	}

	return &doc, &ValidationResult{Valid: true}
}

func invalid(field, message, code string) *ValidationResult {
	return &ValidationResult{
		Valid:  false,
		Errors: []ValidationError{{Field: field, Message: message, Code: code}},
	}
}
