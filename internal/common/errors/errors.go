// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	ErrCodeIntentClassificationFailed ErrorCode = "INTENT_CLASSIFICATION_FAILED"

	ErrCodeLLMTimeout       ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMRequestFailed ErrorCode = "LLM_REQUEST_FAILED"

	ErrCodeWebSearchTimeout    ErrorCode = "WEB_SEARCH_TIMEOUT"
	ErrCodeWebSearchFailed     ErrorCode = "WEB_SEARCH_FAILED"
	ErrCodeImageSearchFailed   ErrorCode = "IMAGE_SEARCH_FAILED"
	ErrCodeCatalogSearchFailed ErrorCode = "CATALOG_SEARCH_FAILED"

	ErrCodeMalformedRecommendation ErrorCode = "MALFORMED_RECOMMENDATION"
	ErrCodeRecommendationFailed    ErrorCode = "RECOMMENDATION_FAILED"

	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT_ERROR"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewInvalidInputError creates a non-retryable input error.
func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Invalid job input",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewIntentClassificationFailedError creates a retryable classification error.
func NewIntentClassificationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeIntentClassificationFailed,
		Message:   "Intent classification failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMTimeoutError creates a retryable LLM timeout error.
func NewLLMTimeoutError(timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMTimeout,
		Message:   "LLM call timeout",
		Details:   fmt.Sprintf("LLM call exceeded %s timeout", timeout),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMRequestFailedError creates a retryable LLM API error.
func NewLLMRequestFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMRequestFailed,
		Message:   "LLM API error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewWebSearchTimeoutError creates a non-retryable web search timeout error.
// The retriever degrades to empty results instead of retrying.
func NewWebSearchTimeoutError(timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeWebSearchTimeout,
		Message:   "Web search API timeout",
		Details:   fmt.Sprintf("Search call exceeded %s timeout", timeout),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewWebSearchFailedError creates a non-retryable web search error.
func NewWebSearchFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeWebSearchFailed,
		Message:   "Web search API error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewImageSearchFailedError creates a non-retryable per-option image error.
func NewImageSearchFailedError(product string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeImageSearchFailed,
		Message:   "Image search failed",
		Details:   fmt.Sprintf("product: %s, error: %s", product, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCatalogSearchFailedError creates a retryable Elasticsearch catalog error.
func NewCatalogSearchFailedError(index string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogSearchFailed,
		Message:   "Catalog search failed",
		Details:   fmt.Sprintf("index: %s, error: %s", index, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewMalformedRecommendationError creates a non-retryable validation error.
func NewMalformedRecommendationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMalformedRecommendation,
		Message:   "Recommendation is not a valid document",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecommendationFailedError creates a retryable recommender error.
func NewRecommendationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecommendationFailed,
		Message:   "Recommendation generation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExternalService,
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTimeout,
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidInput:               "INVALID_INPUT",
	ErrCodeIntentClassificationFailed: "INTENT_CLASSIFICATION_FAILED",
	ErrCodeLLMTimeout:                 "LLM_TIMEOUT",
	ErrCodeLLMRequestFailed:           "LLM_REQUEST_FAILED",
	ErrCodeWebSearchTimeout:           "WEB_SEARCH_TIMEOUT",
	ErrCodeWebSearchFailed:            "WEB_SEARCH_FAILED",
	ErrCodeImageSearchFailed:          "IMAGE_SEARCH_FAILED",
	ErrCodeCatalogSearchFailed:        "CATALOG_SEARCH_FAILED",
	ErrCodeMalformedRecommendation:    "MALFORMED_RECOMMENDATION",
	ErrCodeRecommendationFailed:       "RECOMMENDATION_FAILED",
}

// GetRetryCount returns the recommended job retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeIntentClassificationFailed,
		ErrCodeLLMRequestFailed,
		ErrCodeRecommendationFailed,
		ErrCodeCatalogSearchFailed,
		ErrCodeExternalService:
		return 3

	case ErrCodeTimeout:
		return 2

	case ErrCodeLLMTimeout:
		return 1

	default:
		return 0
	}
}

// GetRetryBackoff returns how long Zeebe waits before handing a failed job
// out again.
func GetRetryBackoff(code ErrorCode) time.Duration {
	switch code {
	case ErrCodeLLMTimeout, ErrCodeLLMRequestFailed, ErrCodeRecommendationFailed, ErrCodeIntentClassificationFailed:
		return 5 * time.Second
	case ErrCodeTimeout:
		return 10 * time.Second
	case ErrCodeWebSearchFailed, ErrCodeCatalogSearchFailed, ErrCodeExternalService:
		return 2 * time.Second
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "CATALOG"):
		return "CATALOG"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "INTENT") || strings.Contains(codeStr, "LLM") || strings.Contains(codeStr, "RECOMMENDATION"):
		return "AI"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "MALFORMED"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
