package models

import "time"

// Stage names a node of the turn workflow.
type Stage string

const (
	StageClassify Stage = "classify-intent"
	StageRetrieve Stage = "retrieve-products"
	StageReason   Stage = "recommend-products"
	StageEnrich   Stage = "enrich-images"
	StageValidate Stage = "validate-recommendation"
)

// OutcomeStatus separates "nothing found" from "the provider errored" even
// though both degrade the same way.
type OutcomeStatus string

const (
	OutcomeOK       OutcomeStatus = "ok"
	OutcomeEmpty    OutcomeStatus = "empty"
	OutcomeFailed   OutcomeStatus = "failed"
	OutcomeSkipped  OutcomeStatus = "skipped"
	OutcomeFallback OutcomeStatus = "fallback"
)

// StageOutcome is the typed result of one stage execution.
type StageOutcome struct {
	Stage    Stage         `json:"stage"`
	Status   OutcomeStatus `json:"status"`
	Reason   string        `json:"reason,omitempty"`
	Pass     int           `json:"pass"`
	Duration time.Duration `json:"durationNs"`
}

// Failed reports whether the stage degraded because of an error.
func (o StageOutcome) Failed() bool {
	return o.Status == OutcomeFailed
}

// StatusUpdate is a coarse, per-stage progress notification for the
// presentation layer.
type StatusUpdate struct {
	TurnID    string    `json:"turnId"`
	Stage     Stage     `json:"stage"`
	Message   string    `json:"message"`
	Pass      int       `json:"pass"`
	Timestamp time.Time `json:"timestamp"`
}
