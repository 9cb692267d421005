package runturn

import (
	"context"
	"errors"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"shopgenie-workers/internal/common/camunda"
	apperrors "shopgenie-workers/internal/common/errors"
	"shopgenie-workers/internal/models"
	"shopgenie-workers/internal/workflow"
)

const (
	TaskType = "run-turn"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// TurnRunner drives one conversation turn through the stage graph.
type TurnRunner interface {
	RunTurn(ctx context.Context, query, chatHistory string, reporter workflow.Reporter) (*models.ConversationTurn, error)
}

type Handler struct {
	config *Config
	runner TurnRunner
	errors *apperrors.ErrorHandler
	logger Logger
}

func NewHandler(config *Config, runner TurnRunner, log Logger) *Handler {
	l := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config: config,
		runner: runner,
		errors: apperrors.NewErrorHandler(l),
		logger: l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := camunda.DecodeVariables(job, &input); err != nil {
		camunda.FailJob(client, job, apperrors.NewInvalidInputError(err.Error()), h.errors)
		return
	}

	output, err := h.execute(context.Background(), &input, nil)
	if err != nil {
		camunda.FailJob(client, job, err, h.errors)
		return
	}

	camunda.CompleteJob(client, job, output, h.logger)
}

// Execute runs one turn. Every status update is also passed to reporter
// when it is non-nil.
func (h *Handler) Execute(ctx context.Context, input *Input, reporter workflow.Reporter) (*Output, error) {
	return h.execute(ctx, input, reporter)
}

func (h *Handler) execute(ctx context.Context, input *Input, reporter workflow.Reporter) (*Output, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, apperrors.NewInvalidInputError("query is required")
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	collected := &workflow.CollectingReporter{}
	tee := workflow.ReporterFunc(func(update models.StatusUpdate) {
		collected.Report(update)
		if reporter != nil {
			reporter.Report(update)
		}
	})

	history := TrimHistory(input.ChatHistory, h.config.HistoryWindow)
	turn, err := h.runner.RunTurn(ctx, input.Query, history, tee)
	if err != nil {
		if errors.Is(err, workflow.ErrEmptyQuery) {
			return nil, apperrors.NewInvalidInputError("query is required")
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.NewTimeoutError("turn", err)
		}
		return nil, apperrors.NewExternalServiceError("turn", err)
	}

	output := NewOutput(turn, collected.Updates)
	h.logger.Info("turn completed", map[string]interface{}{
		"turnId":  output.TurnID,
		"intent":  output.Intent,
		"passes":  output.Passes,
		"options": optionCount(output.Recommendation),
	})
	return output, nil
}

// NewOutput projects a finished turn onto the response shape.
func NewOutput(turn *models.ConversationTurn, statuses []models.StatusUpdate) *Output {
	if statuses == nil {
		statuses = []models.StatusUpdate{}
	}
	return &Output{
		TurnID:              turn.ID,
		Intent:              turn.Intent,
		RefinedQuery:        turn.RefinedQuery,
		UseCase:             turn.UseCase,
		SearchResultCount:   len(turn.SearchResults),
		FinalRecommendation: turn.FinalRecommendation,
		Recommendation:      workflow.Recommendation(turn),
		RevisionNeeded:      turn.RevisionNeeded,
		RetryCount:          turn.RetryCount,
		Passes:              turn.Passes,
		Statuses:            statuses,
		Outcomes:            turn.Outcomes,
	}
}

// TrimHistory keeps the last window non-blank lines of a transcript. A
// window of zero or less keeps everything.
func TrimHistory(history string, window int) string {
	if window <= 0 {
		return history
	}
	var lines []string
	for _, line := range strings.Split(history, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > window {
		lines = lines[len(lines)-window:]
	}
	return strings.Join(lines, "\n")
}

func optionCount(doc *models.RecommendationDocument) int {
	if doc == nil {
		return 0
	}
	return len(doc.Options)
}
