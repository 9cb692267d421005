package validaterecommendation

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"shopgenie-workers/internal/common/camunda"
	apperrors "shopgenie-workers/internal/common/errors"
	"shopgenie-workers/internal/common/metrics"
	"shopgenie-workers/internal/common/validation"
	"shopgenie-workers/internal/models"
)

const (
	TaskType = "validate-recommendation"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config *Config
	errors *apperrors.ErrorHandler
	logger Logger
}

func NewHandler(config *Config, log Logger) *Handler {
	l := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config: config,
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

	output, err := h.execute(context.Background(), &input)
	if err != nil {
		camunda.FailJob(client, job, err, h.errors)
		return
	}

	camunda.CompleteJob(client, job, output, h.logger)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// execute is deterministic in its input and makes no external calls.
func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	_, result := validation.ValidateRecommendation(input.FinalRecommendation)

	if input.RetryCount >= h.config.MaxRetries {
		h.logger.Warn("retry budget spent, accepting recommendation as is", map[string]interface{}{
			"retryCount": input.RetryCount,
		})
		return &Output{
			RevisionNeeded: false,
			Critique:       CritiqueMaxRetries,
			RetryCount:     input.RetryCount,
			Valid:          result.Valid,
			Status:         models.OutcomeSkipped,
		}, nil
	}

	if result.Valid {
		h.logger.Info("recommendation is valid", map[string]interface{}{
			"retryCount": input.RetryCount,
		})
		return &Output{
			RevisionNeeded: false,
			Critique:       models.CritiqueNone,
			RetryCount:     input.RetryCount,
			Valid:          true,
			Status:         models.OutcomeOK,
		}, nil
	}

	metrics.ValidationFailures.Inc()
	critique := apperrors.NewMalformedRecommendationError(result.Summary()).Details

	h.logger.Warn("recommendation failed validation", map[string]interface{}{
		"retryCount": input.RetryCount + 1,
		"errorCode":  apperrors.ErrCodeMalformedRecommendation,
		"critique":   critique,
	})

	return &Output{
		RevisionNeeded: true,
		Critique:       critique,
		RetryCount:     input.RetryCount + 1,
		Errors:         result.Errors,
		Status:         models.OutcomeFailed,
	}, nil
}
