package recommendproducts

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"shopgenie-workers/internal/common/camunda"
	apperrors "shopgenie-workers/internal/common/errors"
	"shopgenie-workers/internal/common/genai"
	"shopgenie-workers/internal/models"
)

const (
	TaskType = "recommend-products"
)

// PromptMarker opens every recommender prompt.
const PromptMarker = "You are ShopGenie-E"

//go:embed prompt.tmpl
var promptTemplate string

var prompt = template.Must(template.New("recommend").Parse(promptTemplate))

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config *Config
	llm    genai.Client
	errors *apperrors.ErrorHandler
	logger Logger
}

func NewHandler(config *Config, llm genai.Client, log Logger) *Handler {
	if config.MaxOptions <= 0 {
		config.MaxOptions = 3
	}
	l := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config: config,
		llm:    llm,
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

// execute makes exactly one model call and returns its text verbatim.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	rendered, err := h.BuildPrompt(input)
	if err != nil {
		return nil, apperrors.NewRecommendationFailedError(err)
	}

	callCtx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	text, err := h.llm.Complete(callCtx, rendered,
		genai.WithTemperature(h.config.Temperature),
		genai.WithMaxTokens(h.config.MaxTokens),
	)
	if err != nil {
		stdErr := h.describe(err)
		h.logger.Warn("recommendation call failed", map[string]interface{}{
			"errorCode": stdErr.Code,
			"error":     err.Error(),
		})
		return &Output{
			Status: models.OutcomeFailed,
			Reason: fmt.Sprintf("%s: %s", stdErr.Code, stdErr.Details),
		}, nil
	}

	status := models.OutcomeOK
	if strings.TrimSpace(text) == "" {
		status = models.OutcomeEmpty
	}

	h.logger.Info("recommendation generated", map[string]interface{}{
		"resultCount": len(input.SearchResults),
		"length":      len(text),
	})

	return &Output{FinalRecommendation: text, Status: status}, nil
}

// BuildPrompt renders the recommendation prompt for the search results.
func (h *Handler) BuildPrompt(input *Input) (string, error) {
	results := input.SearchResults
	if results == nil {
		results = []models.SearchResult{}
	}
	data, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("encode search data: %w", err)
	}

	useCase := strings.TrimSpace(input.UseCase)
	if strings.EqualFold(useCase, models.DefaultUseCase) {
		useCase = ""
	}

	var buf bytes.Buffer
	err = prompt.Execute(&buf, struct {
		Query      string
		UseCase    string
		Gaming     bool
		MaxOptions int
		Data       string
	}{
		Query:      input.RefinedQuery,
		UseCase:    useCase,
		Gaming:     strings.Contains(strings.ToLower(useCase), "gaming"),
		MaxOptions: h.config.MaxOptions,
		Data:       string(data),
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

func (h *Handler) describe(err error) *apperrors.StandardError {
	if errors.Is(err, genai.ErrLLMTimeout) {
		return apperrors.NewLLMTimeoutError(h.config.Timeout)
	}
	return apperrors.NewLLMRequestFailedError(err)
}
