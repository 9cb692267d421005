package retrieveproducts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"shopgenie-workers/internal/common/camunda"
	apperrors "shopgenie-workers/internal/common/errors"
	"shopgenie-workers/internal/common/websearch"
	"shopgenie-workers/internal/models"
)

const (
	TaskType = "retrieve-products"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config   *Config
	searcher websearch.Searcher
	errors   *apperrors.ErrorHandler
	logger   Logger
}

func NewHandler(config *Config, searcher websearch.Searcher, log Logger) *Handler {
	l := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:   config,
		searcher: searcher,
		errors:   apperrors.NewErrorHandler(l),
		logger:   l,
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

// execute issues exactly one search for a non-empty refined query. Provider
// failures degrade to an empty result list.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	refined := strings.TrimSpace(input.RefinedQuery)
	if refined == "" {
		return &Output{
			SearchResults: []models.SearchResult{},
			Status:        models.OutcomeSkipped,
			Reason:        "refined query is empty",
		}, nil
	}

	query := h.BuildQuery(input)

	searchCtx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	resp, err := h.searcher.Search(searchCtx, websearch.Request{
		Query:       query,
		SearchDepth: h.config.SearchDepth,
		MaxResults:  h.config.MaxResults,
	})
	if err != nil {
		stdErr := h.describe(err)
		h.logger.Warn("product search failed, continuing without results", map[string]interface{}{
			"query":     query,
			"errorCode": stdErr.Code,
			"error":     err.Error(),
		})
		return &Output{
			SearchResults: []models.SearchResult{},
			Query:         query,
			Status:        models.OutcomeFailed,
			Reason:        fmt.Sprintf("%s: %s", stdErr.Code, stdErr.Details),
		}, nil
	}

	results := resp.Results
	if results == nil {
		results = []models.SearchResult{}
	}

	status := models.OutcomeOK
	if len(results) == 0 {
		status = models.OutcomeEmpty
	}

	h.logger.Info("products retrieved", map[string]interface{}{
		"query":       query,
		"resultCount": len(results),
		"revision":    input.RevisionNeeded,
	})

	return &Output{
		SearchResults: results,
		Query:         query,
		Status:        status,
	}, nil
}

// BuildQuery scopes the refined query to the configured retailers. A revision
// search swaps the site filters for retailer names and appends the critique.
func (h *Handler) BuildQuery(input *Input) string {
	parts := []string{strings.TrimSpace(input.RefinedQuery)}
	if useCase := strings.TrimSpace(input.UseCase); useCase != "" && !strings.EqualFold(useCase, models.DefaultUseCase) {
		parts = append(parts, "for "+useCase)
	}

	if input.RevisionNeeded {
		parts = append(parts, "buy page")
		for _, domain := range h.config.RetailerDomains {
			parts = append(parts, retailerName(domain))
		}
		if critique := strings.TrimSpace(input.Critique); critique != "" && !strings.EqualFold(critique, models.CritiqueNone) {
			parts = append(parts, critique)
		}
		return strings.Join(parts, " ")
	}

	parts = append(parts, "price buy online")
	sites := make([]string, 0, len(h.config.RetailerDomains))
	for _, domain := range h.config.RetailerDomains {
		sites = append(sites, "site:"+domain)
	}
	if len(sites) > 0 {
		parts = append(parts, strings.Join(sites, " OR "))
	}
	return strings.Join(parts, " ")
}

func (h *Handler) describe(err error) *apperrors.StandardError {
	if errors.Is(err, websearch.ErrWebSearchTimeout) {
		return apperrors.NewWebSearchTimeoutError(h.config.Timeout)
	}
	return apperrors.NewWebSearchFailedError(err)
}

func retailerName(domain string) string {
	name, _, _ := strings.Cut(strings.TrimPrefix(domain, "www."), ".")
	return name
}
