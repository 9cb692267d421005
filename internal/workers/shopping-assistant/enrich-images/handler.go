package enrichimages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"golang.org/x/sync/errgroup"

	"shopgenie-workers/internal/common/camunda"
	apperrors "shopgenie-workers/internal/common/errors"
	"shopgenie-workers/internal/common/validation"
	"shopgenie-workers/internal/common/websearch"
	"shopgenie-workers/internal/models"
)

const (
	TaskType = "enrich-images"
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
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
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

// execute attaches one image search result to every option of a parseable
// recommendation. Text that does not parse is returned unchanged.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	doc, options, ok := parseDocument(input.FinalRecommendation)
	if !ok {
		h.logger.Info("recommendation is not a product document, skipping images", nil)
		return &Output{
			FinalRecommendation: input.FinalRecommendation,
			Status:              models.OutcomeSkipped,
			Reason:              "recommendation did not parse",
		}, nil
	}

	if h.config.MaxOptions > 0 && len(options) > h.config.MaxOptions {
		options = options[:h.config.MaxOptions]
	}

	images := make([][]string, len(options))
	var calls, failures int32

	g := new(errgroup.Group)
	g.SetLimit(h.config.Concurrency)
	for i, opt := range options {
		images[i] = []string{}
		name := optionName(opt)
		if name == "" {
			continue
		}
		i := i
		g.Go(func() error {
			atomic.AddInt32(&calls, 1)
			found, err := h.searchImage(ctx, name)
			if err != nil {
				atomic.AddInt32(&failures, 1)
				stdErr := apperrors.NewImageSearchFailedError(name, err)
				h.logger.Warn("image search failed, continuing without images", map[string]interface{}{
					"product":   name,
					"errorCode": stdErr.Code,
					"error":     err.Error(),
				})
				return nil
			}
			images[i] = found
			return nil
		})
	}
	_ = g.Wait()

	imageCount := 0
	for i, opt := range options {
		encoded, err := json.Marshal(images[i])
		if err != nil {
			return nil, fmt.Errorf("encode images: %w", err)
		}
		opt["images"] = encoded
		imageCount += len(images[i])
	}

	encodedOptions, err := json.Marshal(options)
	if err != nil {
		return nil, fmt.Errorf("encode options: %w", err)
	}
	doc["options"] = encodedOptions

	text, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode recommendation: %w", err)
	}

	output := &Output{
		FinalRecommendation: string(text),
		ImageCalls:          int(calls),
		ImageCount:          imageCount,
		Status:              models.OutcomeOK,
	}
	if failures > 0 {
		output.Status = models.OutcomeFailed
		output.Reason = fmt.Sprintf("%s: %d of %d image searches failed", apperrors.ErrCodeImageSearchFailed, failures, calls)
	}

	h.logger.Info("images fetched", map[string]interface{}{
		"optionCount": len(options),
		"imageCalls":  output.ImageCalls,
		"imageCount":  imageCount,
	})

	return output, nil
}

func (h *Handler) searchImage(ctx context.Context, name string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	resp, err := h.searcher.Search(ctx, websearch.Request{
		Query:         h.ImageQuery(name),
		SearchDepth:   websearch.DepthBasic,
		MaxResults:    1,
		IncludeImages: true,
	})
	if err != nil {
		return nil, err
	}
	if resp.Images == nil {
		return []string{}, nil
	}
	return resp.Images, nil
}

// ImageQuery is the image search string for a product name.
func (h *Handler) ImageQuery(name string) string {
	return strings.TrimSpace(name + " " + h.config.QueryModifier)
}

// parseDocument decodes the fields of the document without interpreting
// them, so that re-encoding keeps everything the model produced.
func parseDocument(text string) (map[string]json.RawMessage, []map[string]json.RawMessage, bool) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(validation.CleanModelOutput(text)), &doc); err != nil || doc == nil {
		return nil, nil, false
	}
	raw, ok := doc["options"]
	if !ok {
		return nil, nil, false
	}
	var options []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &options); err != nil {
		return nil, nil, false
	}
	for i, opt := range options {
		if opt == nil {
			options[i] = map[string]json.RawMessage{}
		}
	}
	return doc, options, true
}

func optionName(opt map[string]json.RawMessage) string {
	var name string
	if err := json.Unmarshal(opt["name"], &name); err != nil {
		return ""
	}
	return strings.TrimSpace(name)
}
