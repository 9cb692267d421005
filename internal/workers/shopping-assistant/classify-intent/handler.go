package classifyintent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"shopgenie-workers/internal/common/camunda"
	apperrors "shopgenie-workers/internal/common/errors"
	"shopgenie-workers/internal/common/genai"
	"shopgenie-workers/internal/models"
)

const (
	TaskType = "classify-intent"
)

// PromptMarker opens every classifier prompt.
const PromptMarker = "You are the intent classifier of ShopGenie"

const (
	greetingReply = "Hi! I'm ShopGenie. Tell me what you're looking for and your budget, and I'll find the best options for you."
	budgetReply   = "What's your budget for this? Share a price range and I'll find the best options in it."
)

var (
	currencyPattern = regexp.MustCompile(`[$€£¥₹]|\d`)
	budgetPattern   = regexp.MustCompile(`(?i)\b(cheap|cheaper|cheapest|under|below|budget|affordable|inexpensive|less than|spend|dollars?|bucks|rupees|euros?|pounds)\b`)
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config    *Config
	llm       genai.Client
	greetings map[string]struct{}
	errors    *apperrors.ErrorHandler
	logger    Logger
}

func NewHandler(config *Config, llm genai.Client, log Logger) *Handler {
	greetings := make(map[string]struct{}, len(config.GreetingTokens))
	for _, token := range config.GreetingTokens {
		greetings[strings.ToLower(strings.TrimSpace(token))] = struct{}{}
	}
	if config.DefaultUseCase == "" {
		config.DefaultUseCase = models.DefaultUseCase
	}

	l := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:    config,
		llm:       llm,
		greetings: greetings,
		errors:    apperrors.NewErrorHandler(l),
		logger:    l,
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

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, apperrors.NewInvalidInputError("query is required")
	}

	if h.isGreeting(query) {
		h.logger.Info("greeting detected", map[string]interface{}{"query": query})
		return &Output{
			Intent:     models.IntentCasualChat,
			Reply:      greetingReply,
			UseCase:    h.config.DefaultUseCase,
			RetryCount: input.RetryCount,
			Source:     SourceGreeting,
			Status:     models.OutcomeOK,
		}, nil
	}

	source := SourceModel
	status := models.OutcomeOK
	reason := ""

	v, err := h.classify(ctx, query, input.ChatHistory)
	if err != nil {
		h.logger.Warn("intent classification failed, treating as shopping request", map[string]interface{}{
			"error": err.Error(),
		})
		v = verdict{kind: verdictUnparsed}
		source = SourceFallback
		status = models.OutcomeFallback
		reason = fmt.Sprintf("%s: %v", apperrors.ErrCodeIntentClassificationFailed, err)
	} else if v.kind == verdictUnparsed {
		source = SourceFallback
		status = models.OutcomeFallback
		reason = "classifier reply matched no known tag"
	}

	output := &Output{
		UseCase:    h.config.DefaultUseCase,
		RetryCount: input.RetryCount,
		Source:     source,
		Status:     status,
		Reason:     reason,
	}

	switch {
	case v.kind == verdictChat:
		output.Intent = models.IntentCasualChat
		output.Reply = v.text
		if output.Reply == "" {
			output.Reply = greetingReply
		}
	case !HasBudgetSignal(query, input.ChatHistory):
		output.Intent = models.IntentAskBudget
		output.Reply = budgetReply
		if v.kind == verdictBudget && v.text != "" {
			output.Reply = v.text
		}
	default:
		output.Intent = models.IntentBuyRequest
		output.RefinedQuery = query
		if v.kind == verdictSearch {
			output.RefinedQuery = v.query
			if v.useCase != "" {
				output.UseCase = v.useCase
			}
		}
	}

	h.logger.Info("intent classified", map[string]interface{}{
		"intent":       output.Intent,
		"refinedQuery": output.RefinedQuery,
		"useCase":      output.UseCase,
		"source":       output.Source,
	})

	return output, nil
}

func (h *Handler) classify(ctx context.Context, query, history string) (verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	reply, err := h.llm.Complete(ctx, buildPrompt(query, history),
		genai.WithTemperature(h.config.Temperature),
		genai.WithMaxTokens(h.config.MaxTokens),
	)
	if err != nil {
		return verdict{}, err
	}
	return parseVerdict(reply), nil
}

func (h *Handler) isGreeting(query string) bool {
	normalized := strings.ToLower(strings.TrimRight(query, ".,!?;:~ \t"))
	_, ok := h.greetings[normalized]
	return ok
}

// HasBudgetSignal reports whether the query, or a user line of the history,
// carries a currency symbol, a digit or a budget keyword.
func HasBudgetSignal(query, history string) bool {
	if hasPriceSignal(query) {
		return true
	}
	for _, line := range strings.Split(history, "\n") {
		role, content, found := strings.Cut(line, ":")
		if found && strings.EqualFold(strings.TrimSpace(role), "assistant") {
			continue
		}
		if !found {
			content = line
		}
		if hasPriceSignal(content) {
			return true
		}
	}
	return false
}

func hasPriceSignal(text string) bool {
	return currencyPattern.MatchString(text) || budgetPattern.MatchString(text)
}

// parseVerdict maps the model reply onto exactly one verdict.
func parseVerdict(reply string) verdict {
	reply = strings.TrimSpace(strings.Trim(strings.TrimSpace(reply), "`"))
	tag, payload, found := strings.Cut(reply, ":")
	if !found {
		return verdict{kind: verdictUnparsed}
	}
	payload = strings.TrimSpace(payload)

	switch strings.ToUpper(strings.TrimSpace(tag)) {
	case "CHAT":
		return verdict{kind: verdictChat, text: payload}
	case "BUDGET":
		return verdict{kind: verdictBudget, text: payload}
	case "SEARCH":
		query, rest, hasUseCase := strings.Cut(payload, "||")
		query = strings.Trim(strings.TrimSpace(query), `"'`)
		if query == "" {
			return verdict{kind: verdictUnparsed}
		}
		v := verdict{kind: verdictSearch, query: query}
		if hasUseCase {
			if label, value, ok := strings.Cut(rest, ":"); ok && strings.EqualFold(strings.TrimSpace(label), "USE_CASE") {
				v.useCase = strings.Trim(strings.TrimSpace(value), `"'.`)
			}
		}
		return v
	default:
		return verdict{kind: verdictUnparsed}
	}
}

func buildPrompt(query, history string) string {
	if strings.TrimSpace(history) == "" {
		history = "(empty)"
	}
	return fmt.Sprintf(`%s, a shopping assistant.

CHAT HISTORY:
%s

CURRENT USER INPUT: %s

Reply with exactly one line in one of these formats:
CHAT: <short friendly reply>
  when the user is not asking to buy or compare products.
BUDGET: <one question asking for their budget>
  when the user wants a product but gives no price range, here or in the history.
SEARCH: <standalone search query> || USE_CASE: <use case>
  otherwise.

For SEARCH, rewrite the input as a standalone search query and keep any budget in it.
If the user says "the cheaper one" or "compare them", use the history to know what they mean.
USE_CASE is one or two words for the activity or persona (Gaming, Student, Travel, Office).
Use General when it is unclear.`, PromptMarker, history, query)
}
