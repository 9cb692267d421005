package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"shopgenie-workers/internal/common/logger"
	"shopgenie-workers/internal/common/metrics"
	"shopgenie-workers/internal/common/observability"
	"shopgenie-workers/internal/common/validation"
	"shopgenie-workers/internal/models"
	ci "shopgenie-workers/internal/workers/shopping-assistant/classify-intent"
	ei "shopgenie-workers/internal/workers/shopping-assistant/enrich-images"
	rp "shopgenie-workers/internal/workers/shopping-assistant/recommend-products"
	rt "shopgenie-workers/internal/workers/shopping-assistant/retrieve-products"
	vr "shopgenie-workers/internal/workers/shopping-assistant/validate-recommendation"
)

// ErrEmptyQuery is returned before the graph is entered when the query is
// blank.
var ErrEmptyQuery = errors.New("EMPTY_QUERY")

// ApologyText is returned when a turn produced no text at all.
const ApologyText = "Sorry, I couldn't put together recommendations right now. Please try again in a moment."

type Orchestrator struct {
	stages     Stages
	maxRetries int
	tracer     trace.Tracer
	obs        *observability.Observability
	logger     logger.Logger
}

type Option func(*Orchestrator)

// WithObservability records turn metrics and spans through obs.
func WithObservability(obs *observability.Observability) Option {
	return func(o *Orchestrator) {
		o.obs = obs
		o.tracer = obs.Tracer()
	}
}

func New(stages Stages, maxRetries int, log logger.Logger, opts ...Option) *Orchestrator {
	if maxRetries < 0 {
		maxRetries = 0
	}
	o := &Orchestrator{
		stages:     stages,
		maxRetries: maxRetries,
		tracer:     otel.Tracer("shopgenie-workers/workflow"),
		logger:     log,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// MaxPasses is the hard bound on retrieve-to-validate passes per turn.
func (o *Orchestrator) MaxPasses() int {
	return o.maxRetries + 1
}

// RunTurn drives one fresh turn from start to done and returns its final
// state. Only a blank query or a cancelled context produce an error. A
// deadline that passes after classification ends the turn early with the
// last recommendation text produced.
func (o *Orchestrator) RunTurn(ctx context.Context, query, chatHistory string, reporter Reporter) (*models.ConversationTurn, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if reporter == nil {
		reporter = NoOpReporter{}
	}

	turn := models.NewConversationTurn(query, chatHistory)
	log := logger.ForTurn(o.logger, turn.ID)

	ctx, span := o.tracer.Start(ctx, "turn", trace.WithAttributes(attribute.String("turn.id", turn.ID)))
	defer span.End()

	log.Info("turn started", map[string]interface{}{"query": turn.Query})

	state := StateStart
	lastText := ""
	for state != StateDone {
		if err := ctx.Err(); err != nil {
			if !errors.Is(err, context.DeadlineExceeded) || !classified(state) {
				span.SetStatus(codes.Error, err.Error())
				return nil, fmt.Errorf("turn %s cancelled in %s: %w", turn.ID, state, err)
			}
			log.Warn("turn deadline reached, returning last recommendation", map[string]interface{}{
				"state":      state,
				"passes":     turn.Passes,
				"retryCount": turn.RetryCount,
			})
			span.AddEvent("deadline", trace.WithAttributes(attribute.String("turn.state", string(state))))
			turn.FinalRecommendation = lastText
			turn.RevisionNeeded = false
			break
		}

		cond, err := o.step(ctx, state, turn, reporter, log)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		if strings.TrimSpace(turn.FinalRecommendation) != "" {
			lastText = turn.FinalRecommendation
		}

		next, err := Next(state, cond)
		if err != nil {
			return nil, err
		}
		state = next
	}

	if strings.TrimSpace(turn.FinalRecommendation) == "" {
		turn.FinalRecommendation = ApologyText
	}

	o.finish(ctx, turn, span, log)
	return turn, nil
}

// classified reports whether the turn has left classification, after which
// its intent is settled and a deadline no longer fails the turn.
func classified(state State) bool {
	return state != StateStart && state != StateClassifying
}

// step runs the work of one state and returns the condition selecting the
// outgoing edge.
func (o *Orchestrator) step(ctx context.Context, state State, turn *models.ConversationTurn, reporter Reporter, log logger.Logger) (Condition, error) {
	switch state {
	case StateStart:
		return CondAlways, nil
	case StateClassifying:
		return o.classify(ctx, turn, reporter, log)
	case StateRetrieving:
		turn.Passes++
		o.retrieve(ctx, turn, reporter)
		return CondAlways, nil
	case StateReasoning:
		o.reason(ctx, turn, reporter)
		return CondAlways, nil
	case StateEnriching:
		o.enrich(ctx, turn, reporter)
		return CondAlways, nil
	case StateValidating:
		o.validate(ctx, turn, reporter)
		if !turn.RevisionNeeded {
			return CondAccepted, nil
		}
		if turn.Passes >= o.MaxPasses() {
			log.Warn("pass bound reached, accepting last recommendation", map[string]interface{}{
				"passes":     turn.Passes,
				"retryCount": turn.RetryCount,
			})
			turn.RevisionNeeded = false
			return CondAccepted, nil
		}
		return CondRevisionNeeded, nil
	default:
		return "", fmt.Errorf("unknown state %q", state)
	}
}

func (o *Orchestrator) classify(ctx context.Context, turn *models.ConversationTurn, reporter Reporter, log logger.Logger) (Condition, error) {
	var out *ci.Output
	err := o.runStage(ctx, turn, models.StageClassify, func(ctx context.Context) (models.OutcomeStatus, string, error) {
		var err error
		out, err = o.stages.Classifier.Execute(ctx, &ci.Input{
			Query:       turn.Query,
			ChatHistory: turn.ChatHistory,
			RetryCount:  turn.RetryCount,
		})
		if err != nil {
			return models.OutcomeFailed, err.Error(), err
		}
		return out.Status, out.Reason, nil
	})
	if err != nil {
		return "", fmt.Errorf("classify turn %s: %w", turn.ID, err)
	}

	turn.Intent = out.Intent
	turn.UseCase = out.UseCase
	turn.RetryCount = out.RetryCount
	turn.RefinedQuery = ""
	if out.Intent == models.IntentBuyRequest {
		turn.RefinedQuery = out.RefinedQuery
	} else {
		turn.FinalRecommendation = out.Reply
	}

	o.report(reporter, turn, models.StageClassify, fmt.Sprintf("Intent: %s", out.Intent))

	switch out.Intent {
	case models.IntentCasualChat:
		return CondCasualChat, nil
	case models.IntentAskBudget:
		return CondAskBudget, nil
	case models.IntentBuyRequest:
		return CondBuyRequest, nil
	default:
		log.Warn("classifier returned unknown intent, treating as chat", map[string]interface{}{"intent": out.Intent})
		turn.Intent = models.IntentCasualChat
		return CondCasualChat, nil
	}
}

func (o *Orchestrator) retrieve(ctx context.Context, turn *models.ConversationTurn, reporter Reporter) {
	_ = o.runStage(ctx, turn, models.StageRetrieve, func(ctx context.Context) (models.OutcomeStatus, string, error) {
		out, err := o.stages.Retriever.Execute(ctx, &rt.Input{
			RefinedQuery:   turn.RefinedQuery,
			Critique:       turn.Critique,
			RevisionNeeded: turn.RevisionNeeded,
			UseCase:        turn.UseCase,
		})
		if err != nil {
			turn.SearchResults = []models.SearchResult{}
			return models.OutcomeFailed, err.Error(), nil
		}
		turn.SearchResults = out.SearchResults
		return out.Status, out.Reason, nil
	})
	o.report(reporter, turn, models.StageRetrieve, fmt.Sprintf("Found %d results", len(turn.SearchResults)))
}

func (o *Orchestrator) reason(ctx context.Context, turn *models.ConversationTurn, reporter Reporter) {
	_ = o.runStage(ctx, turn, models.StageReason, func(ctx context.Context) (models.OutcomeStatus, string, error) {
		out, err := o.stages.Recommender.Execute(ctx, &rp.Input{
			SearchResults: turn.SearchResults,
			RefinedQuery:  turn.RefinedQuery,
			UseCase:       turn.UseCase,
		})
		if err != nil {
			turn.FinalRecommendation = ""
			return models.OutcomeFailed, err.Error(), nil
		}
		turn.FinalRecommendation = out.FinalRecommendation
		return out.Status, out.Reason, nil
	})
	o.report(reporter, turn, models.StageReason, "Reasoning complete")
}

func (o *Orchestrator) enrich(ctx context.Context, turn *models.ConversationTurn, reporter Reporter) {
	images := 0
	_ = o.runStage(ctx, turn, models.StageEnrich, func(ctx context.Context) (models.OutcomeStatus, string, error) {
		out, err := o.stages.Enricher.Execute(ctx, &ei.Input{FinalRecommendation: turn.FinalRecommendation})
		if err != nil {
			return models.OutcomeFailed, err.Error(), nil
		}
		turn.FinalRecommendation = out.FinalRecommendation
		images = out.ImageCount
		return out.Status, out.Reason, nil
	})
	o.report(reporter, turn, models.StageEnrich, fmt.Sprintf("Fetched %d images", images))
}

func (o *Orchestrator) validate(ctx context.Context, turn *models.ConversationTurn, reporter Reporter) {
	_ = o.runStage(ctx, turn, models.StageValidate, func(ctx context.Context) (models.OutcomeStatus, string, error) {
		out, err := o.stages.Validator.Execute(ctx, &vr.Input{
			FinalRecommendation: turn.FinalRecommendation,
			RetryCount:          turn.RetryCount,
		})
		if err != nil {
			turn.RevisionNeeded = false
			return models.OutcomeFailed, err.Error(), nil
		}
		turn.RevisionNeeded = out.RevisionNeeded
		turn.Critique = out.Critique
		if out.RetryCount > turn.RetryCount {
			turn.RetryCount = out.RetryCount
		}
		if out.Status == models.OutcomeOK {
			return out.Status, "", nil
		}
		return out.Status, out.Critique, nil
	})

	message := "Validation passed"
	if turn.RevisionNeeded {
		message = fmt.Sprintf("Validation failed, retrying (%d/%d)", turn.RetryCount, o.maxRetries)
	} else if turn.Critique == vr.CritiqueMaxRetries {
		message = "Max retries reached"
	}
	o.report(reporter, turn, models.StageValidate, message)
}

// runStage times one stage, wraps it in a span and records its outcome.
func (o *Orchestrator) runStage(ctx context.Context, turn *models.ConversationTurn, stage models.Stage, fn func(context.Context) (models.OutcomeStatus, string, error)) error {
	ctx, span := o.tracer.Start(ctx, string(stage), trace.WithAttributes(
		attribute.String("turn.id", turn.ID),
		attribute.Int("turn.pass", turn.Passes),
	))
	defer span.End()

	start := time.Now()
	status, reason, err := fn(ctx)
	elapsed := time.Since(start)

	metrics.StageDuration.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
	span.SetAttributes(attribute.String("stage.status", string(status)))
	if status == models.OutcomeFailed {
		span.SetStatus(codes.Error, reason)
	}

	turn.Record(models.StageOutcome{
		Stage:    stage,
		Status:   status,
		Reason:   reason,
		Pass:     turn.Passes,
		Duration: elapsed,
	})

	log := logger.ForStage(logger.ForTurn(o.logger, turn.ID), string(stage), turn.Passes)
	fields := map[string]interface{}{"status": status, "duration_ms": elapsed.Milliseconds()}
	if status == models.OutcomeFailed || status == models.OutcomeFallback {
		fields["reason"] = reason
		log.Warn("stage degraded", fields)
	} else {
		log.Debug("stage finished", fields)
	}
	return err
}

func (o *Orchestrator) report(reporter Reporter, turn *models.ConversationTurn, stage models.Stage, message string) {
	reporter.Report(models.StatusUpdate{
		TurnID:    turn.ID,
		Stage:     stage,
		Message:   message,
		Pass:      turn.Passes,
		Timestamp: time.Now().UTC(),
	})
}

func (o *Orchestrator) finish(ctx context.Context, turn *models.ConversationTurn, span trace.Span, log logger.Logger) {
	duration := time.Since(turn.StartedAt)

	metrics.TurnsTotal.WithLabelValues(string(turn.Intent)).Inc()
	if turn.Intent == models.IntentBuyRequest {
		metrics.TurnPasses.Observe(float64(turn.Passes))
	}
	if o.obs != nil {
		o.obs.RecordTurn(ctx, duration, string(turn.Intent))
	}

	span.SetAttributes(
		attribute.String("turn.intent", string(turn.Intent)),
		attribute.Int("turn.passes", turn.Passes),
		attribute.Int("turn.retry_count", turn.RetryCount),
	)

	log.Info("turn finished", map[string]interface{}{
		"intent":      turn.Intent,
		"passes":      turn.Passes,
		"retryCount":  turn.RetryCount,
		"resultCount": len(turn.SearchResults),
		"duration_ms": duration.Milliseconds(),
	})
}

// Recommendation returns the parsed document of a buy request whose final
// text is a valid recommendation, or nil.
func Recommendation(turn *models.ConversationTurn) *models.RecommendationDocument {
	if turn == nil || turn.Intent != models.IntentBuyRequest {
		return nil
	}
	doc, result := validation.ValidateRecommendation(turn.FinalRecommendation)
	if !result.Valid {
		return nil
	}
	return doc
}
