// cmd/worker-manager/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"

	"shopgenie-workers/internal/common/camunda"
	"shopgenie-workers/internal/common/config"
	"shopgenie-workers/internal/common/database"
	"shopgenie-workers/internal/common/genai"
	"shopgenie-workers/internal/common/logger"
	"shopgenie-workers/internal/common/observability"
	"shopgenie-workers/internal/common/websearch"
	"shopgenie-workers/internal/server"
	"shopgenie-workers/internal/workflow"
	"shopgenie-workers/pkg/registry"

	ci "shopgenie-workers/internal/workers/shopping-assistant/classify-intent"
	ei "shopgenie-workers/internal/workers/shopping-assistant/enrich-images"
	rp "shopgenie-workers/internal/workers/shopping-assistant/recommend-products"
	rt "shopgenie-workers/internal/workers/shopping-assistant/retrieve-products"
	runturn "shopgenie-workers/internal/workers/shopping-assistant/run-turn"
	vr "shopgenie-workers/internal/workers/shopping-assistant/validate-recommendation"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)
	zapLog.Info("Starting shopgenie worker manager...",
		zap.String("environment", cfg.App.Environment),
		zap.String("llmProvider", cfg.APIs.LLM.Provider),
		zap.String("searchProvider", cfg.APIs.WebSearch.Provider),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	if cfg.Tracing.Enabled {
		if err := obs.EnableTracing(cfg.Tracing.JaegerEndpoint); err != nil {
			zapLog.Warn("tracing disabled", zap.Error(err))
		} else {
			zapLog.Info("Jaeger tracing enabled", zap.String("endpoint", cfg.Tracing.JaegerEndpoint))
		}
	}

	ctx := context.Background()

	// --- Language model and web search ---
	llm, err := genai.New(ctx, cfg.APIs.LLM)
	if err != nil {
		zapLog.Fatal("llm client init failed", zap.Error(err))
	}
	searcher, err := websearch.New(cfg)
	if err != nil {
		zapLog.Fatal("web search init failed", zap.Error(err))
	}

	stages := workflow.NewStages(cfg, llm, searcher, log)
	orchestrator := workflow.New(stages, cfg.Assistant.MaxRetries, log, workflow.WithObservability(obs))

	turnCfg := runturn.LoadConfigFrom(cfg)
	zapLog.Info("Turn budget", zap.Duration("timeout", turnCfg.Timeout))
	turns := runturn.NewHandler(turnCfg, orchestrator, &runTurnLoggerAdapter{log})

	activities := registry.Default()
	serverOpts := []server.Option{server.WithRegistry(activities)}

	// --- Elasticsearch catalog with retry ---
	if cfg.APIs.WebSearch.Provider == config.ProviderCatalog {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
		index := cfg.Database.Elasticsearch.Index
		if err := esClient.CheckIndex(ctx, index); err != nil {
			zapLog.Warn("catalog index not ready", zap.Error(err))
		}
		serverOpts = append(serverOpts, server.WithCheck("elasticsearch", func(ctx context.Context) error {
			return esClient.CheckIndex(ctx, index)
		}))
	}

	// --- Zeebe client with retry ---
	var zeebe *camunda.Client
	var jobWorkers []worker.JobWorker
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClient(cfg.Camunda)
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		zapLog.Info("Zeebe client connected successfully")
		serverOpts = append(serverOpts, server.WithCheck("zeebe", zeebe.HealthCheck))

		if missing := activities.Missing(ci.TaskType, rt.TaskType, rp.TaskType, ei.TaskType, vr.TaskType, runturn.TaskType); len(missing) > 0 {
			zapLog.Warn("task types missing from activity registry", zap.Strings("taskTypes", missing))
		}

		client := zeebe.GetClient()
		handlers := []struct {
			taskType string
			handle   worker.JobHandler
		}{
			{ci.TaskType, stages.Classifier.Handle},
			{rt.TaskType, stages.Retriever.Handle},
			{rp.TaskType, stages.Recommender.Handle},
			{ei.TaskType, stages.Enricher.Handle},
			{vr.TaskType, stages.Validator.Handle},
			{runturn.TaskType, turns.Handle},
		}

		for _, h := range handlers {
			if w := camunda.StartWorker(client, h.taskType, config.GetWorkerConfig(cfg, h.taskType), h.handle, log); w != nil {
				jobWorkers = append(jobWorkers, w)
			}
		}
		zapLog.Info("Workers registered", zap.Int("started", len(jobWorkers)), zap.Int("total", len(handlers)))
	} else {
		zapLog.Info("Camunda disabled, serving turns over HTTP only")
	}

	// --- HTTP API, health and metrics ---
	srv := server.New(cfg.Server.Address, turns, log, serverOpts...)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	for _, w := range jobWorkers {
		w.Close()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	zapLog.Info("Worker manager stopped gracefully")
}

type runTurnLoggerAdapter struct {
	logger.Logger
}

func (a *runTurnLoggerAdapter) With(fields map[string]interface{}) runturn.Logger {
	return &runTurnLoggerAdapter{a.Logger.With(fields)}
}
