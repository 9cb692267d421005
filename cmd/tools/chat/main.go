// cmd/tools/chat/main.go
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"shopgenie-workers/internal/common/config"
	"shopgenie-workers/internal/common/genai"
	apphttp "shopgenie-workers/internal/common/http"
	"shopgenie-workers/internal/common/logger"
	"shopgenie-workers/internal/common/websearch"
	"shopgenie-workers/internal/models"
	runturn "shopgenie-workers/internal/workers/shopping-assistant/run-turn"
	"shopgenie-workers/internal/workflow"
)

var (
	serverURL  string
	configPath string
	verbose    bool
)

// turnFunc runs one turn; onStatus may be nil.
type turnFunc func(ctx context.Context, query, history string, onStatus func(models.StatusUpdate)) (*runturn.Output, error)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive shopping assistant",
		Long: `Starts an interactive ShopGenie session in the terminal.

By default the turn workflow runs in-process with the configured model and
search providers. With --server the turns are sent to a running worker
manager instead.

Example:
  chat
  chat --server http://localhost:8080`,
		RunE: runChat,
	}
	rootCmd.Flags().StringVar(&serverURL, "server", "", "Base URL of a running worker manager")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a config file (defaults to configs/config.yaml)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log workflow internals")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil && serverURL == "" {
		return err
	}
	window := 4
	if cfg != nil {
		window = cfg.Assistant.HistoryWindow
	}

	run, err := newTurnFunc(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	sess := newSession(window)
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, color.CyanString("ShopGenie")+" - what are you looking for today? (/new to restart, /quit to exit)")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, color.GreenString("you> "))
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/new":
			sess.reset()
			fmt.Fprintln(out, color.YellowString("Started a new search."))
			continue
		}

		sess.add("user", line)
		result, err := run(cmd.Context(), line, sess.history(), func(u models.StatusUpdate) { renderStatus(out, u) })
		if err != nil {
			fmt.Fprintf(out, "%s %v\n", color.RedString("✗"), err)
			continue
		}
		renderTurn(out, result)
		sess.add("assistant", result.FinalRecommendation)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

func newTurnFunc(ctx context.Context, cfg *config.Config) (turnFunc, error) {
	if serverURL != "" {
		return remoteTurnFunc(strings.TrimRight(serverURL, "/")), nil
	}

	log := logger.NewNoOpLogger()
	if verbose {
		log = logger.NewStructured("debug", "console")
	}

	llm, err := genai.New(ctx, cfg.APIs.LLM)
	if err != nil {
		return nil, fmt.Errorf("init llm: %w", err)
	}
	searcher, err := websearch.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init web search: %w", err)
	}

	orchestrator := workflow.New(workflow.NewStages(cfg, llm, searcher, log), cfg.Assistant.MaxRetries, log)
	turnCfg := runturn.LoadConfigFrom(cfg)
	turnCfg.HistoryWindow = 0
	handler := runturn.NewHandler(turnCfg, orchestrator, &runTurnLogger{log})

	return func(ctx context.Context, query, history string, onStatus func(models.StatusUpdate)) (*runturn.Output, error) {
		var reporter workflow.Reporter
		if onStatus != nil {
			reporter = workflow.ReporterFunc(onStatus)
		}
		return handler.Execute(ctx, &runturn.Input{Query: query, ChatHistory: history}, reporter)
	}, nil
}

// remoteTurnFunc posts turns to a worker manager; statuses arrive with the
// response and are replayed.
func remoteTurnFunc(base string) turnFunc {
	client := apphttp.NewClient(8 * time.Minute)
	return func(ctx context.Context, query, history string, onStatus func(models.StatusUpdate)) (*runturn.Output, error) {
		var out runturn.Output
		if err := client.PostJSON(ctx, base+"/api/v1/turns", nil, runturn.Input{Query: query, ChatHistory: history}, &out, 0); err != nil {
			return nil, err
		}
		if onStatus != nil {
			for _, u := range out.Statuses {
				onStatus(u)
			}
		}
		return &out, nil
	}
}

type runTurnLogger struct {
	logger.Logger
}

func (a *runTurnLogger) With(fields map[string]interface{}) runturn.Logger {
	return &runTurnLogger{a.Logger.With(fields)}
}
