package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"shopgenie-workers/internal/models"
	runturn "shopgenie-workers/internal/workers/shopping-assistant/run-turn"
)

func categoryBadge(category string) string {
	switch {
	case strings.Contains(category, models.CategoryPowerhouse):
		return color.MagentaString("[Powerhouse]")
	case strings.Contains(category, models.CategoryBalanced):
		return color.BlueString("[Balanced]")
	default:
		return color.GreenString("[Budget]")
	}
}

func renderStatus(w io.Writer, update models.StatusUpdate) {
	fmt.Fprintf(w, "  %s %s\n", color.HiBlackString("·"), color.HiBlackString(update.Message))
}

// renderTurn prints the assistant reply: product cards for a parsed
// recommendation, plain text otherwise.
func renderTurn(w io.Writer, out *runturn.Output) {
	if out.Recommendation == nil || len(out.Recommendation.Options) == 0 {
		fmt.Fprintf(w, "%s %s\n", color.CyanString("genie>"), out.FinalRecommendation)
		return
	}

	fmt.Fprintf(w, "%s Top %d recommendations\n", color.CyanString("genie>"), len(out.Recommendation.Options))
	for i, opt := range out.Recommendation.Options {
		renderOption(w, i+1, opt)
	}
	if out.RetryCount > 0 {
		fmt.Fprintf(w, "%s took %d revision(s)\n", color.YellowString("⚠"), out.RetryCount)
	}
}

func renderOption(w io.Writer, n int, opt models.ProductOption) {
	fmt.Fprintf(w, "\n%d. %s %s\n", n, categoryBadge(opt.Category), color.New(color.Bold).Sprint(opt.Name))
	if opt.Price != "" {
		fmt.Fprintf(w, "   Price: %s\n", opt.Price)
	}

	insights := opt.AIInsights
	if insights.Score > 0 {
		fmt.Fprintf(w, "   AI Score: %s %d/10\n", scoreBar(insights.Score), insights.Score)
	}
	bestFor := insights.BestFor
	if bestFor == "" {
		bestFor = "General Use"
	}
	fmt.Fprintf(w, "   Best For: %s\n", bestFor)
	if insights.Dealbreaker != "" {
		fmt.Fprintf(w, "   %s %s\n", color.RedString("Dealbreaker:"), insights.Dealbreaker)
	}

	if opt.FitSummary != "" {
		fmt.Fprintf(w, "   %s\n", opt.FitSummary)
	}
	for _, d := range opt.FullDetails {
		fmt.Fprintf(w, "   - %s\n", d)
	}
	if img := opt.PrimaryImage(); img != "" {
		fmt.Fprintf(w, "   Image: %s\n", img)
	}
	if opt.Link != "" {
		fmt.Fprintf(w, "   Buy: %s\n", color.CyanString(opt.Link))
	}
}

func scoreBar(score int) string {
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return "[" + strings.Repeat("#", score) + strings.Repeat(".", 10-score) + "]"
}
