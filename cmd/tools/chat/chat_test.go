package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"shopgenie-workers/internal/models"
	runturn "shopgenie-workers/internal/workers/shopping-assistant/run-turn"
)

func init() {
	color.NoColor = true
}

func TestSessionHistory(t *testing.T) {
	s := newSession(4)
	s.add("user", "laptop")
	s.add("assistant", "What's your budget?")
	s.add("user", "under $900")
	s.add("assistant", "{\n  \"options\": []\n}")
	s.add("user", "cheaper one")

	assert.Equal(t,
		"ASSISTANT: What's your budget?\nUSER: under $900\nASSISTANT: { \"options\": [] }\nUSER: cheaper one",
		s.history())

	s.reset()
	assert.Equal(t, "", s.history())
}

func TestRenderTurn_Text(t *testing.T) {
	var buf bytes.Buffer
	renderTurn(&buf, &runturn.Output{FinalRecommendation: "What's your budget?"})
	assert.Equal(t, "genie> What's your budget?\n", buf.String())
}

func TestRenderTurn_Cards(t *testing.T) {
	var buf bytes.Buffer
	renderTurn(&buf, &runturn.Output{
		RetryCount: 1,
		Recommendation: &models.RecommendationDocument{Options: []models.ProductOption{
			{
				Category:    "Budget",
				Name:        "Acer Nitro V",
				Price:       "$699",
				Link:        "https://www.amazon.com/nitro",
				FullDetails: []string{"RTX 4050", "144Hz"},
				AIInsights:  models.AIInsights{Score: 7, Dealbreaker: "Weak battery"},
				Images:      []string{"https://img.example/nitro.jpg"},
			},
		}},
	})

	out := buf.String()
	assert.Contains(t, out, "Top 1 recommendations")
	assert.Contains(t, out, "1. [Budget] Acer Nitro V")
	assert.Contains(t, out, "Price: $699")
	assert.Contains(t, out, "AI Score: [#######...] 7/10")
	assert.Contains(t, out, "Best For: General Use")
	assert.Contains(t, out, "Dealbreaker: Weak battery")
	assert.Contains(t, out, "   - RTX 4050\n   - 144Hz\n")
	assert.Contains(t, out, "Image: https://img.example/nitro.jpg")
	assert.Contains(t, out, "Buy: https://www.amazon.com/nitro")
	assert.Contains(t, out, "took 1 revision(s)")
}

func TestScoreBar(t *testing.T) {
	assert.Equal(t, "[..........]", scoreBar(-2))
	assert.Equal(t, "[##########]", scoreBar(12))
}
