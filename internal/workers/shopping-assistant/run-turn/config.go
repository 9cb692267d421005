package runturn

import (
	"time"

	"shopgenie-workers/internal/common/config"
	"shopgenie-workers/internal/workflow"
)

type Config struct {
	// Timeout bounds a whole turn, retries included.
	Timeout time.Duration
	// HistoryWindow is how many trailing history lines are kept.
	HistoryWindow int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       3 * time.Minute,
		HistoryWindow: 4,
	}
}

// LoadConfigFrom takes the turn timeout from the run-turn worker entry and
// never lets it fall below the worst case of the configured call timeouts.
func LoadConfigFrom(cfg *config.Config) *Config {
	c := LoadConfig()
	if d := config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout); d > 0 {
		c.Timeout = d
	}
	if budget := workflow.TurnBudget(cfg); budget > c.Timeout {
		c.Timeout = budget
	}
	c.HistoryWindow = cfg.Assistant.HistoryWindow
	return c
}
