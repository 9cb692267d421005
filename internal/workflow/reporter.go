package workflow

import "shopgenie-workers/internal/models"

// Reporter receives coarse per-stage progress for one turn.
type Reporter interface {
	Report(update models.StatusUpdate)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(update models.StatusUpdate)

func (f ReporterFunc) Report(update models.StatusUpdate) { f(update) }

// NoOpReporter drops every update.
type NoOpReporter struct{}

func (NoOpReporter) Report(models.StatusUpdate) {}

// CollectingReporter keeps every update in order.
type CollectingReporter struct {
	Updates []models.StatusUpdate
}

func (c *CollectingReporter) Report(update models.StatusUpdate) {
	c.Updates = append(c.Updates, update)
}
