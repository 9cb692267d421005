// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopgenie_turns_total",
			Help: "Conversation turns by resolved intent",
		},
		[]string{"intent"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopgenie_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	ExternalCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopgenie_external_calls_total",
			Help: "Calls to the language-model and web-search services",
		},
		[]string{"service", "status"},
	)

	ValidationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shopgenie_validation_failures_total",
			Help: "Recommendations rejected by the validator",
		},
	)

	TurnPasses = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shopgenie_turn_passes",
			Help:    "Retrieve-to-validate passes per buy request",
			Buckets: []float64{1, 2, 3, 4},
		},
	)
)

// External service labels.
const (
	ServiceLLM         = "llm"
	ServiceWebSearch   = "web_search"
	ServiceImageSearch = "image_search"
)

// RecordExternalCall counts one call to an external service.
func RecordExternalCall(service string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	ExternalCalls.WithLabelValues(service, status).Inc()
}
