// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Item outcomes recorded by the batch runner.
const (
	OutcomeEmitted  = "emitted"
	OutcomeCaptured = "captured"
	OutcomeAborted  = "aborted"
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

	ItemsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_items_total",
			Help: "Batch items processed, by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	PayloadsNormalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_payloads_normalized_total",
			Help: "Remote 404 responses replaced by the empty payload",
		},
		[]string{"path"},
	)
)
