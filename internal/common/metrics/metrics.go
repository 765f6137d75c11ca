// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransitionsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholarship_transitions_completed_total",
			Help: "Total number of completed status transitions",
		},
		[]string{"target_status"},
	)

	TransitionsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholarship_transitions_failed_total",
			Help: "Total number of failed status transitions",
		},
		[]string{"target_status", "error_code"},
	)

	TransitionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "scholarship_transition_duration_seconds",
			Help: "Duration of status transitions in seconds",
		},
		[]string{"target_status"},
	)

	BudgetRemaining = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scholarship_budget_remaining_amount",
			Help: "Remaining budget amount per funding cycle after the last adjustment",
		},
		[]string{"cycle_id"},
	)

	NotaryFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scholarship_notary_fallback_references_total",
			Help: "Audit events notarized with a locally synthesized reference",
		},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)
