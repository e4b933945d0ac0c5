package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EligibilityEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coop_eligibility_evaluations_total",
			Help: "Eligibility evaluations by outcome (eligible, ineligible, error)",
		},
		[]string{"outcome"},
	)

	EligibilityViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coop_eligibility_violations_total",
			Help: "Eligibility rule violations by rule code",
		},
		[]string{"rule"},
	)

	EligibilityDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "coop_eligibility_evaluation_seconds",
			Help:    "Duration of eligibility evaluations in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	DegradedAggregates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coop_degraded_aggregates_total",
			Help: "Aggregate reads that fell back to zero values, by source",
		},
		[]string{"source"},
	)

	WorkflowTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coop_workflow_transitions_total",
			Help: "Workflow approval transitions by decision",
		},
		[]string{"decision"},
	)

	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coop_notifications_failed_total",
			Help: "Notification dispatch failures by event kind",
		},
		[]string{"kind"},
	)

	IdempotencyOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coop_idempotency_requests_total",
			Help: "Idempotency-guarded requests by outcome (stored, replayed, conflict, released, unavailable)",
		},
		[]string{"outcome"},
	)
)
