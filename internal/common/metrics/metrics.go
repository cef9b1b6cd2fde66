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

	VerificationChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_checks_total",
			Help: "Verification check outcomes by kind and status",
		},
		[]string{"kind", "status"},
	)

	VerificationCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_cache_lookups_total",
			Help: "Verification report cache lookups by result",
		},
		[]string{"result"},
	)

	EligibilityDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eligibility_decisions_total",
			Help: "Eligibility gate decisions by policy and outcome",
		},
		[]string{"policy", "eligible"},
	)

	Predictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_predictions_total",
			Help: "Loan approval predictions by decision and degraded flag",
		},
		[]string{"decision", "degraded"},
	)

	PredictionConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "loan_prediction_confidence",
			Help:    "Confidence percentage of emitted predictions",
			Buckets: []float64{50, 60, 70, 75, 80, 85, 90, 95, 100},
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)
)
