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
)

var (
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heart_risk_predictions_total",
			Help: "Predictions served, by feature variant and risk label",
		},
		[]string{"variant", "label"},
	)

	PredictionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heart_risk_prediction_failures_total",
			Help: "Predictions rejected or failed, by error code",
		},
		[]string{"error_code"},
	)

	InferenceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "heart_risk_inference_duration_seconds",
			Help:    "Time spent in assembly, transform and classifier inference",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"variant"},
	)

	ArtifactsLoaded = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "heart_risk_artifacts_loaded",
			Help: "1 when the named artifact is loaded",
		},
		[]string{"artifact"},
	)

	PredictionCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "heart_risk_prediction_cache_hits_total",
			Help: "Predictions answered from the redis result cache",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heart_risk_notifications_sent_total",
			Help: "High risk notifications sent, by channel",
		},
		[]string{"channel"},
	)
)
