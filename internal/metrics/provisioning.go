package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsStarted counts provisioning jobs accepted by the submission API.
	JobsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "provisioning_jobs_started_total",
		Help: "Total number of provisioning jobs accepted",
	})

	// JobsCompleted counts jobs that reached the completed state.
	JobsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "provisioning_jobs_completed_total",
		Help: "Total number of provisioning jobs completed successfully",
	})

	// JobsFailed counts jobs that reached the failed state, by reason class.
	JobsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "provisioning_jobs_failed_total",
		Help: "Total number of provisioning jobs that failed",
	}, []string{"reason"})

	// JobsActive tracks jobs currently in a non-terminal state.
	JobsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "provisioning_jobs_active",
		Help: "Number of provisioning jobs in a non-terminal state",
	})

	// StepDuration observes how long individual synchronous steps take.
	StepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "provisioning_step_duration_seconds",
		Help:    "Duration of synchronous provisioning steps",
		Buckets: prometheus.DefBuckets,
	}, []string{"step"})
)

// Failure reason classes for JobsFailed.
const (
	ReasonStep     = "step"
	ReasonTimeout  = "timeout"
	ReasonCancel   = "cancelled"
	ReasonCallback = "callback"
)
