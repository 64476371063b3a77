package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsFinished tracks jobs by terminal status
	JobsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_jobs_finished_total",
			Help: "Total number of collection jobs that reached a terminal state",
		},
		[]string{"status"}, // "completed", "failed", "cancelled"
	)

	// JobDuration tracks wall time of finished jobs
	JobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "collector_job_duration_seconds",
			Help:    "Wall time of collection jobs from start to finish",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	// StoreErrors tracks job store operation errors
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_job_store_errors_total",
			Help: "Total number of job store operation errors",
		},
		[]string{"operation"}, // "get", "save", "delete"
	)

	// StoreMisses tracks lookups of unknown job IDs
	StoreMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "collector_job_store_misses_total",
			Help: "Total number of job lookups for unknown or expired IDs",
		},
	)
)

// ObserveFinished records a terminal job in the job metrics.
func ObserveFinished(j Job) {
	if !j.Status.Terminal() {
		return
	}
	JobsFinished.WithLabelValues(string(j.Status)).Inc()
	if d := j.Duration(); d > 0 {
		JobDuration.Observe(d.Seconds())
	}
}
