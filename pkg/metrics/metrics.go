// Package metrics exposes the collector's Prometheus metrics.
// Metrics are defined in their own packages (client, ratelimit, balancer,
// jobs, publish) via promauto and registered on the default registry; this
// package serves them and documents the full set.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer every collector metric is registered on.
var Registry = prometheus.DefaultRegisterer

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - github_requests_total{route, status} (Counter): Upstream requests by route and HTTP status
//   - github_request_duration_seconds{route} (Histogram): Upstream request latency
//   - github_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Pacing and Quota Metrics (pkg/ratelimit):
//   - github_pacing_wait_seconds{strategy} (Histogram): Time a worker waited before a request
//   - github_quota_remaining (Gauge): Requests left in the current GitHub window
//   - github_quota_low_total (Counter): Responses seen with quota below the warning threshold
//
// Pool Metrics (pkg/balancer):
//   - collector_pool_busy_workers (Gauge): Workers currently draining a seed
//   - collector_pool_pages_total (Counter): Pages accepted by the sink
//   - collector_pool_seed_failures_total (Counter): Seeds ended by an error
//   - collector_pool_seed_duration_seconds (Histogram): Time to drain one seed
//
// Job Metrics (pkg/jobs):
//   - collector_jobs_finished_total{status} (Counter): Jobs by terminal status
//   - collector_job_duration_seconds (Histogram): Job wall time
//   - collector_job_store_errors_total{operation} (Counter): Store errors
//   - collector_job_store_misses_total (Counter): Lookups of unknown job IDs
//
// Publish Metrics (pkg/publish):
//   - collector_published_messages_total{result} (Counter): Page summaries written to Kafka
//
// Example Prometheus Queries:
//
//   # Upstream error rate by class
//   sum by (class) (rate(github_errors_total[5m]))
//
//   # Quota about to run out
//   github_quota_remaining < 10
//
//   # Pool saturation
//   collector_pool_busy_workers
//
//   # P95 upstream latency
//   histogram_quantile(0.95, rate(github_request_duration_seconds_bucket[5m]))
//
//   # Failed job ratio
//   rate(collector_jobs_finished_total{status="failed"}[1h]) / rate(collector_jobs_finished_total[1h])
