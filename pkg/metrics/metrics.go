// Package metrics provides the Prometheus registry and exposition handler
// for the Manifold client. Metrics are defined in their respective packages
// (client, pagination, ratelimit) to avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the Manifold client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer matching Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics handler for Gatherer.
func Handler() http.Handler {
	return HandlerFor(Gatherer)
}

// HandlerFor returns a /metrics handler for g. Gathering errors are served
// with the metrics that could be collected.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// Metrics Documentation
//
// Request Budget Metrics (pkg/ratelimit):
//   - manifold_requests_remaining (Gauge): Requests left in the current one-minute window
//   - manifold_rate_limit_blocks_total (Counter): Requests blocked due to critical budget
//   - manifold_rate_limit_throttles_total (Counter): Requests throttled due to warning budget
//
// Request Metrics (pkg/client):
//   - manifold_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - manifold_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - manifold_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Fetch Orchestration Metrics (pkg/pagination):
//   - manifold_batch_items_total{outcome} (Counter): Fan-out items by outcome (ok, failed)
//   - manifold_batch_duration_seconds (Histogram): Wall time of complete fan-out calls
//   - manifold_pages_fetched_total{endpoint} (Counter): Cursor pages fetched
//   - manifold_groups_fetched_total (Counter): Grouped batch requests issued
//
// Example Prometheus Queries:
//
//   # Batch Failure Rate
//   sum(rate(manifold_batch_items_total{outcome="failed"}[5m])) /
//   sum(rate(manifold_batch_items_total[5m]))
//
//   # Budget Status
//   manifold_requests_remaining < 50
//
//   # Request Error Rate
//   rate(manifold_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(manifold_request_duration_seconds_bucket[5m]))
