package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BatchItemsTotal counts fan-out items by outcome ("ok", "failed").
	BatchItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "manifold_batch_items_total",
			Help: "Total number of items fetched by the batch fetcher, by outcome",
		},
		[]string{"outcome"},
	)

	// BatchDuration tracks the wall time of complete fan-out calls.
	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "manifold_batch_duration_seconds",
			Help:    "Duration of batch fetch calls in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	// PagesFetched counts cursor pages by endpoint.
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "manifold_pages_fetched_total",
			Help: "Total number of cursor pages fetched, by endpoint",
		},
		[]string{"endpoint"},
	)

	// GroupsFetched counts grouped batch requests.
	GroupsFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "manifold_groups_fetched_total",
			Help: "Total number of grouped batch requests issued",
		},
	)
)
