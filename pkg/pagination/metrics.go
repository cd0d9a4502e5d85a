package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for paginated loading.
var (
	loaderFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_loader_fetches_total",
		Help: "Total page fetches issued by kind",
	}, []string{"kind"})

	loaderFetchFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_loader_fetch_failures_total",
		Help: "Total failed page fetches of the current generation by kind",
	}, []string{"kind"})

	loaderStaleResponsesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_loader_stale_responses_total",
		Help: "Total responses dropped because a newer generation superseded them",
	})

	loaderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_loader_transitions_total",
		Help: "Total load state transitions",
	}, []string{"from", "to"})

	loaderFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_loader_fetch_duration_seconds",
		Help:    "Page fetch duration in seconds by kind",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
	}, []string{"kind"})
)
