package export

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for export runs.
var (
	itemsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "export_items_processed_total",
		Help: "Pages fetched and rendered successfully",
	})

	itemsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "export_items_dropped_total",
		Help: "Pages dropped because fetching or rendering them failed",
	})

	itemsFilteredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "export_items_filtered_total",
		Help: "Pages skipped because their export property was not set",
	})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "export_run_duration_seconds",
		Help:    "Export run duration by target kind and outcome",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"kind", "outcome"})
)
