package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for Notion API calls and retries.
var (
	notionRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notion_requests_total",
		Help: "Total Notion API requests by route and status",
	}, []string{"route", "status"})

	notionRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notion_request_duration_seconds",
		Help:    "Notion API request duration in seconds by route",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"route"})

	notionErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notion_errors_total",
		Help: "Total Notion API errors by class",
	}, []string{"class"})

	notionRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notion_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	notionRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notion_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.1, 0.3, 0.6, 1.2, 2.4, 3.6, 10},
	}, []string{"error_class"})

	notionRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notion_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})

	notionResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notion_target_resolutions_total",
		Help: "Target id probes by resolved kind",
	}, []string{"kind"})
)
