// Package metrics provides the Prometheus registry and HTTP endpoint for
// the exporter. All metrics are defined in their respective packages
// (client, cache, ratelimit, limiter, export, output) to maintain modularity and
// avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry is the default Prometheus registry used by the exporter.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - notion_requests_total{route, status} (Counter): Requests by templated route and HTTP status ("cached" for cache hits)
//   - notion_request_duration_seconds{route} (Histogram): Request duration by route
//   - notion_errors_total{class} (Counter): Errors by class (auth, not_found, rate_limit, server, client, network)
//   - notion_target_resolutions_total{kind} (Counter): Target probes by resolved kind
//
// Retry Metrics (pkg/client):
//   - notion_retries_total{error_class} (Counter): Retry attempts by error class
//   - notion_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - notion_retry_exhausted_total{error_class} (Counter): Calls that exhausted their retries
//
// Rate Limit Metrics (pkg/ratelimit):
//   - notion_rate_limit_cooldowns_total (Counter): 429 responses that started or extended a cooldown
//   - notion_rate_limit_wait_seconds (Histogram): Time spent waiting for pacing or cooldown
//
// Cache Metrics (pkg/cache):
//   - notion_cache_lookups_total{result} (Counter): Lookups by result (hit, miss, error)
//   - notion_cache_written_bytes_total (Counter): Response bytes stored
//   - notion_cache_purged_keys_total (Counter): Keys removed by Purge
//
// Export Metrics (pkg/limiter, pkg/export):
//   - export_limiter_active (Gauge): Tasks currently holding a limiter slot
//   - export_items_processed_total (Counter): Pages rendered successfully
//   - export_items_dropped_total (Counter): Pages dropped after a render failure
//   - export_items_filtered_total (Counter): Pages skipped by the export property
//   - export_run_duration_seconds{kind, outcome} (Histogram): Run duration
//
// Output Metrics (internal/output):
//   - export_files_written_total{kind} (Counter): Files written (page, section, index)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(notion_cache_lookups_total{result="hit"}[5m])) /
//   sum(rate(notion_cache_lookups_total[5m]))
//
//   # Dropped page ratio
//   rate(export_items_dropped_total[5m]) /
//   (rate(export_items_processed_total[5m]) + rate(export_items_dropped_total[5m]))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(notion_request_duration_seconds_bucket[5m]))

// Handler returns the /metrics HTTP handler for the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is done. An empty addr does
// nothing.
func Serve(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Serving metrics")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
