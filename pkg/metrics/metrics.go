// Package metrics exposes the catalog client's Prometheus metrics.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, pagination) and registered via promauto.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Registry is the default Prometheus registry used by the catalog client.
var Registry = prometheus.DefaultRegisterer

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Server serves /metrics until Shutdown.
type Server struct {
	srv    *http.Server
	logger zerolog.Logger
}

// NewServer creates a metrics server listening on addr.
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start serves in the background.
func (s *Server) Start() {
	go func() {
		s.logger.Info().Str("addr", s.srv.Addr).Msg("Metrics server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Metrics Documentation
//
// Load Controller Metrics (pkg/pagination):
//   - catalog_loader_fetches_total{kind} (Counter): Page fetches issued by kind
//   - catalog_loader_fetch_failures_total{kind} (Counter): Failed page fetches by kind
//   - catalog_loader_stale_responses_total (Counter): Responses dropped as superseded
//   - catalog_loader_transitions_total{from, to} (Counter): Load state transitions
//   - catalog_loader_fetch_duration_seconds{kind} (Histogram): Page fetch duration
//
// Rate Limit Metrics (pkg/ratelimit):
//   - catalog_rate_limit_cooldowns_total{status} (Counter): Cooldowns started by 429/503 answers
//   - catalog_rate_limit_blocks_total (Counter): Requests refused during a cooldown
//   - catalog_rate_limit_cooldown_seconds (Gauge): Length of the latest cooldown
//
// Cache Metrics (pkg/cache):
//   - catalog_cache_hits_total (Counter): Cache hits
//   - catalog_cache_misses_total (Counter): Cache misses
//   - catalog_304_responses_total (Counter): 304 Not Modified responses
//   - catalog_conditional_requests_total (Counter): Conditional requests sent
//   - catalog_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - catalog_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - catalog_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - catalog_errors_total{class} (Counter): Errors by class
//
// Retry Metrics (pkg/client):
//   - catalog_retries_total{error_class} (Counter): Retry attempts by error class
//   - catalog_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - catalog_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Example Prometheus Queries:
//
//   # Stale response rate
//   rate(catalog_loader_stale_responses_total[5m])
//
//   # Load-more failure ratio
//   rate(catalog_loader_fetch_failures_total{kind="loading_more"}[5m]) /
//   rate(catalog_loader_fetches_total{kind="loading_more"}[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(catalog_request_duration_seconds_bucket[5m]))
//
//   # 304 Response Rate
//   rate(catalog_304_responses_total[5m]) / rate(catalog_requests_total[5m])
