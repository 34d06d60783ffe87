package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yass_queries_total",
			Help: "Total number of search-engine queries issued",
		},
		[]string{"plugin", "status"},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yass_query_duration_seconds",
			Help:    "Duration of search-engine queries in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"plugin"},
	)

	SubdomainsDiscovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yass_subdomains_discovered_total",
			Help: "Total number of unique subdomains each plugin discovered",
		},
		[]string{"plugin"},
	)

	ChallengesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yass_challenges_detected_total",
			Help: "Total number of block or CAPTCHA pages served by engines",
		},
		[]string{"plugin", "source"},
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yass_proxy_failures_total",
			Help: "Total number of proxy failures during queries",
		},
		[]string{"proxy_url"},
	)
)

// RecordQuery updates the per-query metrics for one plugin.
func RecordQuery(plugin string, statusCode int, duration time.Duration, failed bool) {
	status := strconv.Itoa(statusCode)
	if failed && statusCode == 0 {
		status = "error"
	}
	QueriesTotal.WithLabelValues(plugin, status).Inc()
	QueryDuration.WithLabelValues(plugin).Observe(duration.Seconds())
}

// Server exposes the Prometheus metrics endpoint for long-running callers.
type Server struct {
	srv *http.Server
}

// Start begins listening on the given port and serves /metrics.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server failed: %v\n", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts the metrics server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
