// Package metrics provides Prometheus instrumentation for the analytics engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SnapshotRefreshes counts refresh runs by outcome.
	SnapshotRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marginscope_snapshot_refreshes_total",
		Help: "Snapshot refresh runs by outcome",
	}, []string{"outcome"})

	// SnapshotRecords tracks the size of the last ingested snapshot per collection.
	SnapshotRecords = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "marginscope_snapshot_records",
		Help: "Records in the last ingested snapshot",
	}, []string{"collection"})

	// AggregationDuration observes how long a full borrower aggregation takes.
	AggregationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "marginscope_aggregation_duration_seconds",
		Help:    "Borrower aggregation latency in seconds",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
	})

	// Borrowers tracks the borrower count in the latest aggregation.
	Borrowers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marginscope_borrowers",
		Help: "Borrowers in the latest aggregation",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marginscope_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marginscope_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marginscope_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the raw path for the label; route cardinality is small here.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
