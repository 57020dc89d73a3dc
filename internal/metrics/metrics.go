// Package metrics exposes Prometheus collectors for the bridge.
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
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "amica_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "amica_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "amica_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	rpcRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "amica_rpc_requests_total",
			Help: "Total number of JSON-RPC requests dispatched",
		},
		[]string{"method", "status"},
	)

	rpcRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "amica_rpc_request_duration_seconds",
			Help:    "JSON-RPC handler execution time in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method"},
	)

	hookExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "amica_hook_executions_total",
			Help: "Total number of hook callback executions",
		},
		[]string{"event", "status"},
	)

	hookExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "amica_hook_execution_duration_seconds",
			Help:    "Hook callback execution time in seconds",
			Buckets: []float64{.0001, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"event"},
	)

	wsConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "amica_ws_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	wsSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "amica_ws_subscriptions",
			Help: "Number of active event subscriptions",
		},
	)

	eventsForwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "amica_events_forwarded_total",
			Help: "Total number of pipeline events forwarded to subscribers",
		},
		[]string{"event"},
	)
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func IncrementInFlight() {
	httpRequestsInFlight.Inc()
}

func DecrementInFlight() {
	httpRequestsInFlight.Dec()
}

func RecordRPCRequest(method, status string, duration time.Duration) {
	rpcRequestsTotal.WithLabelValues(method, status).Inc()
	rpcRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func RecordHookExecution(event, status string, duration time.Duration) {
	hookExecutionsTotal.WithLabelValues(event, status).Inc()
	hookExecutionDuration.WithLabelValues(event).Observe(duration.Seconds())
}

func UpdateWebSocketStats(connections, subscriptions int) {
	wsConnections.Set(float64(connections))
	wsSubscriptions.Set(float64(subscriptions))
}

func RecordEventForwarded(event string) {
	eventsForwarded.WithLabelValues(event).Inc()
}
