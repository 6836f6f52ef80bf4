package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agenticos_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agenticos_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	repositoryOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agenticos_repository_operations_total",
		Help: "Repository operations by entity, operation and result",
	}, []string{"entity", "op", "result"})

	generationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agenticos_spec_generation_duration_seconds",
		Help:    "Duration of spec generation calls",
		Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
	}, []string{"spec_type", "result"})

	generatedChars = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agenticos_spec_generated_chars_total",
		Help: "Characters of generated spec content streamed back",
	}, []string{"model"})

	liveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "agenticos_live_connections",
		Help: "Open live query websocket connections",
	})

	relayMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agenticos_change_relay_messages_total",
		Help: "Change events relayed between replicas",
	}, []string{"direction"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveRepositoryOp counts one repository call.
func ObserveRepositoryOp(entity, op, result string) {
	repositoryOps.WithLabelValues(entity, op, result).Inc()
}

// ObserveGeneration records a spec generation attempt.
func ObserveGeneration(specType, result string, duration time.Duration) {
	generationDuration.WithLabelValues(specType, result).Observe(duration.Seconds())
}

// AddGeneratedChars adds streamed characters for model.
func AddGeneratedChars(model string, n int) {
	generatedChars.WithLabelValues(model).Add(float64(n))
}

func LiveConnectionOpened() { liveConnections.Inc() }

func LiveConnectionClosed() { liveConnections.Dec() }

// ObserveRelay counts relayed change events; direction is "out" or "in".
func ObserveRelay(direction string) {
	relayMessages.WithLabelValues(direction).Inc()
}
