package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Transcription client metrics
	clientRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcription_client_requests_total",
		Help: "Requests sent to the transcription service, by endpoint and HTTP status code",
	}, []string{"endpoint", "code"})

	clientLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "transcription_client_request_duration_seconds",
		Help:    "Round-trip latency of transcription service requests in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"endpoint"})

	clientUploadBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcription_client_upload_bytes_total",
		Help: "Request body bytes uploaded to the transcription service",
	}, []string{"endpoint"})

	clientTransportErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcription_client_transport_errors_total",
		Help: "Requests that failed before a response arrived",
	}, []string{"endpoint"})

	// Probe metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "transcription_probe_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	dependencyChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcription_probe_checks_total",
		Help: "Readiness checks run against dependencies",
	}, []string{"dependency", "status"})
)

// RecordResponse records a completed round trip
func RecordResponse(endpoint string, statusCode int, seconds float64) {
	clientRequests.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
	clientLatency.WithLabelValues(endpoint).Observe(seconds)
}

// RecordTransportError records a round trip that got no response
func RecordTransportError(endpoint string, seconds float64) {
	clientTransportErrors.WithLabelValues(endpoint).Inc()
	clientLatency.WithLabelValues(endpoint).Observe(seconds)
}

// RecordUpload records request body bytes
func RecordUpload(endpoint string, bytes int64) {
	if bytes > 0 {
		clientUploadBytes.WithLabelValues(endpoint).Add(float64(bytes))
	}
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// RecordDependencyCheck records one readiness check outcome
func RecordDependencyCheck(dependency string, healthy bool) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	dependencyChecks.WithLabelValues(dependency, status).Inc()
}
