package observability

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// RequestIDHeader carries the per-request correlation ID to the service
const RequestIDHeader = "X-Request-ID"

// Transport is an http.RoundTripper that tags, measures and debug-logs every
// request to the transcription service. It never changes the response or
// the error it got from the wrapped transport.
type Transport struct {
	base          http.RoundTripper
	logger        zerolog.Logger
	recordMetrics bool
}

// NewTransport wraps base; a nil base means http.DefaultTransport.
// With recordMetrics false requests are still tagged and logged.
func NewTransport(base http.RoundTripper, logger zerolog.Logger, recordMetrics bool) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base, logger: logger, recordMetrics: recordMetrics}
}

// RoundTrip implements http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = NewCorrelationID()
		// RoundTrippers must not modify the caller's request
		req = req.Clone(req.Context())
		req.Header.Set(RequestIDHeader, requestID)
	}

	endpoint := EndpointLabel(req.URL.Path)
	if t.recordMetrics {
		RecordUpload(endpoint, req.ContentLength)
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	elapsed := time.Since(start)

	logger := t.logger.With().
		Str("request_id", requestID).
		Str("method", req.Method).
		Str("endpoint", endpoint).
		Dur("latency", elapsed).
		Logger()

	if err != nil {
		if t.recordMetrics {
			RecordTransportError(endpoint, elapsed.Seconds())
		}
		logger.Debug().Err(err).Msg("Transcription request failed")
		return nil, err
	}

	if t.recordMetrics {
		RecordResponse(endpoint, resp.StatusCode, elapsed.Seconds())
	}
	logger.Debug().Int("status", resp.StatusCode).Msg("Transcription request completed")
	return resp, nil
}

// EndpointLabel maps a request path to a fixed metric label
func EndpointLabel(path string) string {
	switch {
	case strings.HasSuffix(path, "/transcribe/batch"):
		return "transcribe_batch"
	case strings.HasSuffix(path, "/transcribe/"), strings.HasSuffix(path, "/transcribe"):
		return "transcribe"
	case strings.HasSuffix(path, "/performance"):
		return "performance"
	case strings.HasSuffix(path, "/health"):
		return "health"
	default:
		return "other"
	}
}
