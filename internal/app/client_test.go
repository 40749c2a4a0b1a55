package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexiqai/transcription-client/internal/config"
	"github.com/lexiqai/transcription-client/internal/observability"
	"github.com/lexiqai/transcription-client/internal/resilience"
	"github.com/lexiqai/transcription-client/pkg/transcription"
)

func testConfig(url string) *config.Config {
	return &config.Config{
		TranscriptionAPIURL:        url,
		OutputFormat:               "json",
		WaitMaxAttempts:            3,
		WaitInitialBackoff:         1,
		WaitMaxBackoff:             5,
		CircuitBreakerMaxFailures:  1,
		CircuitBreakerResetTimeout: 60,
	}
}

func TestNewTranscriptionClient_TagsRequests(t *testing.T) {
	var requestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = r.Header.Get(observability.RequestIDHeader)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer server.Close()

	client, err := NewTranscriptionClient(testConfig(server.URL), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, server.URL, client.BaseURL())

	status, err := client.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", status.Status)
	assert.NotEmpty(t, requestID)
}

func TestNewReadinessBreaker_ExportsState(t *testing.T) {
	breaker := NewReadinessBreaker(testConfig("http://asr.test"), "wiring_test", zerolog.Nop())

	breaker.RecordResult(false)
	assert.Equal(t, resilience.StateOpen, breaker.GetState())

	count, err := testutil.GatherAndCount(prometheus.DefaultGatherer, "transcription_probe_circuit_breaker_state")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 1)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&transcription.Error{Kind: transcription.KindNetwork}))
	assert.True(t, IsTransient(&transcription.Error{Kind: transcription.KindStatus, StatusCode: 503}))
	assert.False(t, IsTransient(&transcription.Error{Kind: transcription.KindApplication, StatusCode: 400}))
	assert.False(t, IsTransient(errors.New("decode failed")))
}

func TestWaitRetryConfig(t *testing.T) {
	retry := WaitRetryConfig(testConfig("http://asr.test"))
	assert.Equal(t, 3, retry.MaxAttempts)
	assert.Equal(t, time.Millisecond, retry.InitialBackoff)
	assert.Equal(t, 5*time.Millisecond, retry.MaxBackoff)
}

func TestNewTranscriptionClient_MetricsFollowConfig(t *testing.T) {
	const metric = "transcription_client_requests_total"

	healthCheck := func(metricsEnabled bool, status int) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"status":"healthy"}`))
		}))
		defer server.Close()

		cfg := testConfig(server.URL)
		cfg.MetricsEnabled = metricsEnabled
		client, err := NewTranscriptionClient(cfg, zerolog.Nop())
		require.NoError(t, err)

		_, err = client.HealthCheck(context.Background())
		require.NoError(t, err)
	}

	// unusual 2xx codes give each call its own label series
	before, err := testutil.GatherAndCount(prometheus.DefaultGatherer, metric)
	require.NoError(t, err)

	healthCheck(false, 298)
	afterDisabled, err := testutil.GatherAndCount(prometheus.DefaultGatherer, metric)
	require.NoError(t, err)
	assert.Equal(t, before, afterDisabled)

	healthCheck(true, 297)
	afterEnabled, err := testutil.GatherAndCount(prometheus.DefaultGatherer, metric)
	require.NoError(t, err)
	assert.Equal(t, before+1, afterEnabled)
}
