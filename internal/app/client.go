// Package app holds wiring shared by the binaries.
package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/transcription-client/internal/config"
	"github.com/lexiqai/transcription-client/internal/observability"
	"github.com/lexiqai/transcription-client/internal/resilience"
	"github.com/lexiqai/transcription-client/pkg/transcription"
)

// NewTranscriptionClient builds the client for cfg, sending requests through
// the instrumented transport. Metrics are recorded only when cfg.MetricsEnabled.
func NewTranscriptionClient(cfg *config.Config, logger zerolog.Logger) (*transcription.Client, error) {
	client, err := transcription.New(cfg.TranscriptionAPIURL,
		transcription.WithTransport(observability.NewTransport(http.DefaultTransport, logger, cfg.MetricsEnabled)),
		transcription.WithTimeout(cfg.Timeout()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transcription client: %w", err)
	}
	return client, nil
}

// NewReadinessBreaker builds the breaker guarding readiness checks and
// mirrors its state into metrics and the log.
func NewReadinessBreaker(cfg *config.Config, name string, logger zerolog.Logger) *resilience.CircuitBreaker {
	breaker := resilience.NewCircuitBreaker(name, cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second)

	observability.UpdateCircuitBreakerState(name, int(resilience.StateClosed))
	breaker.OnStateChange(func(name string, from, to resilience.CircuitState) {
		observability.UpdateCircuitBreakerState(name, int(to))
		logger.Warn().
			Str("service", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("Circuit breaker state changed")
	})
	return breaker
}

// WaitRetryConfig builds the retry schedule for waiting on the service.
func WaitRetryConfig(cfg *config.Config) *resilience.RetryConfig {
	return &resilience.RetryConfig{
		MaxAttempts:       cfg.WaitMaxAttempts,
		InitialBackoff:    time.Duration(cfg.WaitInitialBackoff) * time.Millisecond,
		MaxBackoff:        time.Duration(cfg.WaitMaxBackoff) * time.Millisecond,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// IsTransient reports whether waiting longer may help: the service was
// unreachable or answered 5xx.
func IsTransient(err error) bool {
	if transcription.IsNetworkError(err) {
		return true
	}
	return transcription.StatusCode(err) >= http.StatusInternalServerError
}
