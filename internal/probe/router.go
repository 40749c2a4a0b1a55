// Package probe serves health, readiness and performance endpoints that
// reflect the state of a remote transcription service, for orchestrators and
// dashboards that cannot call the service directly.
package probe

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lexiqai/transcription-client/internal/observability"
	"github.com/lexiqai/transcription-client/internal/resilience"
	"github.com/lexiqai/transcription-client/pkg/transcription"
)

// ServiceName is reported by /health and /ready
const ServiceName = "transcription-probe"

// DependencyName labels the transcription service in readiness output and metrics
const DependencyName = "transcription_api"

// Backend is the part of transcription.Client the probe uses
type Backend interface {
	HealthCheck(ctx context.Context) (*transcription.HealthStatus, error)
	GetPerformanceInfo(ctx context.Context) (*transcription.PerformanceInfo, error)
}

// Config controls the probe router
type Config struct {
	CheckTimeout   time.Duration
	CORSOrigins    []string
	MetricsEnabled bool
}

// NewRouter builds the probe's HTTP routes. breaker guards readiness checks
// so a down service is reported without a request per probe.
func NewRouter(backend Backend, breaker *resilience.CircuitBreaker, cfg Config, logger zerolog.Logger) *chi.Mux {
	router := chi.NewRouter()

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", observability.RequestIDHeader},
		MaxAge:         300,
	}))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(requestLogger(logger))

	router.Get("/health", observability.HealthCheckHandler(ServiceName))
	router.Get("/ready", observability.ReadinessHandler(ServiceName, map[string]observability.HealthCheckFunc{
		DependencyName: BackendCheck(backend, breaker),
	}, cfg.CheckTimeout))
	router.Get("/performance", performanceHandler(backend, logger))

	if cfg.MetricsEnabled {
		router.Handle("/metrics", promhttp.Handler())
	}

	return router
}

// BackendCheck reports the service healthy when its health endpoint answers 2xx.
func BackendCheck(backend Backend, breaker *resilience.CircuitBreaker) observability.HealthCheckFunc {
	return func(ctx context.Context) (bool, error) {
		err := breaker.Call(func() error {
			_, err := backend.HealthCheck(ctx)
			return err
		})
		if err != nil {
			return false, err
		}
		return true, nil
	}
}

func performanceHandler(backend Backend, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := backend.GetPerformanceInfo(r.Context())
		if err != nil {
			code := http.StatusInternalServerError
			if _, ok := transcription.AsError(err); ok {
				code = http.StatusBadGateway
			}
			logger.Warn().
				Err(err).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("Failed to fetch performance info")
			writeJSON(w, code, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Debug().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("latency", time.Since(start)).
				Msg("Probe request")
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
