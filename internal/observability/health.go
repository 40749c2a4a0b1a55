package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthStatus represents the health status of the service
type HealthStatus struct {
	Status       string                      `json:"status"`
	Service      string                      `json:"service"`
	Version      string                      `json:"version"`
	Timestamp    string                      `json:"timestamp"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the status of a dependency
type DependencyStatus struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

// Version is reported by the health and readiness handlers
const Version = "1.0.0"

// HealthCheckFunc reports whether a dependency is usable
type HealthCheckFunc func(ctx context.Context) (bool, error)

// HealthCheckHandler handles health check requests
func HealthCheckHandler(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, HealthStatus{
			Status:    "healthy",
			Service:   service,
			Version:   Version,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// ReadinessHandler runs every named check concurrently, each bounded by
// timeout, and answers 503 unless all of them pass.
func ReadinessHandler(service string, checks map[string]HealthCheckFunc, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		var (
			mu           sync.Mutex
			wg           sync.WaitGroup
			dependencies = make(map[string]DependencyStatus, len(checks))
			allHealthy   = true
		)

		for name, check := range checks {
			wg.Add(1)
			go func(name string, check HealthCheckFunc) {
				defer wg.Done()

				start := time.Now()
				healthy, err := check(ctx)
				dep := DependencyStatus{
					Status:    "healthy",
					LatencyMs: time.Since(start).Milliseconds(),
				}
				if err != nil || !healthy {
					dep.Status = "unhealthy"
					if err != nil {
						dep.Message = err.Error()
					}
				}
				RecordDependencyCheck(name, dep.Status == "healthy")

				mu.Lock()
				dependencies[name] = dep
				if dep.Status != "healthy" {
					allHealthy = false
				}
				mu.Unlock()
			}(name, check)
		}
		wg.Wait()

		status := HealthStatus{
			Status:       "ready",
			Service:      service,
			Version:      Version,
			Timestamp:    time.Now().UTC().Format(time.RFC3339),
			Dependencies: dependencies,
		}

		code := http.StatusOK
		if !allHealthy {
			status.Status = "not_ready"
			code = http.StatusServiceUnavailable
		}
		writeStatus(w, code, status)
	}
}

func writeStatus(w http.ResponseWriter, code int, status HealthStatus) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}
