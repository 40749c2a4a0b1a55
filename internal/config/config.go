package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the transcription CLI and probe server
type Config struct {
	// Transcription service
	TranscriptionAPIURL  string `envconfig:"TRANSCRIPTION_API_URL" default:"http://localhost:8000"`
	TranscriptionTimeout int    `envconfig:"TRANSCRIPTION_TIMEOUT" default:"0"` // seconds, 0 leaves it to the transport

	// CLI output: json or yaml
	OutputFormat string `envconfig:"OUTPUT_FORMAT" default:"json"`

	// Waiting for the service to come up
	WaitMaxAttempts    int `envconfig:"WAIT_MAX_ATTEMPTS" default:"10"`
	WaitInitialBackoff int `envconfig:"WAIT_INITIAL_BACKOFF" default:"250"` // milliseconds
	WaitMaxBackoff     int `envconfig:"WAIT_MAX_BACKOFF" default:"5000"`    // milliseconds

	// Probe server
	ProbePort         string   `envconfig:"PROBE_PORT" default:"8081"`
	ProbeCheckTimeout int      `envconfig:"PROBE_CHECK_TIMEOUT" default:"5"` // seconds
	ProbeCORSOrigins  []string `envconfig:"PROBE_CORS_ORIGINS" default:"*"`

	// Readiness circuit breaker
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"3"`
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"15"` // seconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Instrument requests and serve /metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without Validate, for callers that override fields (such as
// command-line flags) before validating
func Read() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return process()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	cfg, err := process()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func process() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot
func (c *Config) Validate() error {
	if c.TranscriptionAPIURL == "" {
		return fmt.Errorf("TRANSCRIPTION_API_URL must not be empty")
	}
	if c.OutputFormat != "json" && c.OutputFormat != "yaml" {
		return fmt.Errorf("OUTPUT_FORMAT must be json or yaml, got %q", c.OutputFormat)
	}
	if c.TranscriptionTimeout < 0 {
		return fmt.Errorf("TRANSCRIPTION_TIMEOUT must not be negative")
	}
	if c.WaitMaxAttempts <= 0 {
		return fmt.Errorf("WAIT_MAX_ATTEMPTS must be positive")
	}
	if c.CircuitBreakerMaxFailures <= 0 {
		return fmt.Errorf("CIRCUIT_BREAKER_MAX_FAILURES must be positive")
	}
	return nil
}

// Timeout returns the per-request timeout for the transcription client
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TranscriptionTimeout) * time.Second
}
