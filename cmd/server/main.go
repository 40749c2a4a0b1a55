package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lexiqai/transcription-client/internal/app"
	"github.com/lexiqai/transcription-client/internal/config"
	"github.com/lexiqai/transcription-client/internal/observability"
	"github.com/lexiqai/transcription-client/internal/probe"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.ProbePort).
		Str("transcription_api_url", cfg.TranscriptionAPIURL).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Transcription probe starting")

	client, err := app.NewTranscriptionClient(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create transcription client")
	}

	breaker := app.NewReadinessBreaker(cfg, probe.DependencyName, logger)

	router := probe.NewRouter(client, breaker, probe.Config{
		CheckTimeout:   time.Duration(cfg.ProbeCheckTimeout) * time.Second,
		CORSOrigins:    cfg.ProbeCORSOrigins,
		MetricsEnabled: cfg.MetricsEnabled,
	}, logger)

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.ProbePort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().Str("port", cfg.ProbePort).Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}
