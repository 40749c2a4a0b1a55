// Command transcribe sends audio files to a transcription service and prints
// the results.
//
// Usage:
//
//	transcribe [flags] file PATH
//	transcribe [flags] batch PATH...
//	transcribe [flags] performance
//	transcribe [flags] health
//	transcribe [flags] wait
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/lexiqai/transcription-client/internal/app"
	"github.com/lexiqai/transcription-client/internal/audio"
	"github.com/lexiqai/transcription-client/internal/config"
	"github.com/lexiqai/transcription-client/internal/observability"
	"github.com/lexiqai/transcription-client/internal/resilience"
	"github.com/lexiqai/transcription-client/pkg/transcription"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

const usage = `Usage: transcribe [flags] <command> [args]

Commands:
  file PATH          transcribe a single audio file
  batch PATH...      transcribe several files in one request
  performance        show the service's runtime configuration
  health             check the service's health endpoint
  wait               poll health until the service is up

Flags:
`

var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type cli struct {
	client *transcription.Client
	cfg    *config.Config
	logger zerolog.Logger
	stdout io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	// validated after flags are applied
	cfg, err := config.Read()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return exitUsage
	}

	flags := flag.NewFlagSet("transcribe", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprint(stderr, usage)
		flags.PrintDefaults()
	}
	flags.StringVar(&cfg.TranscriptionAPIURL, "url", cfg.TranscriptionAPIURL, "transcription service base URL")
	flags.StringVar(&cfg.OutputFormat, "output", cfg.OutputFormat, "output format: json or yaml")
	flags.IntVar(&cfg.TranscriptionTimeout, "timeout", cfg.TranscriptionTimeout, "request timeout in seconds, 0 for none")
	flags.IntVar(&cfg.WaitMaxAttempts, "attempts", cfg.WaitMaxAttempts, "health checks made by wait before giving up")
	verbose := flags.Bool("v", false, "log requests to stderr")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	level := cfg.LogLevel
	if *verbose {
		level = "debug"
	}
	logger := observability.WithCorrelationID(observability.NewLogger(stderr, level, cfg.LogPretty), "")

	client, err := app.NewTranscriptionClient(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	c := &cli{client: client, cfg: cfg, logger: logger, stdout: stdout}
	if err := c.dispatch(ctx, flags.Args()); err != nil {
		if errors.Is(err, errUsage) {
			flags.Usage()
			return exitUsage
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	return exitOK
}

func (c *cli) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	command, rest := args[0], args[1:]
	switch command {
	case "file":
		if len(rest) != 1 {
			return errUsage
		}
		return c.transcribeFile(ctx, rest[0])
	case "batch":
		if len(rest) == 0 {
			return errUsage
		}
		return c.transcribeBatch(ctx, rest)
	case "performance":
		if len(rest) != 0 {
			return errUsage
		}
		info, err := c.client.GetPerformanceInfo(ctx)
		if err != nil {
			return err
		}
		return c.print(info)
	case "health":
		if len(rest) != 0 {
			return errUsage
		}
		status, err := c.client.HealthCheck(ctx)
		if err != nil {
			return err
		}
		return c.print(status)
	case "wait":
		if len(rest) != 0 {
			return errUsage
		}
		return c.wait(ctx)
	default:
		return errUsage
	}
}

func (c *cli) transcribeFile(ctx context.Context, path string) error {
	file, summary, err := audio.LoadFile(path)
	if err != nil {
		return err
	}
	c.logFile(summary)

	start := time.Now()
	result, err := c.client.TranscribeFile(ctx, file)
	if err != nil {
		return err
	}
	c.logger.Debug().Dur("latency", time.Since(start)).Msg("Transcription complete")

	return c.print(result)
}

func (c *cli) transcribeBatch(ctx context.Context, paths []string) error {
	files, summaries, err := audio.LoadFiles(paths)
	if err != nil {
		return err
	}
	for _, summary := range summaries {
		c.logFile(summary)
	}

	start := time.Now()
	result, err := c.client.TranscribeBatch(ctx, files)
	if err != nil {
		return err
	}
	if err := result.Validate(); err != nil {
		c.logger.Warn().Err(err).Msg("Batch response is inconsistent")
	}
	c.logger.Debug().
		Int("count", result.Count).
		Dur("latency", time.Since(start)).
		Msg("Batch transcription complete")

	return c.print(result)
}

func (c *cli) wait(ctx context.Context) error {
	retryConfig := app.WaitRetryConfig(c.cfg)
	retryConfig.OnRetry = func(attempt int, err error, backoff time.Duration) {
		c.logger.Info().
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Str("error", err.Error()).
			Msg("Transcription service not ready, retrying")
	}

	var status *transcription.HealthStatus
	err := resilience.Retry(ctx, func(ctx context.Context) error {
		var err error
		status, err = c.client.HealthCheck(ctx)
		return err
	}, retryConfig, app.IsTransient)
	if err != nil {
		return err
	}
	return c.print(status)
}

func (c *cli) logFile(summary audio.Summary) {
	event := c.logger.Debug().
		Str("file", summary.Name).
		Int("size", summary.Size).
		Str("content_type", summary.ContentType)
	if summary.SampleRate > 0 {
		event = event.
			Uint32("sample_rate", summary.SampleRate).
			Uint16("channels", summary.Channels).
			Dur("duration", summary.Duration)
	}
	event.Msg("Loaded audio file")
}

func (c *cli) print(v any) error {
	return writeOutput(c.stdout, c.cfg.OutputFormat, v)
}

func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		return nil
	}
}
