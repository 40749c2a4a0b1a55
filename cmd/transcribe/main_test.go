package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/lexiqai/transcription-client/pkg/transcription"
)

func setEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OUTPUT_FORMAT", "json")
	t.Setenv("TRANSCRIPTION_TIMEOUT", "0")
	t.Setenv("WAIT_MAX_ATTEMPTS", "5")
	t.Setenv("WAIT_INITIAL_BACKOFF", "1")
	t.Setenv("WAIT_MAX_BACKOFF", "5")
	t.Setenv("LOG_LEVEL", "error")
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestRun_Health(t *testing.T) {
	setEnv(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer server.Close()

	code, stdout, stderr := runCLI(t, "-url", server.URL, "health")
	require.Equal(t, exitOK, code, stderr)

	var status transcription.HealthStatus
	require.NoError(t, json.Unmarshal([]byte(stdout), &status))
	assert.Equal(t, "healthy", status.Status)
}

func TestRun_FileAsYAML(t *testing.T) {
	setEnv(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transcribe/", r.URL.Path)

		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		assert.Equal(t, "clip.wav", header.Filename)
		assert.Equal(t, "audio/wav", header.Header.Get("Content-Type"))

		_, _ = w.Write([]byte(`{"transcription":"hello world"}`))
	}))
	defer server.Close()

	path := writeTempFile(t, "clip.wav", []byte("RIFF not really"))
	code, stdout, stderr := runCLI(t, "-url", server.URL, "-output", "yaml", "file", path)
	require.Equal(t, exitOK, code, stderr)

	var result transcription.TranscriptionResult
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, "hello world", result.Transcription)
}

func TestRun_Batch(t *testing.T) {
	setEnv(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transcribe/batch", r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		files := r.MultipartForm.File["files"]
		if !assert.Len(t, files, 2) {
			return
		}
		assert.Equal(t, "a.mp3", files[0].Filename)
		assert.Equal(t, "b.flac", files[1].Filename)

		_, _ = w.Write([]byte(`{"transcriptions":[{"filename":"a.mp3","transcription":"one"},{"filename":"b.flac","transcription":"two"}],"count":2}`))
	}))
	defer server.Close()

	a := writeTempFile(t, "a.mp3", []byte("a"))
	b := writeTempFile(t, "b.flac", []byte("b"))
	code, stdout, stderr := runCLI(t, "-url", server.URL, "batch", a, b)
	require.Equal(t, exitOK, code, stderr)

	var result transcription.BatchTranscriptionResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, "two", result.Transcriptions[1].Transcription)
}

func TestRun_ApplicationError(t *testing.T) {
	setEnv(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Unsupported audio format"}`))
	}))
	defer server.Close()

	path := writeTempFile(t, "notes.txt", []byte("text"))
	code, stdout, stderr := runCLI(t, "-url", server.URL, "file", path)
	assert.Equal(t, exitError, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Error: Unsupported audio format")
}

func TestRun_NetworkError(t *testing.T) {
	setEnv(t)
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	code, _, stderr := runCLI(t, "-url", url, "performance")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, transcription.NetworkErrorMessage)
}

func TestRun_MissingFile(t *testing.T) {
	setEnv(t)
	code, _, stderr := runCLI(t, "file", filepath.Join(t.TempDir(), "missing.wav"))
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "failed to read audio file")
}

func TestRun_Wait(t *testing.T) {
	setEnv(t)
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer server.Close()

	code, stdout, stderr := runCLI(t, "-url", server.URL, "wait")
	require.Equal(t, exitOK, code, stderr)
	assert.Equal(t, int32(3), calls.Load())
	assert.Contains(t, stdout, "healthy")
}

func TestRun_WaitStopsOnClientError(t *testing.T) {
	setEnv(t)
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	code, _, stderr := runCLI(t, "-url", server.URL, "wait")
	assert.Equal(t, exitError, code)
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, stderr, "HTTP 404: Not Found")
}

func TestRun_WaitGivesUp(t *testing.T) {
	setEnv(t)
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	code, _, stderr := runCLI(t, "-url", server.URL, "-attempts", "2", "wait")
	assert.Equal(t, exitError, code)
	assert.Equal(t, int32(2), calls.Load())
	assert.Contains(t, stderr, "giving up after 2 attempts")
}

func TestRun_Usage(t *testing.T) {
	setEnv(t)
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"no command", nil, exitUsage},
		{"unknown command", []string{"translate"}, exitUsage},
		{"file without path", []string{"file"}, exitUsage},
		{"file with two paths", []string{"file", "a", "b"}, exitUsage},
		{"batch without paths", []string{"batch"}, exitUsage},
		{"health with args", []string{"health", "now"}, exitUsage},
		{"bad output format", []string{"-output", "xml", "health"}, exitUsage},
		{"unknown flag", []string{"-nope", "health"}, exitUsage},
		{"help", []string{"-h"}, exitOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, _ := runCLI(t, tt.args...)
			assert.Equal(t, tt.code, code)
			assert.Empty(t, stdout)
		})
	}
}

func TestRun_FlagsOverrideInvalidEnv(t *testing.T) {
	setEnv(t)
	t.Setenv("OUTPUT_FORMAT", "xml")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer server.Close()

	code, stdout, stderr := runCLI(t, "-url", server.URL, "-output", "json", "health")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, `"status": "healthy"`)

	code, stdout, stderr = runCLI(t, "-url", server.URL, "health")
	assert.Equal(t, exitUsage, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "OUTPUT_FORMAT must be json or yaml")
}

func TestRun_UnparsableEnvIsUsageError(t *testing.T) {
	setEnv(t)
	t.Setenv("TRANSCRIPTION_TIMEOUT", "soon")

	code, stdout, stderr := runCLI(t, "health")
	assert.Equal(t, exitUsage, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Failed to load configuration")
}

func TestWriteOutput(t *testing.T) {
	info := &transcription.PerformanceInfo{
		Status:      "ok",
		Performance: transcription.PerformanceDetails{Device: "cuda", MixedPrecision: "fp16", NumProcesses: 2},
		AudioConfig: transcription.AudioConfig{SampleRate: 16000, BufferDuration: 2},
	}

	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, "yaml", info))
	assert.Contains(t, buf.String(), "mixed_precision: fp16")
	assert.Contains(t, buf.String(), "sample_rate: 16000")

	buf.Reset()
	require.NoError(t, writeOutput(&buf, "json", info))
	assert.Contains(t, buf.String(), `"num_processes": 2`)
}
