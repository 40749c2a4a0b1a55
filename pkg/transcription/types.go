package transcription

import (
	"bytes"
	"fmt"
	"io"
)

// File is a single audio payload uploaded as one multipart part.
type File struct {
	// Name is sent as the part's filename
	Name string

	// ContentType is the part's Content-Type; empty means application/octet-stream
	ContentType string

	// Data is read once, when the request body is built
	Data io.Reader
}

// NewFile wraps an in-memory audio payload.
func NewFile(name string, data []byte) File {
	return File{Name: name, Data: bytes.NewReader(data)}
}

// TranscriptionResult is returned by the single-file endpoint
type TranscriptionResult struct {
	Transcription string `json:"transcription" yaml:"transcription"`
}

// FileTranscription is one entry of a batch result
type FileTranscription struct {
	Filename      string `json:"filename" yaml:"filename"`
	Transcription string `json:"transcription" yaml:"transcription"`
}

// BatchTranscriptionResult is returned by the batch endpoint.
// Count is expected to equal len(Transcriptions); the client does not enforce it.
type BatchTranscriptionResult struct {
	Transcriptions []FileTranscription `json:"transcriptions" yaml:"transcriptions"`
	Count          int                 `json:"count" yaml:"count"`
}

// Validate reports a mismatch between Count and the number of entries.
func (r *BatchTranscriptionResult) Validate() error {
	if r.Count != len(r.Transcriptions) {
		return fmt.Errorf("batch result count %d does not match %d transcriptions", r.Count, len(r.Transcriptions))
	}
	return nil
}

// PerformanceInfo describes how the service is running
type PerformanceInfo struct {
	Status      string             `json:"status" yaml:"status"`
	Performance PerformanceDetails `json:"performance" yaml:"performance"`
	AudioConfig AudioConfig        `json:"audio_config" yaml:"audio_config"`
}

// PerformanceDetails holds the inference device settings
type PerformanceDetails struct {
	Device         string `json:"device" yaml:"device"`
	MixedPrecision string `json:"mixed_precision" yaml:"mixed_precision"`
	NumProcesses   int    `json:"num_processes" yaml:"num_processes"`
}

// AudioConfig holds the service's audio pipeline settings
type AudioConfig struct {
	SampleRate     int     `json:"sample_rate" yaml:"sample_rate"`
	BufferDuration float64 `json:"buffer_duration" yaml:"buffer_duration"`
}

// HealthStatus is returned by the health endpoint
type HealthStatus struct {
	Status string `json:"status" yaml:"status"`
}
