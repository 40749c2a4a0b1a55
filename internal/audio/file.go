// Package audio turns audio files on disk into transcription payloads.
// Nothing here decides what the service accepts; files are sent as read.
package audio

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lexiqai/transcription-client/pkg/transcription"
)

// sniffLen is how much of a file http.DetectContentType looks at
const sniffLen = 512

var contentTypes = map[string]string{
	".wav":  "audio/wav",
	".wave": "audio/wav",
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/opus",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".webm": "audio/webm",
	".mp4":  "video/mp4",
}

// DetectContentType picks a Content-Type from the file extension, then from
// the leading bytes.
func DetectContentType(name string, head []byte) string {
	ext := strings.ToLower(filepath.Ext(name))
	if contentType, ok := contentTypes[ext]; ok {
		return contentType
	}
	if contentType := mime.TypeByExtension(ext); strings.HasPrefix(contentType, "audio/") {
		return contentType
	}
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	return http.DetectContentType(head)
}

// Summary describes a loaded file for verbose CLI output
type Summary struct {
	Name        string        `json:"name" yaml:"name"`
	Size        int           `json:"size" yaml:"size"`
	ContentType string        `json:"content_type" yaml:"content_type"`
	SampleRate  uint32        `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
	Channels    uint16        `json:"channels,omitempty" yaml:"channels,omitempty"`
	Duration    time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// LoadFile reads path into memory as a transcription.File named after its base name.
func LoadFile(path string) (transcription.File, Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return transcription.File{}, Summary{}, fmt.Errorf("failed to read audio file: %w", err)
	}

	name := filepath.Base(path)
	file := transcription.NewFile(name, data)
	file.ContentType = DetectContentType(name, data)

	summary := Summary{
		Name:        name,
		Size:        len(data),
		ContentType: file.ContentType,
	}
	if info, err := ReadWAVInfo(bytes.NewReader(data)); err == nil {
		summary.SampleRate = info.SampleRate
		summary.Channels = info.Channels
		summary.Duration = info.Duration
	}

	return file, summary, nil
}

// LoadFiles loads paths in order, stopping at the first failure.
func LoadFiles(paths []string) ([]transcription.File, []Summary, error) {
	files := make([]transcription.File, 0, len(paths))
	summaries := make([]Summary, 0, len(paths))

	for _, path := range paths {
		file, summary, err := LoadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		files = append(files, file)
		summaries = append(summaries, summary)
	}
	return files, summaries, nil
}
