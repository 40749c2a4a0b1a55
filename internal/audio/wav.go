package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrNotWAV is returned when the data does not start with a RIFF/WAVE header
var ErrNotWAV = errors.New("not a RIFF/WAVE file")

// WAVInfo describes the stream stored in a WAV file
type WAVInfo struct {
	AudioFormat   uint16 // 1 for PCM
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
	DataSize      uint32
	Duration      time.Duration
}

type chunkHeader struct {
	ID   [4]byte
	Size uint32
}

type fmtChunk struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// ReadWAVInfo walks the RIFF chunks of r up to the data chunk.
// The audio samples themselves are not read.
func ReadWAVInfo(r io.Reader) (WAVInfo, error) {
	var riff struct {
		ID     [4]byte
		Size   uint32
		Format [4]byte
	}
	if err := binary.Read(r, binary.LittleEndian, &riff); err != nil {
		return WAVInfo{}, fmt.Errorf("%w: %v", ErrNotWAV, err)
	}
	if string(riff.ID[:]) != "RIFF" || string(riff.Format[:]) != "WAVE" {
		return WAVInfo{}, ErrNotWAV
	}

	var (
		info    WAVInfo
		haveFmt bool
	)
	for {
		var chunk chunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			return WAVInfo{}, fmt.Errorf("failed to read chunk header: %w", err)
		}

		switch string(chunk.ID[:]) {
		case "fmt ":
			if chunk.Size < 16 {
				return WAVInfo{}, fmt.Errorf("fmt chunk too short: %d bytes", chunk.Size)
			}
			var f fmtChunk
			if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
				return WAVInfo{}, fmt.Errorf("failed to read fmt chunk: %w", err)
			}
			if err := skip(r, int64(chunk.Size)-16+int64(chunk.Size%2)); err != nil {
				return WAVInfo{}, err
			}
			info.AudioFormat = f.AudioFormat
			info.Channels = f.NumChannels
			info.SampleRate = f.SampleRate
			info.BitsPerSample = f.BitsPerSample
			haveFmt = true

		case "data":
			if !haveFmt {
				return WAVInfo{}, fmt.Errorf("data chunk before fmt chunk")
			}
			info.DataSize = chunk.Size
			bytesPerSecond := uint64(info.SampleRate) * uint64(info.Channels) * uint64(info.BitsPerSample) / 8
			if bytesPerSecond > 0 {
				info.Duration = time.Duration(uint64(chunk.Size) * uint64(time.Second) / bytesPerSecond)
			}
			return info, nil

		default:
			// LIST, fact, bext and friends; chunks are word aligned
			if err := skip(r, int64(chunk.Size)+int64(chunk.Size%2)); err != nil {
				return WAVInfo{}, err
			}
		}
	}
}

func skip(r io.Reader, n int64) error {
	if n <= 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		return fmt.Errorf("failed to skip %d bytes: %w", n, err)
	}
	return nil
}
