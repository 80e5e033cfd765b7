package audio

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hajimehoshi/go-mp3"
)

// Mp3Decoder handles MP3 audio format decoding
type Mp3Decoder struct{}

// NewMp3Decoder creates a new MP3 decoder instance
func NewMp3Decoder() *Mp3Decoder {
	return &Mp3Decoder{}
}

// Decode reads MP3 audio data from reader and returns decoded PCM data.
// go-mp3 always produces 16-bit signed stereo.
func (d *Mp3Decoder) Decode(reader io.Reader) (*AudioData, error) {
	decoder, err := mp3.NewDecoder(reader)
	if err != nil {
		slog.Error("failed to create MP3 decoder", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}

	sampleRate := decoder.SampleRate()
	if sampleRate <= 0 {
		slog.Error("invalid MP3 sample rate", "sample_rate", sampleRate)
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidData, sampleRate)
	}

	// Length is -1 when the source is not seekable
	var pcm []byte
	if length := decoder.Length(); length > 0 {
		pcm = make([]byte, 0, length)
	}

	buf := make([]byte, 4096)
	for {
		n, err := decoder.Read(buf)
		pcm = append(pcm, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			slog.Error("failed to read MP3 PCM data", "error", err, "bytes_read", len(pcm))
			return nil, fmt.Errorf("%w: %w", ErrReadFailure, err)
		}
		if n == 0 {
			break
		}
	}

	if len(pcm) == 0 {
		return nil, fmt.Errorf("%w: no samples in MP3 data", ErrInvalidData)
	}

	audioData := &AudioData{
		Samples:    pcm,
		Channels:   2,
		SampleRate: uint32(sampleRate),
		Format:     FormatS16,
	}

	slog.Debug("MP3 decode completed",
		"total_bytes", len(pcm),
		"sample_rate", audioData.SampleRate,
		"duration", audioData.Duration())

	return audioData, nil
}

// CanDecode checks if this decoder can handle the given filename
func (d *Mp3Decoder) CanDecode(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".mp3") || strings.HasSuffix(lower, ".mpeg")
}

// FormatName returns the name of the format this decoder handles
func (d *Mp3Decoder) FormatName() string {
	return "MP3"
}
