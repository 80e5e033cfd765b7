package audio

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
)

// AiffDecoder handles AIFF audio format decoding
type AiffDecoder struct{}

// NewAiffDecoder creates a new AIFF decoder instance
func NewAiffDecoder() *AiffDecoder {
	return &AiffDecoder{}
}

// FormatName returns the name of the format this decoder handles
func (d *AiffDecoder) FormatName() string {
	return "AIFF"
}

// CanDecode checks if this decoder can handle the given filename
func (d *AiffDecoder) CanDecode(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".aiff") || strings.HasSuffix(lower, ".aif")
}

// Decode reads AIFF audio data from reader and returns little-endian PCM
func (d *AiffDecoder) Decode(reader io.Reader) (*AudioData, error) {
	// go-audio/aiff needs a ReadSeeker
	data, err := io.ReadAll(reader)
	if err != nil {
		slog.Error("failed to read AIFF data", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrReadFailure, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty AIFF data", ErrInvalidData)
	}

	decoder := aiff.NewDecoder(bytes.NewReader(data))
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		slog.Error("invalid AIFF file format")
		return nil, fmt.Errorf("%w: not an AIFF stream", ErrInvalidData)
	}

	sampleRate := uint32(decoder.SampleRate)
	channels := uint32(decoder.NumChans)
	bitDepth := int(decoder.SampleBitDepth())
	if channels == 0 || sampleRate == 0 {
		slog.Error("invalid AIFF format parameters",
			"channels", channels,
			"sample_rate", sampleRate,
			"bit_depth", bitDepth)
		return nil, fmt.Errorf("%w: zero channels or sample rate", ErrInvalidData)
	}

	sampleFormat, err := formatForBitDepth(bitDepth)
	if err != nil {
		slog.Error("unsupported AIFF bit depth", "bits", bitDepth)
		return nil, err
	}

	buffer, err := decoder.FullPCMBuffer()
	if err != nil {
		slog.Error("failed to read AIFF samples", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrReadFailure, err)
	}
	if buffer == nil || len(buffer.Data) == 0 {
		return nil, fmt.Errorf("%w: no samples in AIFF data", ErrInvalidData)
	}

	audioData := &AudioData{
		Samples:    intBufferToPCM(buffer, sampleFormat.BytesPerSample()),
		Channels:   channels,
		SampleRate: sampleRate,
		Format:     sampleFormat,
	}

	slog.Debug("AIFF decode completed",
		"samples", len(buffer.Data),
		"channels", audioData.Channels,
		"sample_rate", audioData.SampleRate,
		"format", sampleFormat,
		"duration", audioData.Duration())

	return audioData, nil
}

// intBufferToPCM flattens a go-audio buffer into little-endian samples of width bytes
func intBufferToPCM(buffer *audio.IntBuffer, width int) []byte {
	pcm := make([]byte, 0, len(buffer.Data)*width)
	for _, sample := range buffer.Data {
		pcm = appendSample(pcm, sample, width)
	}
	return pcm
}
