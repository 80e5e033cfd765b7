package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/youpy/go-wav"
)

// WavDecoder handles WAV audio format decoding
type WavDecoder struct{}

// NewWavDecoder creates a new WAV decoder instance
func NewWavDecoder() *WavDecoder {
	return &WavDecoder{}
}

// Decode reads WAV audio data from reader and returns decoded PCM data
func (d *WavDecoder) Decode(reader io.Reader) (*AudioData, error) {
	// youpy/go-wav needs a ReadSeeker
	data, err := io.ReadAll(reader)
	if err != nil {
		slog.Error("failed to read WAV data", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrReadFailure, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty WAV data", ErrInvalidData)
	}

	wavReader := wav.NewReader(bytes.NewReader(data))
	format, err := wavReader.Format()
	if err != nil {
		slog.Error("failed to read WAV format", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	if format.NumChannels == 0 || format.SampleRate == 0 {
		slog.Error("invalid WAV format parameters",
			"channels", format.NumChannels,
			"sample_rate", format.SampleRate)
		return nil, fmt.Errorf("%w: zero channels or sample rate", ErrInvalidData)
	}

	sampleFormat, err := formatForBitDepth(int(format.BitsPerSample))
	if err != nil {
		slog.Error("unsupported WAV bit depth", "bits", format.BitsPerSample)
		return nil, err
	}

	channels := int(format.NumChannels)
	width := sampleFormat.BytesPerSample()
	var pcm []byte
	frames := 0

	for {
		samples, err := wavReader.ReadSamples()
		if len(samples) > 0 {
			frames += len(samples)
			for _, sample := range samples {
				for ch := range channels {
					val := 0
					if ch < len(sample.Values) {
						val = sample.Values[ch]
					}
					pcm = appendSample(pcm, val, width)
				}
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			slog.Error("failed to read WAV samples", "error", err, "frames_read", frames)
			return nil, fmt.Errorf("%w: %w", ErrReadFailure, err)
		}
		if len(samples) == 0 {
			break
		}
	}

	if len(pcm) == 0 {
		return nil, fmt.Errorf("%w: no samples in WAV data", ErrInvalidData)
	}

	audioData := &AudioData{
		Samples:    pcm,
		Channels:   uint32(channels),
		SampleRate: format.SampleRate,
		Format:     sampleFormat,
	}

	slog.Debug("WAV decode completed",
		"frames", frames,
		"channels", audioData.Channels,
		"sample_rate", audioData.SampleRate,
		"format", sampleFormat,
		"duration", audioData.Duration())

	return audioData, nil
}

// appendSample writes the low width bytes of val little-endian
func appendSample(dst []byte, val, width int) []byte {
	for i := range width {
		dst = append(dst, byte(val>>(8*i)))
	}
	return dst
}

// CanDecode checks if this decoder can handle the given filename
func (d *WavDecoder) CanDecode(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".wav") || strings.HasSuffix(lower, ".wave")
}

// FormatName returns the name of the format this decoder handles
func (d *WavDecoder) FormatName() string {
	return "WAV"
}
