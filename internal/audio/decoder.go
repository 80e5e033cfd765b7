package audio

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// Common decoder errors
var (
	ErrInvalidData       = errors.New("invalid audio data")
	ErrReadFailure       = errors.New("failed to read audio data")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// SampleFormat is the encoding of one PCM sample
type SampleFormat int

const (
	FormatUnknown SampleFormat = iota
	FormatU8
	FormatS16
	FormatS24
	FormatS32
	FormatF32
)

func (f SampleFormat) String() string {
	switch f {
	case FormatU8:
		return "u8"
	case FormatS16:
		return "s16"
	case FormatS24:
		return "s24"
	case FormatS32:
		return "s32"
	case FormatF32:
		return "f32"
	default:
		return fmt.Sprintf("SampleFormat(%d)", int(f))
	}
}

// BytesPerSample returns the size of one sample of one channel
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case FormatU8:
		return 1
	case FormatS16:
		return 2
	case FormatS24:
		return 3
	case FormatS32, FormatF32:
		return 4
	default:
		return 0
	}
}

// formatForBitDepth maps an integer PCM bit depth onto a SampleFormat
func formatForBitDepth(bits int) (SampleFormat, error) {
	switch bits {
	case 16:
		return FormatS16, nil
	case 24:
		return FormatS24, nil
	case 32:
		return FormatS32, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %d-bit samples", ErrUnsupportedFormat, bits)
	}
}

// AudioData represents decoded audio ready for playback
type AudioData struct {
	Samples    []byte // Raw interleaved little-endian PCM
	Channels   uint32
	SampleRate uint32
	Format     SampleFormat
}

// BytesPerFrame returns the size of one interleaved frame
func (a *AudioData) BytesPerFrame() int {
	return int(a.Channels) * a.Format.BytesPerSample()
}

// BytesPerSecond returns the PCM data rate
func (a *AudioData) BytesPerSecond() int {
	return a.BytesPerFrame() * int(a.SampleRate)
}

// Duration returns the playback length of the samples
func (a *AudioData) Duration() time.Duration {
	return bytesToDuration(len(a.Samples), a.BytesPerSecond())
}

func bytesToDuration(n, bytesPerSecond int) time.Duration {
	if bytesPerSecond <= 0 {
		return 0
	}
	return time.Duration(int64(n) * int64(time.Second) / int64(bytesPerSecond))
}

// Decoder interface for audio format decoding
type Decoder interface {
	// Decode reads audio data from reader and returns decoded PCM data
	Decode(reader io.Reader) (*AudioData, error)

	// CanDecode checks if this decoder can handle the given filename
	CanDecode(filename string) bool

	// FormatName returns the name of the format this decoder handles
	FormatName() string
}
