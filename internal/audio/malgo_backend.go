//go:build cgo

package audio

import (
	"fmt"
	"log/slog"

	"github.com/gen2brain/malgo"
)

// MalgoBackend renders through a miniaudio playback device. The device is
// re-initialized whenever a source with a different format is opened.
type MalgoBackend struct {
	ctx    *Context
	device *malgo.Device
}

// NewMalgoBackend initializes the audio context
func NewMalgoBackend() (*MalgoBackend, error) {
	ctx, err := NewContext()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendNotAvailable, err)
	}
	return &MalgoBackend{ctx: ctx}, nil
}

func (b *MalgoBackend) Name() string {
	return "malgo"
}

// Open initializes a playback device for data's format
func (b *MalgoBackend) Open(data *AudioData, pull func([]byte) int) error {
	if !b.ctx.IsValid() {
		return ErrBackendClosed
	}

	format, err := malgoFormat(data.Format)
	if err != nil {
		return err
	}

	b.releaseDevice()

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = format
	config.Playback.Channels = data.Channels
	config.SampleRate = data.SampleRate
	config.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(output, _ []byte, _ uint32) {
			pull(output)
		},
	}

	device, err := malgo.InitDevice(b.ctx.GetContext().Context, config, callbacks)
	if err != nil {
		slog.Error("failed to initialize playback device",
			"format", data.Format,
			"channels", data.Channels,
			"sample_rate", data.SampleRate,
			"error", err)
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	b.device = device
	slog.Debug("playback device initialized",
		"format", data.Format,
		"channels", data.Channels,
		"sample_rate", data.SampleRate)
	return nil
}

func (b *MalgoBackend) Start() error {
	if b.device == nil {
		return ErrBackendNotAvailable
	}
	if b.device.IsStarted() {
		return nil
	}
	return b.device.Start()
}

func (b *MalgoBackend) Stop() error {
	if b.device == nil || !b.device.IsStarted() {
		return nil
	}
	return b.device.Stop()
}

// Close releases the device and the context
func (b *MalgoBackend) Close() error {
	b.releaseDevice()
	return b.ctx.Close()
}

func (b *MalgoBackend) releaseDevice() {
	if b.device == nil {
		return
	}
	if b.device.IsStarted() {
		if err := b.device.Stop(); err != nil {
			slog.Warn("failed to stop playback device", "error", err)
		}
	}
	b.device.Uninit()
	b.device = nil
}

func malgoFormat(format SampleFormat) (malgo.FormatType, error) {
	switch format {
	case FormatU8:
		return malgo.FormatU8, nil
	case FormatS16:
		return malgo.FormatS16, nil
	case FormatS24:
		return malgo.FormatS24, nil
	case FormatS32:
		return malgo.FormatS32, nil
	case FormatF32:
		return malgo.FormatF32, nil
	default:
		return malgo.FormatUnknown, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
