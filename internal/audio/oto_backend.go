//go:build cgo

package audio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process; its format is fixed by the first open
var shared struct {
	once       sync.Once
	ctx        *oto.Context
	sampleRate int
	channels   int
	err        error
}

func otoContext(sampleRate, channels int) (*oto.Context, error) {
	shared.once.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			shared.err = fmt.Errorf("%w: %w", ErrBackendNotAvailable, err)
			return
		}
		<-ready

		shared.ctx = ctx
		shared.sampleRate = sampleRate
		shared.channels = channels
		slog.Debug("oto context initialized", "sample_rate", sampleRate, "channels", channels)
	})

	if shared.err != nil {
		return nil, shared.err
	}
	if shared.sampleRate != sampleRate || shared.channels != channels {
		return nil, fmt.Errorf("%w: oto output is fixed at %d Hz, %d channels",
			ErrUnsupportedFormat, shared.sampleRate, shared.channels)
	}
	return shared.ctx, nil
}

// pullReader adapts a pull callback to the io.Reader oto players consume.
// It never reports EOF; the sink pauses the player when the source ends.
type pullReader func([]byte) int

func (p pullReader) Read(dst []byte) (int, error) {
	p(dst)
	return len(dst), nil
}

// OtoBackend renders 16-bit PCM through an oto player
type OtoBackend struct {
	player *oto.Player
}

// NewOtoBackend creates a backend; the oto context is created on first Open
func NewOtoBackend() (*OtoBackend, error) {
	return &OtoBackend{}, nil
}

func (b *OtoBackend) Name() string {
	return "oto"
}

func (b *OtoBackend) Open(data *AudioData, pull func([]byte) int) error {
	if data.Format != FormatS16 {
		return fmt.Errorf("%w: oto renders s16 only, got %s", ErrUnsupportedFormat, data.Format)
	}

	ctx, err := otoContext(int(data.SampleRate), int(data.Channels))
	if err != nil {
		return err
	}

	b.releasePlayer()
	b.player = ctx.NewPlayer(pullReader(pull))
	return nil
}

func (b *OtoBackend) Start() error {
	if b.player == nil {
		return ErrBackendNotAvailable
	}
	b.player.Play()
	return nil
}

func (b *OtoBackend) Stop() error {
	if b.player == nil {
		return nil
	}
	b.player.Pause()
	return nil
}

// Close releases the player. The shared oto context lives for the process.
func (b *OtoBackend) Close() error {
	b.releasePlayer()
	return nil
}

func (b *OtoBackend) releasePlayer() {
	if b.player == nil {
		return
	}
	b.player.Pause()
	if err := b.player.Close(); err != nil {
		slog.Warn("failed to close oto player", "error", err)
	}
	b.player = nil
}
