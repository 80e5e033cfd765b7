package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/spf13/afero"

	"audiochan.click/internal/channel"
)

// DefaultDuckLevel is the gain applied while a source is ducked
const DefaultDuckLevel float32 = 0.2

// Sink implements channel.AudioSink on top of an OutputBackend.
//
// Locator sources are decoded synchronously in Prepare so missing or
// undecodable files fail fast. Stream sources are decoded in the background;
// Play while decoding reports BUFFERING and PLAYING follows once audio is ready.
// Natural end of a non-repeating source reports STOPPED.
type Sink struct {
	backend   OutputBackend
	registry  *DecoderRegistry
	resolver  *FileResolver
	fs        afero.Fs
	duckLevel float32
	log       *slog.Logger

	// read by the backend's pull callback without taking mu
	gain      atomic.Uint32
	finishing atomic.Bool

	mu       sync.Mutex
	reporter channel.SinkReporter
	id       channel.SourceID
	cursor   *pcmCursor
	loading  bool
	wantPlay bool
	playing  bool
	rewind   bool
	volume   float32
	muted    bool
	ducked   bool
	closed   bool
}

// SinkOption configures a Sink
type SinkOption func(*Sink)

// WithDuckLevel sets the attenuation applied while ducked (0.0-1.0)
func WithDuckLevel(level float32) SinkOption {
	return func(s *Sink) {
		if level >= 0 && level <= 1 {
			s.duckLevel = level
		}
	}
}

// WithFilesystem reads locator sources from fs
func WithFilesystem(fs afero.Fs) SinkOption {
	return func(s *Sink) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// WithRegistry decodes with registry instead of the default WAV/MP3/AIFF set
func WithRegistry(registry *DecoderRegistry) SinkOption {
	return func(s *Sink) {
		if registry != nil {
			s.registry = registry
		}
	}
}

// NewSink creates a Sink rendering through backend
func NewSink(backend OutputBackend, opts ...SinkOption) *Sink {
	s := &Sink{
		backend:   backend,
		duckLevel: DefaultDuckLevel,
		volume:    1.0,
		fs:        afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = NewDefaultRegistry()
	}
	s.resolver = NewFileResolver(s.fs, s.registry.Extensions())
	s.log = slog.With("sink", backend.Name())
	s.updateGainLocked()

	s.log.Debug("audio sink created", "duck_level", s.duckLevel)
	return s
}

// SetReporter installs the channel callback target
func (s *Sink) SetReporter(r channel.SinkReporter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reporter = r
}

// Prepare loads media as source id, replacing whatever was loaded before
func (s *Sink) Prepare(id channel.SourceID, media channel.Media, repeating bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	s.haltLocked()
	s.id = id
	s.cursor = nil
	s.loading = false
	s.wantPlay = false
	s.rewind = false
	s.ducked = false
	s.updateGainLocked()

	switch {
	case media.URL != "":
		data, err := s.loadLocator(media.URL)
		if err != nil {
			s.log.Error("failed to load source", "source_id", id, "url", media.URL, "error", err)
			return false
		}
		if err := s.openLocked(data, repeating); err != nil {
			s.log.Error("failed to open output", "source_id", id, "error", err)
			return false
		}
		return true

	case media.Stream != nil:
		s.loading = true
		go s.loadStream(id, media.Stream, repeating)
		return true

	default:
		s.log.Error("prepare called without media", "source_id", id)
		return false
	}
}

func (s *Sink) loadLocator(locator string) (*AudioData, error) {
	path, err := s.resolver.Resolve(locator)
	if err != nil {
		return nil, err
	}

	file, err := s.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	return s.registry.Decode(path, file)
}

func (s *Sink) loadStream(id channel.SourceID, stream *channel.Stream, repeating bool) {
	data, err := s.registry.Decode("stream", stream)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.id != id || !s.loading {
		s.log.Debug("discarding superseded stream load", "source_id", id)
		return
	}
	s.loading = false

	if err != nil {
		if errors.Is(err, channel.ErrStreamClosed) {
			s.log.Debug("stream closed while loading", "source_id", id)
			return
		}
		s.reportErrorLocked(mediaErrorFor(err), err)
		return
	}

	if err := s.openLocked(data, repeating); err != nil {
		s.reportErrorLocked(channel.MediaErrorInternalDeviceError, err)
		return
	}

	if s.wantPlay {
		s.wantPlay = false
		if err := s.startLocked(); err != nil {
			s.reportErrorLocked(channel.MediaErrorInternalDeviceError, err)
			return
		}
		s.reportLocked(channel.MediaPlaying)
	}
}

func (s *Sink) openLocked(data *AudioData, repeating bool) error {
	cursor := newPCMCursor(data, repeating)
	if err := s.backend.Open(data, s.pullFrom(cursor)); err != nil {
		return err
	}
	s.cursor = cursor
	return nil
}

// pullFrom is the backend's view of cursor; it runs on the device goroutine
func (s *Sink) pullFrom(cursor *pcmCursor) func([]byte) int {
	format := cursor.data.Format
	return func(dst []byte) int {
		n, ended := cursor.read(dst)
		applyGain(dst[:n], format, math.Float32frombits(s.gain.Load()))
		silence(dst[n:], format)

		// the device must not be stopped from inside its own callback
		if ended && s.finishing.CompareAndSwap(false, true) {
			go s.finish(cursor)
		}
		return n
	}
}

// finish reports natural completion of cursor's source
func (s *Sink) finish(cursor *pcmCursor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.playing || s.cursor != cursor {
		return
	}
	if err := s.backend.Stop(); err != nil {
		s.log.Warn("failed to stop output after completion", "source_id", s.id, "error", err)
	}
	s.playing = false
	s.rewind = true

	s.log.Debug("source finished", "source_id", s.id)
	s.reportLocked(channel.MediaStopped)
}

// Play starts rendering from the beginning, or from the current position after a pause
func (s *Sink) Play() bool {
	return s.start("play")
}

// Resume continues rendering from the current position
func (s *Sink) Resume() bool {
	return s.start("resume")
}

func (s *Sink) start(op string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || (s.cursor == nil && !s.loading) {
		return false
	}
	if s.loading {
		s.wantPlay = true
		s.reportLocked(channel.MediaBuffering)
		return true
	}
	if !s.playing {
		if err := s.startLocked(); err != nil {
			s.log.Error("failed to start output", "op", op, "source_id", s.id, "error", err)
			return false
		}
	}
	s.reportLocked(channel.MediaPlaying)
	return true
}

func (s *Sink) startLocked() error {
	if s.rewind {
		s.cursor.rewind()
		s.rewind = false
	}
	s.finishing.Store(false)
	if err := s.backend.Start(); err != nil {
		return err
	}
	s.playing = true
	return nil
}

// Pause stops rendering and keeps the position
func (s *Sink) Pause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if s.loading {
		s.wantPlay = false
		s.reportLocked(channel.MediaStopped)
		return true
	}
	if s.cursor == nil {
		return false
	}
	if s.playing {
		if err := s.backend.Stop(); err != nil {
			s.log.Error("failed to pause output", "source_id", s.id, "error", err)
			return false
		}
		s.playing = false
	}
	s.reportLocked(channel.MediaStopped)
	return true
}

// Stop stops rendering; the next Play starts over. STOPPED is reported even when idle.
func (s *Sink) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.haltLocked()
	s.wantPlay = false
	if s.cursor != nil {
		s.rewind = true
	}
	s.reportLocked(channel.MediaStopped)
	return true
}

func (s *Sink) haltLocked() {
	if !s.playing {
		return
	}
	if err := s.backend.Stop(); err != nil {
		s.log.Warn("failed to stop output", "source_id", s.id, "error", err)
	}
	s.playing = false
}

// SetPosition seeks the loaded source
func (s *Sink) SetPosition(ms int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.cursor == nil || ms < 0 {
		return false
	}
	if !s.cursor.seek(msToDuration(ms)) {
		s.log.Warn("seek past end of source", "source_id", s.id, "position_ms", ms)
		return false
	}
	s.rewind = false
	return true
}

// Position returns the playback position in milliseconds
func (s *Sink) Position() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursor == nil {
		return channel.TimeUnknown
	}
	return s.cursor.position().Milliseconds()
}

// Duration returns the source length in milliseconds
func (s *Sink) Duration() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursor == nil {
		return channel.TimeUnknown
	}
	return s.cursor.data.Duration().Milliseconds()
}

// BufferedBytes returns the decoded bytes not yet rendered
func (s *Sink) BufferedBytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursor == nil {
		return 0
	}
	return s.cursor.remaining()
}

// VolumeChanged sets the gain (0.0-1.0)
func (s *Sink) VolumeChanged(volume float32) bool {
	if volume < 0 || volume > 1 {
		s.log.Error("invalid volume level", "volume", volume)
		return false
	}
	return s.withGain(func() { s.volume = volume })
}

// MutedStateChanged mutes or unmutes output
func (s *Sink) MutedStateChanged(muted bool) bool {
	return s.withGain(func() { s.muted = muted })
}

// StartDucking attenuates output to the duck level
func (s *Sink) StartDucking() bool {
	return s.withGain(func() { s.ducked = true })
}

// StopDucking restores the configured volume
func (s *Sink) StopDucking() bool {
	return s.withGain(func() { s.ducked = false })
}

func (s *Sink) withGain(update func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	update()
	s.updateGainLocked()
	return true
}

func (s *Sink) updateGainLocked() {
	gain := s.volume
	if s.muted {
		gain = 0
	} else if s.ducked {
		gain *= s.duckLevel
	}
	s.gain.Store(math.Float32bits(gain))
}

// ReportFocusAction lets the platform side raise a ducking request for the loaded source
func (s *Sink) ReportFocusAction(action channel.FocusAction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reporter == nil || !s.id.IsValid() {
		s.log.Debug("no source to report focus action for", "action", action)
		return
	}
	s.reporter.FocusAction(s.id, action)
}

// Close stops output and releases the backend
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.haltLocked()
	s.closed = true
	s.cursor = nil

	if err := s.backend.Close(); err != nil {
		return fmt.Errorf("failed to close %s backend: %w", s.backend.Name(), err)
	}
	s.log.Debug("audio sink closed")
	return nil
}

func (s *Sink) reportLocked(state channel.MediaState) {
	if s.reporter == nil || !s.id.IsValid() {
		return
	}
	s.reporter.MediaStateChanged(s.id, state)
}

func (s *Sink) reportErrorLocked(code channel.MediaError, err error) {
	s.log.Error("source failed", "source_id", s.id, "code", code, "error", err)
	if s.reporter == nil || !s.id.IsValid() {
		return
	}
	s.reporter.MediaError(s.id, code, err.Error())
}

// mediaErrorFor classifies a load failure
func mediaErrorFor(err error) channel.MediaError {
	switch {
	case errors.Is(err, ErrUnsupportedFormat), errors.Is(err, ErrInvalidData), errors.Is(err, ErrUnsupportedLocator):
		return channel.MediaErrorInvalidRequest
	case errors.Is(err, ErrReadFailure):
		return channel.MediaErrorServiceUnavailable
	default:
		return channel.MediaErrorUnknown
	}
}
