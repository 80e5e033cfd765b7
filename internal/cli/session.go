package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"audiochan.click/internal/audio"
	"audiochan.click/internal/channel"
	"audiochan.click/internal/config"
	"audiochan.click/internal/journal"
)

// session is one channel bound to one sink for the lifetime of a command.
// It owns the observers it registers, since the channel only holds them weakly.
type session struct {
	channel   *channel.Channel
	sink      *audio.Sink
	recorder  *journal.Recorder
	mediaFS   afero.Fs
	observers []channel.Observer
}

// openSession creates the sink named by cfg, a channel on top of it and, when
// the journal is available, a recorder observing the channel
func (c *CLI) openSession(cfg *config.Config) (*session, error) {
	opts := []audio.SinkOption{
		audio.WithDuckLevel(cfg.DuckLevelOrDefault()),
		audio.WithFilesystem(c.fsFactory.Media()),
	}

	factory := audio.NewSinkFactory(opts...)
	if c.backends != nil {
		factory = audio.NewSinkFactoryWithBackends(c.backends, opts...)
	}

	sink, err := factory.CreateSink(cfg.AudioSink)
	if err != nil {
		slog.Error("failed to create audio sink", "sink", cfg.AudioSink, "error", err)
		return nil, fmt.Errorf("failed to create audio sink '%s': %w", cfg.AudioSink, err)
	}

	ch, err := channel.New(sink, channel.WithName("audiochan"), channel.WithSettings(cfg.VolumeSettings()))
	if err != nil {
		closeSink(sink)
		return nil, fmt.Errorf("failed to create audio channel: %w", err)
	}

	s := &session{channel: ch, sink: sink, mediaFS: c.fsFactory.Media()}
	if c.journalDB != nil {
		s.recorder = journal.NewRecorder(c.journalDB, c.sessionID)
		s.addObserver(s.recorder.Observer())
	}

	slog.Debug("audio session opened",
		"sink", cfg.AudioSink,
		"journal", s.recorder != nil,
		"session_id", c.sessionID)
	return s, nil
}

// observe forwards every channel event to fn until the session is closed
func (s *session) observe(fn channel.EventFunc) {
	s.addObserver(channel.ObserveFunc(fn))
}

func (s *session) addObserver(o channel.Observer) {
	s.observers = append(s.observers, o)
	s.channel.AddObserver(o)
}

// close shuts the channel down before releasing the sink it drives
func (s *session) close() {
	s.channel.Shutdown()
	s.observers = nil
	closeSink(s.sink)
}

func closeSink(sink *audio.Sink) {
	if err := sink.Close(); err != nil {
		slog.Warn("failed to close audio sink", "error", err)
	}
}

// resolveMedia maps a command-line name onto a locator the sink can open.
// Existing paths and URLs pass through; bare names are looked up in the XDG
// media directories. Anything else is returned unchanged so the sink reports it.
func (s *session) resolveMedia(name string) string {
	if strings.Contains(name, "://") {
		return name
	}
	if exists, _ := afero.Exists(s.mediaFS, name); exists {
		return name
	}
	if found := config.NewXDGDirsWithFilesystem(s.mediaFS).FindMediaFile(name); found != "" {
		slog.Debug("resolved media from XDG data directories", "name", name, "path", found)
		return found
	}
	return name
}

// syncWriter serializes writes from the notification goroutine and the command loop
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Write(p)
}

// formatEvent renders a lifecycle event as one line of command output
func formatEvent(e channel.Event) string {
	line := fmt.Sprintf("event: %s source=%d offset=%s", e.Kind, e.Source, e.Offset)
	if e.Kind == channel.EventError {
		line += fmt.Sprintf(" code=%s description=%q", e.Error, e.Description)
	}
	return line
}
