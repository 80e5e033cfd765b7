package channel

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
	"weak"
)

// Channel drives one logical audio source through an AudioSink and turns the
// sink's coarse state reports into lifecycle events for its observers.
//
// Every command and every sink report runs on the command executor, so the
// fields below the executors are only ever touched from that goroutine.
// Observer delivery runs on a second executor and never blocks commands.
type Channel struct {
	name string
	log  *slog.Logger

	commands      *Executor
	notifications *Executor
	observers     *observerRegistry

	sink      AudioSink
	ids       *IDAllocator
	current   source
	history   offsetHistory
	coarse    MediaState
	pending   PendingEvent
	initiator CommandInitiator
	ducking   duckingArbiter
	stream    weak.Pointer[Stream]

	settingsMu sync.RWMutex
	settings   VolumeSettings

	shutdownOnce sync.Once
}

// Option configures a Channel
type Option func(*Channel)

// WithName labels the channel in logs and executor names
func WithName(name string) Option {
	return func(c *Channel) {
		c.name = name
	}
}

// WithSettings sets the initial volume settings pushed to the sink
func WithSettings(settings VolumeSettings) Option {
	return func(c *Channel) {
		settings.Volume = clampVolume(settings.Volume)
		c.settings = settings
	}
}

// WithIDAllocator shares an allocator, e.g. to keep ids unique across channels
func WithIDAllocator(ids *IDAllocator) Option {
	return func(c *Channel) {
		if ids != nil {
			c.ids = ids
		}
	}
}

// New creates a Channel bound to sink and installs itself as the sink's reporter
func New(sink AudioSink, opts ...Option) (*Channel, error) {
	if sink == nil {
		return nil, errors.New("audio sink cannot be nil")
	}

	c := &Channel{
		name:      "audio",
		sink:      sink,
		ids:       NewIDAllocator(),
		observers: newObserverRegistry(),
		settings:  DefaultVolumeSettings(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.log = slog.With("channel", c.name)
	c.commands = NewExecutor(c.name + "-commands")
	c.notifications = NewExecutor(c.name + "-notifications")

	sink.SetReporter(&sinkReporter{c: c})

	initial := c.settings
	c.commands.Submit(func() {
		if !c.sink.VolumeChanged(nativeVolume(initial.Volume)) {
			c.log.Warn("sink rejected initial volume", "volume", initial.Volume)
		}
		if !c.sink.MutedStateChanged(initial.Muted) {
			c.log.Warn("sink rejected initial mute state", "muted", initial.Muted)
		}
	})

	c.log.Info("audio channel created", "volume", initial.Volume, "muted", initial.Muted)
	return c, nil
}

// Name returns the channel label
func (c *Channel) Name() string {
	return c.name
}

// SetSourceURL prepares a locator source and returns its id, or InvalidSourceID on failure
func (c *Channel) SetSourceURL(url string, opts SourceOptions) SourceID {
	if url == "" {
		c.log.Error("cannot set source", "error", fmt.Errorf("%w: empty url", ErrInvalidSource))
		return InvalidSourceID
	}
	return callResult(c.commands, InvalidSourceID, func() SourceID {
		return c.setSource(Media{URL: url}, opts)
	})
}

// SetSourceStream prepares a stream source and returns its id, or InvalidSourceID on failure.
// The channel does not keep the stream alive; it only closes it on supersede or shutdown.
func (c *Channel) SetSourceStream(r io.Reader, opts SourceOptions) SourceID {
	if r == nil {
		c.log.Error("cannot set source", "error", fmt.Errorf("%w: nil stream", ErrInvalidSource))
		return InvalidSourceID
	}
	stream := NewStream(r)
	return callResult(c.commands, InvalidSourceID, func() SourceID {
		return c.setSource(Media{Stream: stream}, opts)
	})
}

// Play starts the source
func (c *Channel) Play(id SourceID) bool {
	return c.command("play", id, c.play)
}

// Pause pauses the source. Pausing InvalidSourceID is a successful no-op.
func (c *Channel) Pause(id SourceID) bool {
	if id == InvalidSourceID {
		c.log.Debug("pause with no source is a no-op")
		return true
	}
	return c.command("pause", id, c.pause)
}

// Resume continues a paused source
func (c *Channel) Resume(id SourceID) bool {
	return c.command("resume", id, c.resume)
}

// Stop stops the source
func (c *Channel) Stop(id SourceID) bool {
	return c.command("stop", id, c.stop)
}

// Offset returns the playback position of id. For a superseded id it is the
// offset saved when the id was retired; the sink is not queried. Only the
// most recent retainedOffsets superseded ids are remembered, older ids report 0.
func (c *Channel) Offset(id SourceID) time.Duration {
	return callResult(c.commands, time.Duration(0), func() time.Duration {
		if c.sink != nil && id.IsValid() && id == c.current.id {
			return c.position()
		}
		if offset, ok := c.history.lookup(id); ok {
			return offset
		}
		return 0
	})
}

// Duration returns the length of the active source when the sink knows it
func (c *Channel) Duration(id SourceID) (time.Duration, bool) {
	type result struct {
		d  time.Duration
		ok bool
	}
	r := callResult(c.commands, result{}, func() result {
		if c.sink == nil || !id.IsValid() || id != c.current.id {
			return result{}
		}
		ms := c.sink.Duration()
		if ms < 0 {
			return result{}
		}
		return result{d: time.Duration(ms) * time.Millisecond, ok: true}
	})
	return r.d, r.ok
}

// BufferedBytes returns the sink's buffered byte count for the active source
func (c *Channel) BufferedBytes() int64 {
	return callResult(c.commands, int64(0), func() int64 {
		if c.sink == nil || !c.current.active() {
			return 0
		}
		return max(c.sink.BufferedBytes(), 0)
	})
}

// CurrentSource returns the active source id, or InvalidSourceID
func (c *Channel) CurrentSource() SourceID {
	return callResult(c.commands, InvalidSourceID, func() SourceID {
		return c.current.id
	})
}

// AddObserver registers o for lifecycle events. Registration is asynchronous
// but ordered with respect to events emitted after this call returns.
//
// o must be a pointer. The channel holds it weakly: the caller keeps o alive
// for as long as it wants events, and a collected observer is dropped without
// notice.
func (c *Channel) AddObserver(o Observer) {
	observers := c.observers
	if !c.notifications.Submit(func() { observers.add(o) }) {
		c.log.Debug("observer not added, channel is shut down")
	}
}

// RemoveObserver unregisters o
func (c *Channel) RemoveObserver(o Observer) {
	observers := c.observers
	if !c.notifications.Submit(func() { observers.remove(o) }) {
		c.log.Debug("observer not removed, channel is shut down")
	}
}

// Shutdown drains both executors, stops the sink, closes any stream source and
// drops all observers. Commands issued afterwards fail.
func (c *Channel) Shutdown() {
	c.shutdownOnce.Do(func() {
		c.log.Info("shutting down audio channel", "source_id", c.CurrentSource())

		c.commands.Shutdown()

		// the command goroutine has exited; its state is ours now
		if stream := c.stream.Value(); stream != nil {
			if err := stream.Close(); err != nil {
				c.log.Warn("failed to close stream source", "error", err)
			}
		}
		if c.current.active() {
			if !c.sink.Stop() {
				c.log.Warn("final sink stop failed", "source_id", c.current.id)
			}
		}
		c.sink = nil

		c.notifications.Shutdown()
		c.observers.clear()

		c.log.Info("audio channel shut down")
	})
}

// command validates id on the command executor and runs fn
func (c *Channel) command(name string, id SourceID, fn func() error) bool {
	return callResult(c.commands, false, func() bool {
		err := c.validate(id)
		if err == nil {
			err = fn()
		}
		if err != nil {
			c.log.Error("command failed",
				"command", name,
				"source_id", id,
				"state", c.coarse,
				"pending", c.pending,
				"initiator", c.initiator,
				"error", err)
			return false
		}
		c.log.Debug("command accepted", "command", name, "source_id", id, "pending", c.pending)
		return true
	})
}

func (c *Channel) validate(id SourceID) error {
	if c.sink == nil {
		return ErrChannelClosed
	}
	if !id.IsValid() || id != c.current.id {
		return fmt.Errorf("%w: id %d, active %d", ErrInvalidSource, id, c.current.id)
	}
	return nil
}

func (c *Channel) setSource(media Media, opts SourceOptions) SourceID {
	if c.sink == nil {
		return InvalidSourceID
	}

	c.retireSource(media.Stream)

	id := c.ids.Next()
	c.current = source{
		id:        id,
		url:       media.URL,
		isStream:  media.IsStream(),
		repeating: opts.Repeating,
		mayDuck:   opts.MayDuck,
	}
	if media.Stream != nil {
		c.stream = weak.Make(media.Stream)
	}

	if !c.sink.Prepare(id, media, opts.Repeating) {
		c.log.Error("failed to prepare source",
			"source_id", id,
			"url", media.URL,
			"stream", media.IsStream(),
			"error", ErrSinkOperationFailed)
		c.retireSource(nil)
		return InvalidSourceID
	}

	if opts.Offset > 0 {
		if media.IsStream() {
			c.log.Debug("initial offset ignored for stream source", "source_id", id, "offset", opts.Offset)
		} else if !c.sink.SetPosition(opts.Offset.Milliseconds()) {
			c.log.Error("failed to set initial position",
				"source_id", id,
				"offset", opts.Offset,
				"error", ErrSinkOperationFailed)
			c.retireSource(nil)
			return InvalidSourceID
		} else {
			c.current.savedOffset = opts.Offset
		}
	}

	c.log.Info("source prepared",
		"source_id", id,
		"url", media.URL,
		"stream", media.IsStream(),
		"repeating", opts.Repeating,
		"may_duck", opts.MayDuck,
		"offset", opts.Offset)
	return id
}

// retireSource invalidates the active source, keeping its saved offset for
// Offset lookups, and resets the state machine. The previous stream is closed
// unless it is keep.
func (c *Channel) retireSource(keep *Stream) {
	if c.current.active() {
		c.history.remember(c.current.id, c.current.savedOffset)
		c.log.Debug("source retired", "source_id", c.current.id, "saved_offset", c.current.savedOffset)
	}
	if old := c.stream.Value(); old != nil && old != keep {
		if err := old.Close(); err != nil {
			c.log.Warn("failed to close superseded stream", "error", err)
		}
	}

	c.current = source{}
	c.stream = weak.Pointer[Stream]{}
	c.coarse = MediaStopped
	c.pending = PendingNone
	c.initiator = InitiatorNone
	c.releaseDucking()
}

// releaseDucking lifts an attenuation left over from the retired source
func (c *Channel) releaseDucking() {
	if c.ducking.state == DuckingNone {
		return
	}
	if c.sink != nil && !c.sink.StopDucking() {
		c.log.Warn("failed to release ducking of retired source", "held_by", c.ducking.state)
	}
	c.ducking.reset()
}

func (c *Channel) play() error {
	if c.coarse == MediaPlaying || c.coarse == MediaBuffering {
		return fmt.Errorf("%w: play while %s", ErrIllegalStateTransition, c.coarse)
	}
	if c.pending == PendingStarted {
		return fmt.Errorf("%w: play already pending", ErrIllegalStateTransition)
	}

	c.flushPending()

	if !c.sink.Play() {
		c.retireSource(nil)
		return fmt.Errorf("%w: play", ErrSinkOperationFailed)
	}
	c.pending = PendingStarted
	c.initiator = InitiatorPlay
	return nil
}

func (c *Channel) pause() error {
	if c.coarse == MediaStopped && c.pending != PendingStarted && c.pending != PendingResumed {
		return fmt.Errorf("%w: nothing to pause", ErrIllegalStateTransition)
	}

	c.flushPending()
	c.saveOffset()

	if !c.sink.Pause() {
		c.retireSource(nil)
		return fmt.Errorf("%w: pause", ErrSinkOperationFailed)
	}
	c.pending = PendingPaused
	c.initiator = InitiatorPause

	// A stopped sink will never tell a pause apart from completion
	if c.coarse == MediaStopped {
		c.flushPending()
	}
	return nil
}

func (c *Channel) resume() error {
	if c.initiator != InitiatorPause {
		return fmt.Errorf("%w: resume after %s", ErrIllegalStateTransition, c.initiator)
	}
	if c.coarse == MediaPlaying || c.coarse == MediaBuffering {
		return fmt.Errorf("%w: resume while %s", ErrIllegalStateTransition, c.coarse)
	}
	if c.pending == PendingResumed {
		return fmt.Errorf("%w: resume already pending", ErrIllegalStateTransition)
	}

	if !c.sink.Resume() {
		c.retireSource(nil)
		return fmt.Errorf("%w: resume", ErrSinkOperationFailed)
	}
	c.pending = PendingResumed
	c.initiator = InitiatorResume
	return nil
}

func (c *Channel) stop() error {
	if c.initiator == InitiatorStop {
		return fmt.Errorf("%w: already stopped", ErrIllegalStateTransition)
	}

	c.saveOffset()

	if !c.sink.Stop() {
		c.retireSource(nil)
		return fmt.Errorf("%w: stop", ErrSinkOperationFailed)
	}
	c.pending = PendingStopped
	c.initiator = InitiatorStop
	return nil
}

// position asks the sink for the current offset, falling back to the saved one
func (c *Channel) position() time.Duration {
	if c.sink == nil {
		return c.current.savedOffset
	}
	ms := c.sink.Position()
	if ms < 0 {
		return c.current.savedOffset
	}
	return time.Duration(ms) * time.Millisecond
}

func (c *Channel) saveOffset() {
	c.current.savedOffset = c.position()
}
