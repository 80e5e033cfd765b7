package channel

import (
	"fmt"
	"time"
)

// Observer receives playback lifecycle events. Callbacks run on the channel's
// notification goroutine, one at a time and in emission order.
type Observer interface {
	OnPlaybackStarted(id SourceID, offset time.Duration)
	OnPlaybackPaused(id SourceID, offset time.Duration)
	OnPlaybackResumed(id SourceID, offset time.Duration)
	OnPlaybackStopped(id SourceID, offset time.Duration)
	OnPlaybackFinished(id SourceID, offset time.Duration)
	OnPlaybackError(id SourceID, code MediaError, description string, offset time.Duration)
	OnBufferUnderrun(id SourceID, offset time.Duration)
	OnBufferRefilled(id SourceID, offset time.Duration)
}

// BaseObserver implements Observer with no-ops, for embedding
type BaseObserver struct{}

func (BaseObserver) OnPlaybackStarted(SourceID, time.Duration) {}
func (BaseObserver) OnPlaybackPaused(SourceID, time.Duration) {}
func (BaseObserver) OnPlaybackResumed(SourceID, time.Duration) {}
func (BaseObserver) OnPlaybackStopped(SourceID, time.Duration) {}
func (BaseObserver) OnPlaybackFinished(SourceID, time.Duration) {}
func (BaseObserver) OnPlaybackError(SourceID, MediaError, string, time.Duration) {}
func (BaseObserver) OnBufferUnderrun(SourceID, time.Duration) {}
func (BaseObserver) OnBufferRefilled(SourceID, time.Duration) {}

// EventKind names a lifecycle event
type EventKind int

const (
	EventStarted EventKind = iota
	EventPaused
	EventResumed
	EventStopped
	EventFinished
	EventError
	EventBufferUnderrun
	EventBufferRefilled
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventPaused:
		return "paused"
	case EventResumed:
		return "resumed"
	case EventStopped:
		return "stopped"
	case EventFinished:
		return "finished"
	case EventError:
		return "error"
	case EventBufferUnderrun:
		return "buffer_underrun"
	case EventBufferRefilled:
		return "buffer_refilled"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// savesOffset reports whether emitting the event records the offset on the source
func (k EventKind) savesOffset() bool {
	return k == EventFinished || k == EventPaused || k == EventStopped
}

// Event is one emitted lifecycle notification
type Event struct {
	Kind        EventKind
	Source      SourceID
	Offset      time.Duration
	Error       MediaError
	Description string
}

// Deliver invokes the observer callback matching the event kind
func (e Event) Deliver(o Observer) {
	switch e.Kind {
	case EventStarted:
		o.OnPlaybackStarted(e.Source, e.Offset)
	case EventPaused:
		o.OnPlaybackPaused(e.Source, e.Offset)
	case EventResumed:
		o.OnPlaybackResumed(e.Source, e.Offset)
	case EventStopped:
		o.OnPlaybackStopped(e.Source, e.Offset)
	case EventFinished:
		o.OnPlaybackFinished(e.Source, e.Offset)
	case EventError:
		o.OnPlaybackError(e.Source, e.Error, e.Description, e.Offset)
	case EventBufferUnderrun:
		o.OnBufferUnderrun(e.Source, e.Offset)
	case EventBufferRefilled:
		o.OnBufferRefilled(e.Source, e.Offset)
	}
}

// EventFunc adapts a function to Observer; every callback is turned into an Event.
// Wrap it in a pointer (see ObserveFunc) so it can be registered and removed by identity.
type EventFunc func(Event)

// funcObserver gives an EventFunc a pointer identity
type funcObserver struct {
	fn EventFunc
}

// ObserveFunc returns an Observer that forwards every event to fn. Keep the
// returned value for as long as events are wanted; channels hold it weakly.
func ObserveFunc(fn EventFunc) Observer {
	return &funcObserver{fn: fn}
}

func (f *funcObserver) OnPlaybackStarted(id SourceID, offset time.Duration) {
	f.fn(Event{Kind: EventStarted, Source: id, Offset: offset})
}

func (f *funcObserver) OnPlaybackPaused(id SourceID, offset time.Duration) {
	f.fn(Event{Kind: EventPaused, Source: id, Offset: offset})
}

func (f *funcObserver) OnPlaybackResumed(id SourceID, offset time.Duration) {
	f.fn(Event{Kind: EventResumed, Source: id, Offset: offset})
}

func (f *funcObserver) OnPlaybackStopped(id SourceID, offset time.Duration) {
	f.fn(Event{Kind: EventStopped, Source: id, Offset: offset})
}

func (f *funcObserver) OnPlaybackFinished(id SourceID, offset time.Duration) {
	f.fn(Event{Kind: EventFinished, Source: id, Offset: offset})
}

func (f *funcObserver) OnPlaybackError(id SourceID, code MediaError, description string, offset time.Duration) {
	f.fn(Event{Kind: EventError, Source: id, Error: code, Description: description, Offset: offset})
}

func (f *funcObserver) OnBufferUnderrun(id SourceID, offset time.Duration) {
	f.fn(Event{Kind: EventBufferUnderrun, Source: id, Offset: offset})
}

func (f *funcObserver) OnBufferRefilled(id SourceID, offset time.Duration) {
	f.fn(Event{Kind: EventBufferRefilled, Source: id, Offset: offset})
}
