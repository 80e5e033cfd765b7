package channel

import "fmt"

// transitionKey is (current coarse state, reported coarse state, pending event)
type transitionKey struct {
	from    MediaState
	to      MediaState
	pending PendingEvent
}

// transition is the reconciliation outcome for one key
type transition struct {
	// emit lists the lifecycle events to emit, in order
	emit []EventKind
	// clearPending resets the pending event after emission
	clearPending bool
	// ignore leaves both the coarse state and the pending event untouched
	ignore bool
}

var (
	allStates  = []MediaState{MediaStopped, MediaPlaying, MediaBuffering}
	allPending = []PendingEvent{PendingNone, PendingStarted, PendingPaused, PendingResumed, PendingStopped}
)

// transitionTable is the reconciliation matrix. Keys not present are
// unexpected transitions: they are logged and the report is discarded.
var transitionTable = buildTransitionTable()

func buildTransitionTable() map[transitionKey]transition {
	t := map[transitionKey]transition{
		{MediaStopped, MediaPlaying, PendingStarted}: {emit: []EventKind{EventStarted}, clearPending: true},
		{MediaStopped, MediaPlaying, PendingResumed}: {emit: []EventKind{EventResumed}, clearPending: true},

		{MediaPlaying, MediaStopped, PendingStopped}: {emit: []EventKind{EventStopped}, clearPending: true},
		{MediaPlaying, MediaStopped, PendingPaused}:  {emit: []EventKind{EventPaused}, clearPending: true},
		{MediaPlaying, MediaStopped, PendingNone}:    {emit: []EventKind{EventFinished}},

		{MediaBuffering, MediaStopped, PendingStopped}: {emit: []EventKind{EventStopped}, clearPending: true},
		{MediaBuffering, MediaStopped, PendingPaused}:  {emit: []EventKind{EventPaused}, clearPending: true},

		{MediaStopped, MediaStopped, PendingStopped}: {emit: []EventKind{EventStopped}, clearPending: true},

		{MediaPlaying, MediaBuffering, PendingNone}: {emit: []EventKind{EventBufferUnderrun}},
		{MediaStopped, MediaBuffering, PendingNone}: {ignore: true},
	}

	// Refill does not depend on what the caller is waiting for
	for _, pending := range allPending {
		t[transitionKey{MediaBuffering, MediaPlaying, pending}] = transition{emit: []EventKind{EventBufferRefilled}}
	}

	// Buffering while starting is still loading; buffering right after a
	// resume confirms the resume and reports the underrun
	for _, from := range allStates {
		t[transitionKey{from, MediaBuffering, PendingStarted}] = transition{ignore: true}
		t[transitionKey{from, MediaBuffering, PendingResumed}] = transition{
			emit:         []EventKind{EventResumed, EventBufferUnderrun},
			clearPending: true,
		}
	}

	return t
}

// reconcile looks up the outcome for a reported state. A nil transition with
// a nil error is the no-op fast path.
func reconcile(from, to MediaState, pending PendingEvent) (*transition, error) {
	if from == to && pending == PendingNone {
		return nil, nil
	}

	t, ok := transitionTable[transitionKey{from: from, to: to, pending: pending}]
	if !ok {
		return nil, fmt.Errorf("%w: %s -> %s with pending %s", ErrUnexpectedCoarseTransition, from, to, pending)
	}
	return &t, nil
}

// onMediaStateChanged reconciles a coarse state report from the sink
func (c *Channel) onMediaStateChanged(id SourceID, state MediaState) {
	if c.sink == nil || !id.IsValid() || id != c.current.id {
		c.log.Debug("discarding stale media state report", "source_id", id, "current", c.current.id, "state", state)
		return
	}

	t, err := reconcile(c.coarse, state, c.pending)
	if err != nil {
		c.log.Error("media state report rejected", "source_id", id, "error", err)
		return
	}
	if t == nil || t.ignore {
		c.log.Debug("media state report ignored", "source_id", id, "state", state, "current_state", c.coarse, "pending", c.pending)
		return
	}

	c.log.Debug("reconciling media state",
		"source_id", id,
		"from", c.coarse,
		"to", state,
		"pending", c.pending,
		"emit", t.emit)

	c.coarse = state
	for _, kind := range t.emit {
		c.emit(kind)
	}
	if t.clearPending {
		c.pending = PendingNone
	}
}

// onMediaError reports a sink failure for the active source and retires it
func (c *Channel) onMediaError(id SourceID, code MediaError, description string) {
	if c.sink == nil || !id.IsValid() || id != c.current.id {
		c.log.Debug("discarding stale media error", "source_id", id, "current", c.current.id, "code", code)
		return
	}

	c.log.Error("media error", "source_id", id, "code", code, "description", description)
	c.publish(Event{
		Kind:        EventError,
		Source:      id,
		Offset:      c.current.savedOffset,
		Error:       code,
		Description: description,
	})
	c.retireSource(nil)
}

// flushPending emits an unconfirmed pending event before a new command replaces it
func (c *Channel) flushPending() {
	kind, ok := c.pending.event()
	if !ok {
		return
	}
	c.log.Debug("flushing pending event", "source_id", c.current.id, "pending", c.pending)
	c.emit(kind)
	c.pending = PendingNone
}

// emit stamps a lifecycle event with the current offset and queues it for delivery
func (c *Channel) emit(kind EventKind) {
	offset := c.position()
	if kind.savesOffset() {
		c.current.savedOffset = offset
	}
	c.publish(Event{Kind: kind, Source: c.current.id, Offset: offset})
}

func (c *Channel) publish(e Event) {
	observers := c.observers
	if !c.notifications.Submit(func() { observers.notify(e) }) {
		c.log.Debug("dropping event, notifications closed", "event", e.Kind, "source_id", e.Source)
	}
}
