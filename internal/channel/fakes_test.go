package channel

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeSink records every call and lets tests script failures and positions.
// Reports are never sent on their own; tests drive them through report.
type fakeSink struct {
	mu       sync.Mutex
	reporter SinkReporter
	prepared SourceID
	media    Media
	repeat   bool
	calls    []string
	fail     map[string]bool
	position int64
	duration int64
	buffered int64
	volume   float32
	muted    bool
	seekTo   int64
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		fail:     make(map[string]bool),
		duration: TimeUnknown,
	}
}

func (f *fakeSink) call(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return !f.fail[name]
}

func (f *fakeSink) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeSink) failOn(name string, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[name] = fail
}

func (f *fakeSink) setPosition(ms int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.position = ms
}

func (f *fakeSink) report(id SourceID, state MediaState) {
	f.mu.Lock()
	r := f.reporter
	f.mu.Unlock()
	r.MediaStateChanged(id, state)
}

func (f *fakeSink) SetReporter(r SinkReporter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reporter = r
}

func (f *fakeSink) Prepare(id SourceID, media Media, repeating bool) bool {
	if !f.call("prepare") {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prepared = id
	f.media = media
	f.repeat = repeating
	f.position = 0
	return true
}

func (f *fakeSink) Play() bool   { return f.call("play") }
func (f *fakeSink) Pause() bool  { return f.call("pause") }
func (f *fakeSink) Resume() bool { return f.call("resume") }
func (f *fakeSink) Stop() bool   { return f.call("stop") }

func (f *fakeSink) SetPosition(ms int64) bool {
	if !f.call("set_position") {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seekTo = ms
	return true
}

func (f *fakeSink) Position() int64 {
	f.call("position")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.position
}

func (f *fakeSink) Duration() int64 {
	f.call("duration")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.duration
}

func (f *fakeSink) BufferedBytes() int64 {
	f.call("buffered")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buffered
}

func (f *fakeSink) VolumeChanged(volume float32) bool {
	if !f.call("volume") {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = volume
	return true
}

func (f *fakeSink) MutedStateChanged(muted bool) bool {
	if !f.call("mute") {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = muted
	return true
}

func (f *fakeSink) StartDucking() bool { return f.call("start_ducking") }
func (f *fakeSink) StopDucking() bool  { return f.call("stop_ducking") }

// recorder collects delivered events. It owns its observer so the channel's
// weak registration stays alive as long as the recorder does.
type recorder struct {
	mu       sync.Mutex
	events   []Event
	observer Observer
}

func newRecorder() *recorder {
	r := &recorder{}
	r.observer = ObserveFunc(r.record)
	return r
}

func (r *recorder) record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) kinds() []EventKind {
	var kinds []EventKind
	for _, e := range r.all() {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func newTestChannel(t *testing.T, opts ...Option) (*Channel, *fakeSink, *recorder) {
	t.Helper()

	sink := newFakeSink()
	c, err := New(sink, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Shutdown)

	rec := newRecorder()
	c.AddObserver(rec.observer)
	flush(c)
	return c, sink, rec
}

// flush waits until every queued command, report and notification has run
func flush(c *Channel) {
	c.commands.Call(func() {})
	c.notifications.Call(func() {})
}
