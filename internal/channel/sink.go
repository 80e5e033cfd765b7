package channel

// TimeUnknown is returned by a sink when a position or duration is not known
const TimeUnknown int64 = -1

// AudioSink is the platform channel that renders audio.
//
// After returning true from Play, Pause, Resume or Stop the sink must later
// report the resulting state through its SinkReporter (Stop reports STOPPED
// immediately when nothing is playing). It may report BUFFERING or an error
// at any time while rendering. Reports must carry the id given to Prepare.
type AudioSink interface {
	// SetReporter installs the callback target for state, error and focus reports
	SetReporter(r SinkReporter)

	Prepare(id SourceID, media Media, repeating bool) bool
	Play() bool
	Pause() bool
	Resume() bool
	Stop() bool

	// SetPosition, Position and Duration are in milliseconds; TimeUnknown when unknown
	SetPosition(ms int64) bool
	Position() int64
	Duration() int64
	BufferedBytes() int64

	// VolumeChanged takes the native scale 0.0-1.0
	VolumeChanged(volume float32) bool
	MutedStateChanged(muted bool) bool

	// StopDucking is also sent when a ducked source is superseded, before the
	// next Prepare
	StartDucking() bool
	StopDucking() bool
}

// SinkReporter receives asynchronous reports from an AudioSink. Implementations
// return as soon as the report is queued; sinks may call them from any goroutine.
type SinkReporter interface {
	MediaStateChanged(id SourceID, state MediaState)
	MediaError(id SourceID, code MediaError, description string)
	FocusAction(id SourceID, action FocusAction)
}

// sinkReporter funnels sink callbacks onto the command executor
type sinkReporter struct {
	c *Channel
}

func (r *sinkReporter) MediaStateChanged(id SourceID, state MediaState) {
	if !r.c.commands.Submit(func() { r.c.onMediaStateChanged(id, state) }) {
		r.c.log.Debug("dropping media state report", "source_id", id, "state", state)
	}
}

func (r *sinkReporter) MediaError(id SourceID, code MediaError, description string) {
	if !r.c.commands.Submit(func() { r.c.onMediaError(id, code, description) }) {
		r.c.log.Debug("dropping media error report", "source_id", id, "code", code)
	}
}

func (r *sinkReporter) FocusAction(id SourceID, action FocusAction) {
	if !r.c.commands.Submit(func() { r.c.onFocusAction(id, action) }) {
		r.c.log.Debug("dropping focus action report", "source_id", id, "action", action)
	}
}
