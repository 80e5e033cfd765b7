package channel

import "time"

// Media is what a sink is asked to prepare: a locator or an in-process stream
type Media struct {
	URL    string
	Stream *Stream
}

// IsStream reports whether the media is backed by a Stream
func (m Media) IsStream() bool {
	return m.Stream != nil
}

// SourceOptions control how a source is prepared
type SourceOptions struct {
	// Offset is the initial playback position (locator sources only)
	Offset time.Duration
	// Repeating asks the sink to loop the source
	Repeating bool
	// MayDuck marks the source as eligible for attenuation (the "duck" mixing hint)
	MayDuck bool
}

// source is the active source bookkeeping. It is owned by the command executor
// and never holds a strong reference to a stream.
type source struct {
	id          SourceID
	url         string
	isStream    bool
	repeating   bool
	mayDuck     bool
	savedOffset time.Duration
}

func (s *source) active() bool {
	return s.id.IsValid()
}

// retainedOffsets bounds how many superseded sources keep their saved offset
const retainedOffsets = 32

// offsetHistory remembers the saved offset of superseded sources so that
// Offset can answer for a stale id without touching the sink
type offsetHistory struct {
	offsets map[SourceID]time.Duration
}

func (h *offsetHistory) remember(id SourceID, offset time.Duration) {
	if !id.IsValid() {
		return
	}
	if h.offsets == nil {
		h.offsets = make(map[SourceID]time.Duration)
	}
	h.offsets[id] = offset

	if id > retainedOffsets {
		for old := range h.offsets {
			if old <= id-retainedOffsets {
				delete(h.offsets, old)
			}
		}
	}
}

func (h *offsetHistory) lookup(id SourceID) (time.Duration, bool) {
	offset, ok := h.offsets[id]
	return offset, ok
}
