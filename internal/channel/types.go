package channel

import "fmt"

// SourceID identifies one prepared audio source for the lifetime of a Channel
type SourceID uint64

// InvalidSourceID is returned when no source is active
const InvalidSourceID SourceID = 0

// IsValid reports whether the id refers to an allocated source
func (id SourceID) IsValid() bool {
	return id != InvalidSourceID
}

// MediaState is the coarse playback state reported by an AudioSink
type MediaState int

const (
	MediaStopped MediaState = iota
	MediaPlaying
	MediaBuffering
)

func (s MediaState) String() string {
	switch s {
	case MediaStopped:
		return "STOPPED"
	case MediaPlaying:
		return "PLAYING"
	case MediaBuffering:
		return "BUFFERING"
	default:
		return fmt.Sprintf("MediaState(%d)", int(s))
	}
}

// PendingEvent is the lifecycle event the channel expects the sink to confirm
type PendingEvent int

const (
	PendingNone PendingEvent = iota
	PendingStarted
	PendingPaused
	PendingResumed
	PendingStopped
)

func (p PendingEvent) String() string {
	switch p {
	case PendingNone:
		return "NONE"
	case PendingStarted:
		return "STARTED"
	case PendingPaused:
		return "PAUSED"
	case PendingResumed:
		return "RESUMED"
	case PendingStopped:
		return "STOPPED"
	default:
		return fmt.Sprintf("PendingEvent(%d)", int(p))
	}
}

// event maps a pending event onto the lifecycle event emitted when it is confirmed or flushed
func (p PendingEvent) event() (EventKind, bool) {
	switch p {
	case PendingStarted:
		return EventStarted, true
	case PendingPaused:
		return EventPaused, true
	case PendingResumed:
		return EventResumed, true
	case PendingStopped:
		return EventStopped, true
	default:
		return 0, false
	}
}

// CommandInitiator records the most recently completed caller command
type CommandInitiator int

const (
	InitiatorNone CommandInitiator = iota
	InitiatorPlay
	InitiatorPause
	InitiatorResume
	InitiatorStop
)

func (c CommandInitiator) String() string {
	switch c {
	case InitiatorNone:
		return "NONE"
	case InitiatorPlay:
		return "PLAY"
	case InitiatorPause:
		return "PAUSE"
	case InitiatorResume:
		return "RESUME"
	case InitiatorStop:
		return "STOP"
	default:
		return fmt.Sprintf("CommandInitiator(%d)", int(c))
	}
}

// Ducker is an actor allowed to attenuate the channel
type Ducker int

const (
	// DuckerUpstream is the voice-driven requester above the channel
	DuckerUpstream Ducker = iota
	// DuckerPlatform is the platform audio system below the channel
	DuckerPlatform
)

func (d Ducker) String() string {
	switch d {
	case DuckerUpstream:
		return "upstream"
	case DuckerPlatform:
		return "platform"
	default:
		return fmt.Sprintf("Ducker(%d)", int(d))
	}
}

// DuckingState records which actor currently holds the attenuation
type DuckingState int

const (
	DuckingNone DuckingState = iota
	DuckedByUpstream
	DuckedByPlatform
)

func (d DuckingState) String() string {
	switch d {
	case DuckingNone:
		return "NONE"
	case DuckedByUpstream:
		return "DUCKED_BY_UPSTREAM"
	case DuckedByPlatform:
		return "DUCKED_BY_PLATFORM"
	default:
		return fmt.Sprintf("DuckingState(%d)", int(d))
	}
}

// FocusAction is a ducking report raised by the platform
type FocusAction int

const (
	FocusDuckingStarted FocusAction = iota
	FocusDuckingStopped
)

func (f FocusAction) String() string {
	switch f {
	case FocusDuckingStarted:
		return "REPORT_DUCKING_STARTED"
	case FocusDuckingStopped:
		return "REPORT_DUCKING_STOPPED"
	default:
		return fmt.Sprintf("FocusAction(%d)", int(f))
	}
}

// MediaError classifies a playback failure reported by the sink
type MediaError int

const (
	MediaErrorUnknown MediaError = iota
	MediaErrorInvalidRequest
	MediaErrorServiceUnavailable
	MediaErrorInternalServerError
	MediaErrorInternalDeviceError
)

func (e MediaError) String() string {
	switch e {
	case MediaErrorUnknown:
		return "MEDIA_ERROR_UNKNOWN"
	case MediaErrorInvalidRequest:
		return "MEDIA_ERROR_INVALID_REQUEST"
	case MediaErrorServiceUnavailable:
		return "MEDIA_ERROR_SERVICE_UNAVAILABLE"
	case MediaErrorInternalServerError:
		return "MEDIA_ERROR_INTERNAL_SERVER_ERROR"
	case MediaErrorInternalDeviceError:
		return "MEDIA_ERROR_INTERNAL_DEVICE_ERROR"
	default:
		return fmt.Sprintf("MediaError(%d)", int(e))
	}
}
