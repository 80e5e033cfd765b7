package audio

import "errors"

// Common errors for sinks and their output backends
var (
	ErrBackendNotAvailable = errors.New("audio backend not available")
	ErrBackendClosed       = errors.New("audio backend is closed")
	ErrUnsupportedLocator  = errors.New("unsupported source locator")
)

// OutputBackend renders PCM pulled from a Sink. Implementations only move
// bytes to a device; state reporting and source bookkeeping stay in Sink.
//
// Open may be called again for a new source without Close in between.
// Start and Stop must not block on the pull callback.
type OutputBackend interface {
	Name() string
	Open(data *AudioData, pull func(dst []byte) int) error
	Start() error
	Stop() error
	Close() error
}
