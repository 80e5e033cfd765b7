//go:build !cgo

package audio

import "errors"

var errCGORequired = errors.New(`audiochan requires CGO for the malgo and oto sinks.

Build with CGO_ENABLED=1 and a C compiler installed, or run with --sink null`)

// NewMalgoBackend is unavailable without cgo
func NewMalgoBackend() (OutputBackend, error) {
	return nil, errCGORequired
}

// NewOtoBackend is unavailable without cgo
func NewOtoBackend() (OutputBackend, error) {
	return nil, errCGORequired
}
