package channel

import (
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
)

// ErrStreamClosed is returned by Stream.Read after Close
var ErrStreamClosed = errors.New("stream is closed")

// Stream is an in-process audio byte stream handed to a sink. Close may be
// called from any goroutine, including while another goroutine is in Read.
type Stream struct {
	reader io.Reader
	closed atomic.Bool
}

// NewStream wraps r. If r is already a *Stream it is returned unchanged.
func NewStream(r io.Reader) *Stream {
	if s, ok := r.(*Stream); ok {
		return s
	}
	return &Stream{reader: r}
}

// Read reads from the underlying reader until the stream is closed
func (s *Stream) Read(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, ErrStreamClosed
	}

	n, err := s.reader.Read(p)
	if err != nil && s.closed.Load() {
		return n, ErrStreamClosed
	}
	return n, err
}

// Close marks the stream closed and closes the underlying reader if it is an io.Closer
func (s *Stream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	slog.Debug("stream closed")
	if closer, ok := s.reader.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// IsClosed reports whether Close has been called
func (s *Stream) IsClosed() bool {
	return s.closed.Load()
}
