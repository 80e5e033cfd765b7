package channel

import "errors"

// Command and reconciliation failures. None of them are fatal: the Command API
// reports them as false and logs the wrapped error.
var (
	ErrInvalidSource              = errors.New("invalid source")
	ErrIllegalStateTransition     = errors.New("illegal state transition")
	ErrSinkOperationFailed        = errors.New("audio sink operation failed")
	ErrUnexpectedCoarseTransition = errors.New("unexpected media state transition")
	ErrDuckingNotPermitted        = errors.New("ducking not permitted for source")
	ErrChannelClosed              = errors.New("channel is shut down")
)
