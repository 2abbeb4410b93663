package machine

import "errors"

var (
	ErrPortUnavailable = errors.New("port unavailable")
	ErrPortAlreadyOpen = errors.New("port already open")
	ErrNotConnected    = errors.New("not connected")

	// ErrBusy is returned for commands that would interleave with an
	// active job.
	ErrBusy = errors.New("job in progress")

	ErrInvalidState    = errors.New("invalid state for operation")
	ErrEmptyJob        = errors.New("no lines to send")
	ErrWriteFailure    = errors.New("write failed")
	ErrAckTimeout      = errors.New("timed out waiting for acknowledgement")
	ErrControllerReset = errors.New("controller reset")
	ErrConnectionLost  = errors.New("connection lost")
	ErrClosed          = errors.New("controller closed")
)
