package faceslots

import "errors"

var (
	// ErrSlotUnsupported is returned by Select for a location the watch face
	// does not offer for reassignment.
	ErrSlotUnsupported = errors.New("slot not supported")
	// ErrNotRunning is returned by queries and selections made while the
	// coordinator loop is not running.
	ErrNotRunning = errors.New("coordinator not running")
	// ErrAlreadyStarted is returned by a second call to Run.
	ErrAlreadyStarted = errors.New("coordinator already started")
)
