package framepace

import "errors"

// Package errors for frame pacing.
var (
	// ErrNilEngine is returned when a tracker or pacer is constructed
	// without an engine.
	ErrNilEngine = errors.New("framepace: nil engine")

	// ErrDeviceLost wraps engine failures. The execution context cannot make
	// further progress; the caller must tear down and recreate the entire
	// pipeline. There is no local recovery path.
	ErrDeviceLost = errors.New("framepace: device lost")

	// ErrWaitTimeout is returned when a fence wait exceeds its timeout.
	// Recoverable: the caller may retry, extend the timeout, or treat a
	// persistent timeout as a device hang and escalate.
	ErrWaitTimeout = errors.New("framepace: fence wait timed out")

	// ErrClosed is returned when operations are attempted on a closed pacer.
	ErrClosed = errors.New("framepace: pacer is closed")
)
