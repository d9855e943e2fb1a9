// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framepace

import "time"

// NoTimeout disables the timeout on a blocking wait. A wait with NoTimeout
// only returns when the target value is reached or the engine fails.
const NoTimeout time.Duration = 1<<63 - 1

// Engine is the submit/signal/wait capability of an execution backend.
//
// The producer side of the protocol (FenceTracker, Pacer) is written
// entirely against this interface; the gogpu/wgpu binding lives in
// internal/halengine. An Engine is driven from a single producer goroutine.
// CompletedValue must be safe to call from that goroutine at any time,
// including while a signal request is still pending on the consumer.
type Engine interface {
	// SignalValue asynchronously requests that the consumer report value
	// once all work enqueued before this call has completed. Non-blocking;
	// the consumer may take arbitrary time to honor the request. Values
	// must be submitted in strictly increasing order.
	SignalValue(value uint64) error

	// CompletedValue returns the highest value the consumer is known to
	// have reported. Non-blocking. The result never decreases and never
	// exceeds the last submitted signal value.
	CompletedValue() (uint64, error)

	// WaitValue blocks the calling goroutine until the consumer reports a
	// value >= value, or until timeout elapses. Returns false if the
	// timeout expired first. The comparison is against the exact requested
	// value: concurrent pending signals must not be conflated.
	WaitValue(value uint64, timeout time.Duration) (bool, error)
}
