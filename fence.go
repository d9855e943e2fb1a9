// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framepace

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// waitSlice bounds each blocking engine wait issued by WaitContext so that
// context cancellation is observed promptly even on a stalled consumer.
const waitSlice = 50 * time.Millisecond

// FenceTracker owns the monotonic execution counter and the reusable wait
// path of the frame-pacing protocol.
//
// Signal increments the counter and enqueues a completion report on the
// engine; Wait blocks until the consumer has reported a given value. The
// tracker caches the consumer's high-water mark so that waits on
// already-completed values return without touching the engine.
//
// FenceTracker is NOT safe for concurrent use: all calls must come from the
// single producer goroutine that drives the render loop.
type FenceTracker struct {
	engine Engine

	// value is the last counter value returned by Signal. Never decreases.
	value uint64

	// completed caches the consumer's reported progress. Invariant:
	// completed <= value.
	completed uint64

	blockedWaits uint64
	flushes      uint64
}

// NewFenceTracker creates a tracker over the given engine.
func NewFenceTracker(engine Engine) (*FenceTracker, error) {
	if engine == nil {
		return nil, ErrNilEngine
	}
	return &FenceTracker{engine: engine}, nil
}

// Signal increments the execution counter and asynchronously requests that
// the consumer report the new value once all previously enqueued work has
// completed. It returns the new value; the caller remembers it as the value
// the current slot must reach before its resources are reused.
//
// Returned values are strictly increasing by 1 per call. An engine failure
// is fatal and wraps ErrDeviceLost.
func (t *FenceTracker) Signal() (uint64, error) {
	next := t.value + 1
	if err := t.engine.SignalValue(next); err != nil {
		return 0, fmt.Errorf("%w: signal value %d: %w", ErrDeviceLost, next, err)
	}
	t.value = next
	slogger().Debug("fence signal enqueued", "value", next)
	return next, nil
}

// Wait blocks until the consumer has reported target, or timeout elapses.
//
// If the target is already known complete, Wait returns immediately without
// any engine call. Waiting on a value never returned by Signal is a
// programmer error and panics. A timeout returns ErrWaitTimeout
// (recoverable); an engine failure wraps ErrDeviceLost (fatal).
//
// Wait is idempotent: repeating a satisfied wait returns immediately.
func (t *FenceTracker) Wait(target uint64, timeout time.Duration) error {
	done, err := t.fastPath(target)
	if err != nil || done {
		return err
	}
	t.blockedWaits++
	return t.blockOn(target, timeout)
}

// WaitContext is Wait with context-driven cancellation: it blocks until the
// consumer reports target, the context is done, or the context deadline
// passes. The engine wait is issued in bounded slices so cancellation is
// observed within waitSlice even if the consumer never advances.
func (t *FenceTracker) WaitContext(ctx context.Context, target uint64) error {
	done, err := t.fastPath(target)
	if err != nil || done {
		return err
	}
	t.blockedWaits++
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		slice := waitSlice
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining < slice {
				slice = remaining
			}
		}
		if slice <= 0 {
			return context.DeadlineExceeded
		}
		err := t.blockOn(target, slice)
		if err == nil || !errors.Is(err, ErrWaitTimeout) {
			return err
		}
	}
}

// Flush signals the current end of the stream and waits for it, guaranteeing
// that all previously enqueued work has fully completed before returning.
//
// Flush is strictly synchronizing and forfeits all pipelining for the frame
// in which it runs; it belongs in resize, teardown, and device-lost paths,
// not in the steady-state loop. Calling Flush twice in a row is safe; each
// call issues a fresh signal.
func (t *FenceTracker) Flush(timeout time.Duration) error {
	target, err := t.Signal()
	if err != nil {
		return err
	}
	t.flushes++
	return t.Wait(target, timeout)
}

// SignaledValue returns the last value returned by Signal (0 before the
// first signal).
func (t *FenceTracker) SignaledValue() uint64 { return t.value }

// CompletedValue returns the cached consumer high-water mark. It reflects
// progress observed by the most recent Wait, WaitContext, or Flush; it does
// not query the engine.
func (t *FenceTracker) CompletedValue() uint64 { return t.completed }

// BlockedWaits returns how many waits actually had to block on the engine,
// as opposed to being satisfied from the cache or a non-blocking query.
func (t *FenceTracker) BlockedWaits() uint64 { return t.blockedWaits }

// Flushes returns how many full flushes have been issued.
func (t *FenceTracker) Flushes() uint64 { return t.flushes }

// fastPath reports whether target is already complete, first from the cache
// and then from a non-blocking engine query.
func (t *FenceTracker) fastPath(target uint64) (bool, error) {
	if target > t.value {
		panic(fmt.Sprintf("framepace: wait on value %d that was never signaled (last signaled %d)",
			target, t.value))
	}
	if target <= t.completed {
		return true, nil
	}
	done, err := t.engine.CompletedValue()
	if err != nil {
		return false, fmt.Errorf("%w: query completed value: %w", ErrDeviceLost, err)
	}
	if done > t.completed {
		t.completed = done
	}
	return target <= t.completed, nil
}

// blockOn issues a single blocking engine wait against the exact target.
func (t *FenceTracker) blockOn(target uint64, timeout time.Duration) error {
	ok, err := t.engine.WaitValue(target, timeout)
	if err != nil {
		return fmt.Errorf("%w: wait for value %d: %w", ErrDeviceLost, target, err)
	}
	if !ok {
		return fmt.Errorf("%w: value %d not reached within %v", ErrWaitTimeout, target, timeout)
	}
	if target > t.completed {
		t.completed = target
	}
	return nil
}
