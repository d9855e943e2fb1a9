// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framepace

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Frame identifies one iteration of the paced render loop. It is handed out
// by Pacer.BeginFrame and must be returned to Pacer.EndFrame.
type Frame struct {
	// Slot is the frame-in-flight slot this iteration records into.
	// Per-slot producer resources (command allocators, frame targets)
	// indexed by Slot are safe to reuse for the duration of the frame.
	Slot int

	// Index is the zero-based iteration number.
	Index uint64

	// retired is the fence value waited on before the slot was handed
	// out, kept for diagnostics.
	retired uint64
}

// RetiredValue returns the fence value the slot's previous use had to reach
// before this frame could begin (0 when the slot had never been used).
func (f Frame) RetiredValue() uint64 { return f.retired }

// Pacer runs the composite per-iteration protocol of the frame-pacing
// core. Each iteration is strictly ordered:
//
//  1. advance to the next slot (round-robin)
//  2. wait on that slot's stored fence value from N iterations ago
//  3. the caller records new work against the slot's resources
//  4. signal the fence
//  5. store the returned value as the slot's new target
//
// BeginFrame performs steps 1-2, EndFrame performs steps 4-5. Violating
// the order (two BeginFrames in a row, EndFrame for a stale frame) is a
// programmer error and panics.
//
// Pacer is NOT safe for concurrent use: it assumes a single producer
// goroutine, matching the single-writer design of the underlying counter.
type Pacer struct {
	tracker *FenceTracker
	ring    *SlotRing

	waitTimeout time.Duration
	frames      uint64
	open        bool
	closed      bool
}

// NewPacer creates a pacer over the given engine. The number of in-flight
// slots and the per-wait timeout are fixed at construction; see
// WithFramesInFlight and WithWaitTimeout.
func NewPacer(engine Engine, opts ...Option) (*Pacer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	tracker, err := NewFenceTracker(engine)
	if err != nil {
		return nil, err
	}
	return &Pacer{
		tracker:     tracker,
		ring:        NewSlotRing(o.framesInFlight),
		waitTimeout: o.waitTimeout,
	}, nil
}

// BeginFrame advances to the next frame-in-flight slot and blocks until the
// consumer has finished the work previously recorded against it. On return
// the slot's producer-side resources are safe to reuse.
//
// A context with a deadline bounds the wait in addition to the pacer's
// configured timeout. A nil ctx is treated as context.Background().
func (p *Pacer) BeginFrame(ctx context.Context) (Frame, error) {
	if p.closed {
		return Frame{}, ErrClosed
	}
	if p.open {
		panic("framepace: BeginFrame called while a frame is still open")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	slot := p.ring.Advance()
	pending := p.ring.Pending(slot)
	if pending != 0 {
		if err := p.waitSlot(ctx, pending); err != nil {
			return Frame{}, fmt.Errorf("reuse slot %d: %w", slot, err)
		}
	}

	p.open = true
	slogger().Debug("frame begun", "frame", p.frames, "slot", slot, "retired", pending)
	return Frame{Slot: slot, Index: p.frames, retired: pending}, nil
}

// EndFrame signals the fence for the work recorded during the frame and
// stores the returned value as the slot's new reuse target. It returns the
// signaled value.
func (p *Pacer) EndFrame(f Frame) (uint64, error) {
	if p.closed {
		return 0, ErrClosed
	}
	if !p.open {
		panic("framepace: EndFrame called without an open frame")
	}
	if f.Slot != p.ring.Current() || f.Index != p.frames {
		panic(fmt.Sprintf("framepace: EndFrame for stale frame %d slot %d (current frame %d slot %d)",
			f.Index, f.Slot, p.frames, p.ring.Current()))
	}

	value, err := p.tracker.Signal()
	if err != nil {
		// Fatal: the slot keeps its previous target so a later Close
		// does not wait on a value that was never enqueued.
		return 0, err
	}
	p.ring.Retire(f.Slot, value)
	p.frames++
	p.open = false
	return value, nil
}

// Flush signals and waits for everything enqueued so far. Strictly
// synchronizing; see FenceTracker.Flush.
func (p *Pacer) Flush() error {
	if p.closed {
		return ErrClosed
	}
	return p.tracker.Flush(p.waitTimeout)
}

// Close flushes outstanding work and marks the pacer unusable. Destroying
// per-slot resources before Close returns would hand the consumer dangling
// references; callers tear down engine resources only after Close.
// Close is idempotent.
func (p *Pacer) Close() error {
	if p.closed {
		return nil
	}
	err := p.tracker.Flush(p.waitTimeout)
	p.closed = true
	if err != nil {
		return fmt.Errorf("flush on close: %w", err)
	}
	return nil
}

// Tracker exposes the underlying fence tracker for stats and direct waits.
func (p *Pacer) Tracker() *FenceTracker { return p.tracker }

// FramesInFlight returns the fixed slot count N.
func (p *Pacer) FramesInFlight() int { return p.ring.Len() }

// FrameCount returns how many frames have been completed via EndFrame.
func (p *Pacer) FrameCount() uint64 { return p.frames }

// waitSlot waits for a slot's pending value, honoring both the configured
// timeout and the context.
func (p *Pacer) waitSlot(ctx context.Context, pending uint64) error {
	if _, hasDeadline := ctx.Deadline(); hasDeadline || ctx.Done() != nil {
		waitCtx := ctx
		if p.waitTimeout != NoTimeout {
			var cancel context.CancelFunc
			waitCtx, cancel = context.WithTimeout(ctx, p.waitTimeout)
			defer cancel()
		}
		err := p.tracker.WaitContext(waitCtx, pending)
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			// The derived hang-detector deadline expired, not the
			// caller's context: report it as a recoverable timeout,
			// not a shutdown.
			return fmt.Errorf("%w: value %d not reached within %v",
				ErrWaitTimeout, pending, p.waitTimeout)
		}
		return err
	}
	return p.tracker.Wait(pending, p.waitTimeout)
}
