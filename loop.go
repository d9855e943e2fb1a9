// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framepace

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// FrameFunc records one frame's work against the resources of f.Slot.
// It runs between BeginFrame and EndFrame, so the slot is guaranteed free
// of in-flight consumer work for the duration of the call.
type FrameFunc func(ctx context.Context, f Frame) error

// Stats summarizes a finished loop run.
type Stats struct {
	// Frames is the number of completed iterations.
	Frames uint64

	// BlockedWaits counts slot-reuse waits that actually blocked on the
	// engine. A value near Frames means the producer is consumer-bound;
	// near zero means the consumer keeps up.
	BlockedWaits uint64

	// Flushes counts full pipeline flushes, including the final one.
	Flushes uint64

	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration
}

// FPS returns the average frame rate of the run, or 0 for an empty run.
func (s Stats) FPS() float64 {
	if s.Elapsed <= 0 || s.Frames == 0 {
		return 0
	}
	return float64(s.Frames) / s.Elapsed.Seconds()
}

// Loop drives a Pacer through repeated BeginFrame / FrameFunc / EndFrame
// iterations until the context is done or the frame limit is reached,
// then flushes.
//
// A fatal ErrDeviceLost terminates the loop immediately with a diagnostic;
// continuing with undefined synchronization state is never attempted.
// ErrWaitTimeout is also surfaced to the caller, who decides whether to
// retry with a longer timeout or treat the consumer as hung.
type Loop struct {
	pacer     *Pacer
	fn        FrameFunc
	maxFrames uint64
}

// NewLoop creates a loop over an existing pacer. Only WithMaxFrames is
// consulted here; slot count and timeouts are properties of the pacer.
func NewLoop(pacer *Pacer, fn FrameFunc, opts ...Option) (*Loop, error) {
	if pacer == nil {
		return nil, errors.New("framepace: nil pacer")
	}
	if fn == nil {
		return nil, errors.New("framepace: nil frame func")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Loop{pacer: pacer, fn: fn, maxFrames: o.maxFrames}, nil
}

// Run executes the loop. Context cancellation is a normal shutdown: Run
// stops at the next frame boundary, flushes, and returns the stats with a
// nil error. Any other failure is returned after a best-effort flush.
func (l *Loop) Run(ctx context.Context) (Stats, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	runErr := l.iterate(ctx)

	// Shutdown must not release per-slot resources the consumer still
	// references, so flush even on the error path. After a device loss
	// the flush itself fails; the original error wins.
	if err := l.pacer.Flush(); err != nil && runErr == nil && !errors.Is(err, ErrClosed) {
		runErr = fmt.Errorf("final flush: %w", err)
	}

	tracker := l.pacer.Tracker()
	stats := Stats{
		Frames:       l.pacer.FrameCount(),
		BlockedWaits: tracker.BlockedWaits(),
		Flushes:      tracker.Flushes(),
		Elapsed:      time.Since(start),
	}
	if runErr != nil {
		slogger().Error("render loop terminated", "error", runErr, "frames", stats.Frames)
	} else {
		slogger().Info("render loop finished",
			"frames", stats.Frames,
			"blocked_waits", stats.BlockedWaits,
			"elapsed", stats.Elapsed)
	}
	return stats, runErr
}

func (l *Loop) iterate(ctx context.Context) error {
	for frame := uint64(0); l.maxFrames == 0 || frame < l.maxFrames; frame++ {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		f, err := l.pacer.BeginFrame(ctx)
		if err != nil {
			if ctxDone(err) {
				return nil
			}
			return fmt.Errorf("begin frame %d: %w", frame, err)
		}

		if err := l.fn(ctx, f); err != nil {
			// The frame is still signaled so the slot table stays
			// consistent; the recording error is what the caller sees.
			if _, endErr := l.pacer.EndFrame(f); endErr != nil {
				slogger().Warn("end frame after recording error", "error", endErr)
			}
			return fmt.Errorf("record frame %d: %w", frame, err)
		}

		if _, err := l.pacer.EndFrame(f); err != nil {
			return fmt.Errorf("end frame %d: %w", frame, err)
		}
	}
	return nil
}

// ctxDone reports whether err is a context cancellation or deadline rather
// than an engine failure.
func ctxDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
