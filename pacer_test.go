package framepace

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPacerRoundRobin(t *testing.T) {
	engine := &fakeEngine{autoComplete: true}
	p, err := NewPacer(engine)
	if err != nil {
		t.Fatalf("NewPacer: %v", err)
	}

	wantSlots := []int{0, 1, 2, 0, 1}
	for i, want := range wantSlots {
		f, err := p.BeginFrame(context.Background())
		if err != nil {
			t.Fatalf("BeginFrame %d: %v", i, err)
		}
		if f.Slot != want {
			t.Errorf("frame %d slot = %d, want %d", i, f.Slot, want)
		}
		if f.Index != uint64(i) {
			t.Errorf("frame %d index = %d, want %d", i, f.Index, i)
		}
		// Slot reuse at frame i waits on the value signaled 3 frames ago.
		if i >= 3 {
			if got, want := f.RetiredValue(), uint64(i-2); got != want {
				t.Errorf("frame %d retired value = %d, want %d", i, got, want)
			}
		}
		value, err := p.EndFrame(f)
		if err != nil {
			t.Fatalf("EndFrame %d: %v", i, err)
		}
		if value != uint64(i+1) {
			t.Errorf("frame %d signaled value = %d, want %d", i, value, i+1)
		}
	}
	if p.FrameCount() != 5 {
		t.Errorf("FrameCount = %d, want 5", p.FrameCount())
	}
}

func TestPacerFirstFramesDoNotBlock(t *testing.T) {
	// The consumer never completes anything, yet the first N frames must
	// proceed: fresh slots carry no outstanding work.
	engine := &fakeEngine{}
	p, err := NewPacer(engine, WithFramesInFlight(3), WithWaitTimeout(time.Millisecond))
	if err != nil {
		t.Fatalf("NewPacer: %v", err)
	}
	for i := 0; i < 3; i++ {
		f, err := p.BeginFrame(context.Background())
		if err != nil {
			t.Fatalf("BeginFrame %d: %v", i, err)
		}
		if f.RetiredValue() != 0 {
			t.Errorf("frame %d retired value = %d, want 0", i, f.RetiredValue())
		}
		if _, err := p.EndFrame(f); err != nil {
			t.Fatalf("EndFrame %d: %v", i, err)
		}
	}
	if n := engine.waitCallCount(); n != 0 {
		t.Errorf("engine WaitValue calls = %d, want 0", n)
	}
}

func TestPacerBlocksOnSlotReuse(t *testing.T) {
	engine := &fakeEngine{}
	p, err := NewPacer(engine, WithFramesInFlight(2))
	if err != nil {
		t.Fatalf("NewPacer: %v", err)
	}

	for i := 0; i < 2; i++ {
		f, err := p.BeginFrame(context.Background())
		if err != nil {
			t.Fatalf("BeginFrame %d: %v", i, err)
		}
		if _, err := p.EndFrame(f); err != nil {
			t.Fatalf("EndFrame %d: %v", i, err)
		}
	}

	// Frame 2 reuses slot 0, whose previous use signaled value 1. It must
	// block until the consumer reports it.
	type result struct {
		f   Frame
		err error
	}
	done := make(chan result, 1)
	go func() {
		f, err := p.BeginFrame(context.Background())
		done <- result{f, err}
	}()

	select {
	case r := <-done:
		t.Fatalf("BeginFrame returned before completion: %+v, %v", r.f, r.err)
	case <-time.After(20 * time.Millisecond):
	}

	engine.complete(1)
	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("BeginFrame: %v", r.err)
		}
		if r.f.Slot != 0 {
			t.Errorf("slot = %d, want 0", r.f.Slot)
		}
		if r.f.RetiredValue() != 1 {
			t.Errorf("retired value = %d, want 1", r.f.RetiredValue())
		}
	case <-time.After(time.Second):
		t.Fatal("BeginFrame did not return after completion")
	}
	if p.Tracker().BlockedWaits() != 1 {
		t.Errorf("BlockedWaits = %d, want 1", p.Tracker().BlockedWaits())
	}
}

func TestPacerWaitTimeout(t *testing.T) {
	engine := &fakeEngine{}
	p, err := NewPacer(engine, WithFramesInFlight(1), WithWaitTimeout(5*time.Millisecond))
	if err != nil {
		t.Fatalf("NewPacer: %v", err)
	}

	f, err := p.BeginFrame(context.Background())
	if err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	if _, err := p.EndFrame(f); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}

	// Single slot, consumer stalled: the very next frame times out.
	_, err = p.BeginFrame(context.Background())
	if !errors.Is(err, ErrWaitTimeout) {
		t.Errorf("err = %v, want ErrWaitTimeout", err)
	}
}

func TestPacerWaitTimeoutWithCancellableContext(t *testing.T) {
	// A live cancellable context must not change how a stalled consumer is
	// reported: the configured timeout is still ErrWaitTimeout, not a
	// context deadline.
	engine := &fakeEngine{}
	p, err := NewPacer(engine, WithFramesInFlight(1), WithWaitTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewPacer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f, err := p.BeginFrame(ctx)
	if err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	if _, err := p.EndFrame(f); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}

	_, err = p.BeginFrame(ctx)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Errorf("err = %v, want ErrWaitTimeout", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, must not surface as a context deadline", err)
	}
}

func TestPacerContextCancel(t *testing.T) {
	engine := &fakeEngine{}
	p, err := NewPacer(engine, WithFramesInFlight(1))
	if err != nil {
		t.Fatalf("NewPacer: %v", err)
	}

	f, err := p.BeginFrame(context.Background())
	if err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	if _, err := p.EndFrame(f); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.BeginFrame(ctx)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("BeginFrame did not observe cancellation")
	}
}

func TestPacerSequencingPanics(t *testing.T) {
	t.Run("double begin", func(t *testing.T) {
		engine := &fakeEngine{autoComplete: true}
		p, err := NewPacer(engine)
		if err != nil {
			t.Fatalf("NewPacer: %v", err)
		}
		if _, err := p.BeginFrame(context.Background()); err != nil {
			t.Fatalf("BeginFrame: %v", err)
		}
		defer func() {
			if recover() == nil {
				t.Error("second BeginFrame did not panic")
			}
		}()
		_, _ = p.BeginFrame(context.Background())
	})

	t.Run("end without begin", func(t *testing.T) {
		engine := &fakeEngine{autoComplete: true}
		p, err := NewPacer(engine)
		if err != nil {
			t.Fatalf("NewPacer: %v", err)
		}
		defer func() {
			if recover() == nil {
				t.Error("EndFrame without open frame did not panic")
			}
		}()
		_, _ = p.EndFrame(Frame{})
	})

	t.Run("stale frame", func(t *testing.T) {
		engine := &fakeEngine{autoComplete: true}
		p, err := NewPacer(engine)
		if err != nil {
			t.Fatalf("NewPacer: %v", err)
		}
		f, err := p.BeginFrame(context.Background())
		if err != nil {
			t.Fatalf("BeginFrame: %v", err)
		}
		defer func() {
			if recover() == nil {
				t.Error("EndFrame for stale frame did not panic")
			}
		}()
		stale := f
		stale.Slot = f.Slot + 1
		_, _ = p.EndFrame(stale)
	})
}

func TestPacerSignalFailureKeepsSlotTarget(t *testing.T) {
	cause := errors.New("vk: device lost")
	engine := &fakeEngine{autoComplete: true}
	p, err := NewPacer(engine, WithFramesInFlight(2))
	if err != nil {
		t.Fatalf("NewPacer: %v", err)
	}

	f, err := p.BeginFrame(context.Background())
	if err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	engine.signalErr = cause
	if _, err := p.EndFrame(f); !errors.Is(err, ErrDeviceLost) {
		t.Fatalf("EndFrame err = %v, want ErrDeviceLost", err)
	}

	// The failed signal must not have advanced the slot's reuse target.
	if p.Tracker().SignaledValue() != 0 {
		t.Errorf("SignaledValue = %d, want 0", p.Tracker().SignaledValue())
	}
}

func TestPacerClose(t *testing.T) {
	engine := &fakeEngine{autoComplete: true}
	p, err := NewPacer(engine)
	if err != nil {
		t.Fatalf("NewPacer: %v", err)
	}

	f, err := p.BeginFrame(context.Background())
	if err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	if _, err := p.EndFrame(f); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// The close flush drained everything signaled so far.
	if got, want := p.Tracker().CompletedValue(), p.Tracker().SignaledValue(); got != want {
		t.Errorf("CompletedValue = %d, want %d", got, want)
	}

	if _, err := p.BeginFrame(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("BeginFrame after close err = %v, want ErrClosed", err)
	}
	if err := p.Flush(); !errors.Is(err, ErrClosed) {
		t.Errorf("Flush after close err = %v, want ErrClosed", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
