// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halengine

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framepace"
)

// Device is the subset of hal.Device the engine uses. hal.Device satisfies
// it; tests substitute a mock.
type Device interface {
	CreateFence() (hal.Fence, error)
	DestroyFence(fence hal.Fence)
	Wait(fence hal.Fence, value uint64, timeout time.Duration) (bool, error)
	FreeCommandBuffer(buffer hal.CommandBuffer)
}

// Queue is the subset of hal.Queue the engine uses.
type Queue interface {
	Submit(buffers []hal.CommandBuffer, fence hal.Fence, value uint64) error
}

// submittedBatch tracks command buffers submitted under one fence value so
// they can be freed once the GPU reports the value complete.
type submittedBatch struct {
	value   uint64
	buffers []hal.CommandBuffer
}

// QueueEngine implements framepace.Engine over a single reusable HAL fence.
//
// Command buffers are staged with Enqueue; SignalValue submits the staged
// batch to the queue with the fence set to signal the given value once the
// batch finishes. CompletedValue and WaitValue observe the fence through
// zero-timeout polls and bounded waits. Freed command buffers are returned
// to the device as soon as their batch is known complete.
//
// SignalValue, CompletedValue, and WaitValue are safe to call concurrently
// with each other. Close is not: it destroys the fence immediately, so it
// must not race an in-flight WaitValue. Driving the engine through a Pacer
// satisfies this, since the single-producer protocol issues every wait and
// the teardown flush from one goroutine.
type QueueEngine struct {
	mu     sync.Mutex
	device Device
	queue  Queue
	fence  hal.Fence

	staged       []hal.CommandBuffer
	inFlight     []submittedBatch
	lastSignaled uint64
	completed    uint64
	closed       bool
}

var _ framepace.Engine = (*QueueEngine)(nil)

// NewQueueEngine creates an engine over an already-open device and queue.
// The engine owns the fence it creates but not the device or queue.
func NewQueueEngine(device Device, queue Queue) (*QueueEngine, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("halengine: nil device or queue")
	}
	fence, err := device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("halengine: create fence: %w", err)
	}
	return &QueueEngine{device: device, queue: queue, fence: fence}, nil
}

// Enqueue stages a command buffer for the next SignalValue submit. Ownership
// transfers to the engine; the buffer is freed after its batch completes or
// on Close.
func (e *QueueEngine) Enqueue(buffer hal.CommandBuffer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if buffer != nil {
		e.staged = append(e.staged, buffer)
	}
}

// SignalValue submits the staged command buffers with the fence set to
// signal value on completion. An empty submit is valid and still signals:
// the fence then reports value once all prior queue work has drained.
func (e *QueueEngine) SignalValue(value uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}

	buffers := e.staged
	e.staged = nil
	if err := e.queue.Submit(buffers, e.fence, value); err != nil {
		e.freeBuffers(buffers)
		return fmt.Errorf("submit %d buffers: %w", len(buffers), err)
	}
	if len(buffers) > 0 {
		e.inFlight = append(e.inFlight, submittedBatch{value: value, buffers: buffers})
	}
	e.lastSignaled = value
	return nil
}

// CompletedValue reports the highest fence value the GPU has reached. The
// fence is observed with zero-timeout polls, one value at a time, starting
// just past the last known completion.
func (e *QueueEngine) CompletedValue() (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, ErrEngineClosed
	}
	for v := e.completed + 1; v <= e.lastSignaled; v++ {
		ok, err := e.device.Wait(e.fence, v, 0)
		if err != nil {
			return 0, fmt.Errorf("poll fence value %d: %w", v, err)
		}
		if !ok {
			break
		}
		e.completed = v
	}
	e.releaseCompleted()
	return e.completed, nil
}

// WaitValue blocks until the fence reaches value or timeout elapses. It
// reports false with a nil error on timeout.
func (e *QueueEngine) WaitValue(value uint64, timeout time.Duration) (bool, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false, ErrEngineClosed
	}
	device, fence := e.device, e.fence
	e.mu.Unlock()

	// The device wait runs unlocked so a long block does not starve
	// CompletedValue polls from other goroutines.
	ok, err := device.Wait(fence, value, timeout)
	if err != nil {
		return false, fmt.Errorf("wait fence value %d: %w", value, err)
	}
	if !ok {
		return false, nil
	}

	e.mu.Lock()
	if value > e.completed {
		e.completed = value
	}
	e.releaseCompleted()
	e.mu.Unlock()
	return true, nil
}

// SignaledValue returns the last value submitted with the fence.
func (e *QueueEngine) SignaledValue() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSignaled
}

// Close destroys the fence and frees all staged and in-flight command
// buffers. The caller must have flushed first; Close does not wait.
// Close is idempotent.
func (e *QueueEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true

	e.freeBuffers(e.staged)
	e.staged = nil
	for _, batch := range e.inFlight {
		e.freeBuffers(batch.buffers)
	}
	e.inFlight = nil
	e.device.DestroyFence(e.fence)
	e.fence = nil
}

// releaseCompleted frees command buffers whose batch value has been reached.
// Callers hold e.mu.
func (e *QueueEngine) releaseCompleted() {
	n := 0
	for _, batch := range e.inFlight {
		if batch.value <= e.completed {
			e.freeBuffers(batch.buffers)
			continue
		}
		e.inFlight[n] = batch
		n++
	}
	e.inFlight = e.inFlight[:n]
}

func (e *QueueEngine) freeBuffers(buffers []hal.CommandBuffer) {
	for _, buf := range buffers {
		if buf != nil {
			e.device.FreeCommandBuffer(buf)
		}
	}
}
