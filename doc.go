// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package framepace coordinates a small number of in-flight frames between
// a CPU producer (command recording) and a GPU consumer (command execution).
//
// # Overview
//
// A render loop that records frame N+2 while the GPU is still executing
// frame N needs exactly one piece of synchronization: a guarantee that the
// per-frame resources it is about to reuse are no longer referenced by
// in-flight GPU work. framepace provides that guarantee with a monotonic
// fence counter, a rotating slot table, and a reusable blocking wait,
// without over-synchronizing (which serializes CPU and GPU) or
// under-synchronizing (which corrupts in-flight resources).
//
// # Quick Start
//
//	// engine is the execution backend's framepace.Engine implementation.
//	pacer, _ := framepace.NewPacer(engine,
//	    framepace.WithFramesInFlight(3))
//	defer pacer.Close()
//
//	for running {
//	    frame, err := pacer.BeginFrame(ctx) // blocks until the slot is free
//	    if err != nil {
//	        break
//	    }
//	    recordCommands(frame.Slot) // safe: GPU is done with this slot
//	    pacer.EndFrame(frame)      // submit + signal the fence
//	}
//
// # Architecture
//
// The library is organized into:
//   - Public API: Engine, FenceTracker, SlotRing, Pacer, Loop
//   - internal/halengine: the gogpu/wgpu HAL binding (device bootstrap,
//     queue-backed engine, per-slot frame targets, readback)
//
// The Engine interface is the only contact surface with the execution
// backend; everything above it is backend-agnostic and fully testable
// without a GPU.
package framepace
