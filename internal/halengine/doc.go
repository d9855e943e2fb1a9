// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package halengine binds the frame-pacing core to a wgpu HAL device and
// queue. It provides the Engine implementation (a reusable timeline fence
// driven through queue submits), device bootstrap with adapter selection,
// per-slot render targets, and a small triangle renderer used by the demo
// and for end-to-end validation.
package halengine
