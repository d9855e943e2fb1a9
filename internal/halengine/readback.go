// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halengine

import (
	"fmt"
	"image"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framepace"
)

// copyPitchAlignment is the required BytesPerRow alignment for
// texture-to-buffer copies (WebGPU and DX12 mandate 256).
const copyPitchAlignment = 256

// alignBytesPerRow rounds a tight row pitch up to the copy alignment.
func alignBytesPerRow(bytesPerRow uint32) uint32 {
	return (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
}

// Snapshot copies one slot's frame target into CPU memory and returns it as
// an RGBA image. It encodes a staging copy, flushes the tracker so the copy
// (and everything before it) completes, and reads the staging buffer back.
//
// Snapshot is strictly synchronizing and stalls the pipeline; it is meant
// for output capture and tests, not the steady-state loop.
func (r *Renderer) Snapshot(tracker *framepace.FenceTracker, slot int, timeout time.Duration) (*image.RGBA, error) {
	w, h := r.targets.Width(), r.targets.Height()
	bytesPerRow := w * 4
	alignedBytesPerRow := alignBytesPerRow(bytesPerRow)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	stagingBuf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "snapshot_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer r.device.DestroyBuffer(stagingBuf)

	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "snapshot_encoder",
	})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("snapshot"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}

	tex := r.targets.Texture(slot)

	// The target sits in COLOR_ATTACHMENT layout after rendering;
	// CopyTextureToBuffer needs TRANSFER_SRC. No-op outside Vulkan/DX12.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})

	encoder.CopyTextureToBuffer(tex, stagingBuf, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: tex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})

	// Back to RenderAttachment so the slot's next frame can render into it.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	r.engine.Enqueue(cmdBuf)

	if err := tracker.Flush(timeout); err != nil {
		return nil, fmt.Errorf("flush for snapshot: %w", err)
	}

	readback := make([]byte, stagingSize)
	if err := r.queue.ReadBuffer(stagingBuf, 0, readback); err != nil {
		return nil, fmt.Errorf("read staging buffer: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	for row := uint32(0); row < h; row++ {
		src := readback[row*alignedBytesPerRow:]
		dst := img.Pix[int(row)*img.Stride:]
		bgraToRGBA(src[:bytesPerRow], dst[:bytesPerRow])
	}
	return img, nil
}

// bgraToRGBA swaps the B and R channels of packed 4-byte pixels.
func bgraToRGBA(src, dst []byte) {
	for i := 0; i+3 < len(src); i += 4 {
		dst[i] = src[i+2]
		dst[i+1] = src[i+1]
		dst[i+2] = src[i]
		dst[i+3] = src[i+3]
	}
}
