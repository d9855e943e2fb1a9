// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halengine

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// targetFormat is the color format of all frame targets. BGRA8 matches the
// common swap-chain format, so a windowed consumer can adopt these targets
// without a conversion pass.
const targetFormat = gputypes.TextureFormatBGRA8Unorm

// TextureDevice is the subset of hal.Device the frame targets use.
// hal.Device satisfies it; tests substitute a mock.
type TextureDevice interface {
	CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error)
	DestroyTexture(texture hal.Texture)
	CreateTextureView(texture hal.Texture, desc *hal.TextureViewDescriptor) (hal.TextureView, error)
	DestroyTextureView(view hal.TextureView)
}

// FrameTargets owns one render target per frame-in-flight slot. Slot i's
// texture is only ever recorded into while the pacer holds slot i open, so
// the targets need no further synchronization of their own.
type FrameTargets struct {
	device   TextureDevice
	textures []hal.Texture
	views    []hal.TextureView
	width    uint32
	height   uint32
}

// NewFrameTargets creates slots render targets of the given size. Each is a
// single-sample BGRA8 texture usable as a render attachment and copy source.
func NewFrameTargets(device TextureDevice, slots int, width, height uint32) (*FrameTargets, error) {
	if slots < 1 {
		return nil, fmt.Errorf("halengine: slot count must be >= 1, got %d", slots)
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("halengine: invalid target size %dx%d", width, height)
	}
	t := &FrameTargets{device: device, width: width, height: height}
	if err := t.create(slots); err != nil {
		t.Destroy()
		return nil, err
	}
	return t, nil
}

func (t *FrameTargets) create(slots int) error {
	size := hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1}
	for i := 0; i < slots; i++ {
		tex, err := t.device.CreateTexture(&hal.TextureDescriptor{
			Label:         fmt.Sprintf("frame_target_%d", i),
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        targetFormat,
			Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
		})
		if err != nil {
			return fmt.Errorf("create frame target %d: %w", i, err)
		}
		t.textures = append(t.textures, tex)

		view, err := t.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
			Label:         fmt.Sprintf("frame_target_%d_view", i),
			Format:        targetFormat,
			Dimension:     gputypes.TextureViewDimension2D,
			Aspect:        gputypes.TextureAspectAll,
			MipLevelCount: 1,
		})
		if err != nil {
			return fmt.Errorf("create frame target %d view: %w", i, err)
		}
		t.views = append(t.views, view)
	}
	return nil
}

// Slots returns the number of per-slot targets.
func (t *FrameTargets) Slots() int { return len(t.textures) }

// Width returns the target width in pixels.
func (t *FrameTargets) Width() uint32 { return t.width }

// Height returns the target height in pixels.
func (t *FrameTargets) Height() uint32 { return t.height }

// Texture returns slot's render target texture.
func (t *FrameTargets) Texture(slot int) hal.Texture { return t.textures[slot] }

// View returns slot's render target view.
func (t *FrameTargets) View(slot int) hal.TextureView { return t.views[slot] }

// Resize recreates all targets at a new size. The caller must flush the
// pacer first: every slot's previous work must be complete before its
// texture is destroyed.
func (t *FrameTargets) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("halengine: invalid target size %dx%d", width, height)
	}
	slots := len(t.textures)
	t.Destroy()
	t.width = width
	t.height = height
	if err := t.create(slots); err != nil {
		t.Destroy()
		return err
	}
	return nil
}

// Destroy releases all textures and views. Idempotent.
func (t *FrameTargets) Destroy() {
	for _, view := range t.views {
		if view != nil {
			t.device.DestroyTextureView(view)
		}
	}
	t.views = nil
	for _, tex := range t.textures {
		if tex != nil {
			t.device.DestroyTexture(tex)
		}
	}
	t.textures = nil
}
