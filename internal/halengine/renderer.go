// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halengine

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// triangleShaderSource is the demo shader: interpolated vertex colors over
// a clear background.
const triangleShaderSource = `
struct VertexOutput {
    @builtin(position) pos: vec4<f32>,
    @location(0) color: vec4<f32>,
}

@vertex
fn vs_main(@location(0) position: vec2<f32>, @location(1) color: vec4<f32>) -> VertexOutput {
    var out: VertexOutput;
    out.pos = vec4<f32>(position, 0.0, 1.0);
    out.color = color;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return in.color;
}
`

// triangleVertexStride is 2 position floats plus 4 color floats.
const triangleVertexStride = 24

// Renderer records a colored triangle into per-slot frame targets and hands
// the finished command buffers to a QueueEngine. It exists to exercise the
// full signal/wait cycle end to end; anything that records against
// FrameTargets works the same way.
type Renderer struct {
	device  hal.Device
	queue   hal.Queue
	engine  *QueueEngine
	targets *FrameTargets

	shader     hal.ShaderModule
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline
	vertexBuf  hal.Buffer
	clear      gputypes.Color
}

// NewRenderer creates the triangle pipeline against the given targets.
func NewRenderer(device hal.Device, queue hal.Queue, engine *QueueEngine, targets *FrameTargets) (*Renderer, error) {
	r := &Renderer{
		device:  device,
		queue:   queue,
		engine:  engine,
		targets: targets,
		clear:   gputypes.Color{R: 0.1, G: 0.1, B: 0.1, A: 1},
	}
	if err := r.createPipeline(); err != nil {
		r.Destroy()
		return nil, err
	}
	if err := r.createVertexBuffer(); err != nil {
		r.Destroy()
		return nil, err
	}
	return r, nil
}

// SetClearColor sets the background color for subsequent frames.
func (r *Renderer) SetClearColor(c gputypes.Color) { r.clear = c }

// RecordFrame encodes one frame into slot's target and stages the command
// buffer on the engine. The buffer is submitted by the next fence signal.
func (r *Renderer) RecordFrame(slot int) error {
	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "frame_encoder",
	})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(fmt.Sprintf("frame_slot_%d", slot)); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "frame_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       r.targets.View(slot),
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: r.clear,
		}},
	})
	rp.SetPipeline(r.pipeline)
	rp.SetVertexBuffer(0, r.vertexBuf, 0)
	rp.Draw(3, 1, 0, 0)
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	r.engine.Enqueue(cmdBuf)
	return nil
}

// Destroy releases the pipeline, shader, and vertex buffer. The frame
// targets are owned by the caller and are not touched.
func (r *Renderer) Destroy() {
	if r.vertexBuf != nil {
		r.device.DestroyBuffer(r.vertexBuf)
		r.vertexBuf = nil
	}
	if r.pipeline != nil {
		r.device.DestroyRenderPipeline(r.pipeline)
		r.pipeline = nil
	}
	if r.pipeLayout != nil {
		r.device.DestroyPipelineLayout(r.pipeLayout)
		r.pipeLayout = nil
	}
	if r.shader != nil {
		r.device.DestroyShaderModule(r.shader)
		r.shader = nil
	}
}

func (r *Renderer) createPipeline() error {
	spirv, err := compileShaderToSPIRV(triangleShaderSource)
	if err != nil {
		return fmt.Errorf("compile triangle shader: %w", err)
	}
	shader, err := r.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "triangle_shader",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("create shader module: %w", err)
	}
	r.shader = shader

	pipeLayout, err := r.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "triangle_pipe_layout",
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	r.pipeLayout = pipeLayout

	pipeline, err := r.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "triangle_pipeline",
		Layout: r.pipeLayout,
		Vertex: hal.VertexState{
			Module:     r.shader,
			EntryPoint: "vs_main",
			Buffers:    triangleVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     r.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{{
				Format:    targetFormat,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create render pipeline: %w", err)
	}
	r.pipeline = pipeline
	return nil
}

func (r *Renderer) createVertexBuffer() error {
	data := triangleVertices()
	buf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "triangle_vertices",
		Size:  uint64(len(data)),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create vertex buffer: %w", err)
	}
	r.queue.WriteBuffer(buf, 0, data)
	r.vertexBuf = buf
	return nil
}

func triangleVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: triangleVertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0}, // position
				{Format: gputypes.VertexFormatFloat32x4, Offset: 8, ShaderLocation: 1}, // color
			},
		},
	}
}

// triangleVertices returns one NDC triangle with red, green, and blue
// corners, little-endian packed to match the vertex layout.
func triangleVertices() []byte {
	verts := [][6]float32{
		{0, 0.5, 1, 0, 0, 1},
		{-0.5, -0.5, 0, 1, 0, 1},
		{0.5, -0.5, 0, 0, 1, 1},
	}
	buf := make([]byte, len(verts)*triangleVertexStride)
	off := 0
	for _, v := range verts {
		for _, f := range v {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(f))
			off += 4
		}
	}
	return buf
}
