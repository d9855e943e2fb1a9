// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halengine

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Register the Vulkan backend.
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// GPU owns the HAL instance, device, and queue for a standalone run.
type GPU struct {
	instance    hal.Instance
	device      hal.Device
	queue       hal.Queue
	adapterName string
}

// Open initializes the Vulkan backend, selects an adapter, and opens a
// device. With software set, a CPU (software rasterizer) adapter is
// preferred, which is useful for headless machines and CI.
func Open(software bool) (*GPU, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, ErrNoVulkan
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("halengine: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	selected := selectAdapter(adapters, software)
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("halengine: open device: %w", err)
	}

	slogger().Info("adapter selected",
		"name", selected.Info.Name,
		"type", selected.Info.DeviceType,
		"software", software)
	return &GPU{
		instance:    instance,
		device:      openDev.Device,
		queue:       openDev.Queue,
		adapterName: selected.Info.Name,
	}, nil
}

// selectAdapter picks an adapter by device-type preference: discrete then
// integrated for hardware runs, CPU for software runs. Falls back to the
// first enumerated adapter when nothing matches.
func selectAdapter(adapters []hal.ExposedAdapter, software bool) *hal.ExposedAdapter {
	preference := []gputypes.DeviceType{
		gputypes.DeviceTypeDiscreteGPU,
		gputypes.DeviceTypeIntegratedGPU,
	}
	if software {
		preference = []gputypes.DeviceType{gputypes.DeviceTypeCPU}
	}
	for _, want := range preference {
		for i := range adapters {
			if adapters[i].Info.DeviceType == want {
				return &adapters[i]
			}
		}
	}
	return &adapters[0]
}

// Device returns the open HAL device.
func (g *GPU) Device() hal.Device { return g.device }

// Queue returns the device's queue.
func (g *GPU) Queue() hal.Queue { return g.queue }

// AdapterName returns the name of the selected adapter.
func (g *GPU) AdapterName() string { return g.adapterName }

// HalDevice exposes the HAL device for device-provider consumers.
func (g *GPU) HalDevice() any { return g.device }

// HalQueue exposes the HAL queue for device-provider consumers.
func (g *GPU) HalQueue() any { return g.queue }

// Close destroys the device and instance. All engine and renderer resources
// created from this GPU must be destroyed first.
func (g *GPU) Close() {
	if g.device != nil {
		g.device.Destroy()
		g.device = nil
		g.queue = nil
	}
	if g.instance != nil {
		g.instance.Destroy()
		g.instance = nil
	}
}
