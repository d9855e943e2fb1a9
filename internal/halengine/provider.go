package halengine

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"
)

// NewEngineFromProvider creates a QueueEngine from a shared device provider,
// typically a gogpu window context. The provider must expose the underlying
// HAL objects via HalDevice() any and HalQueue() any; the generic
// gpucontext.Device handle is not sufficient for fence submits.
func NewEngineFromProvider(provider gpucontext.DeviceProvider) (*QueueEngine, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHALProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHALProvider)
	}
	return NewQueueEngine(device, queue)
}
