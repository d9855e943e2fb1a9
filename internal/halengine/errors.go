package halengine

import "errors"

var (
	// ErrNoVulkan is returned when the Vulkan HAL backend is not
	// registered or not available on this system.
	ErrNoVulkan = errors.New("halengine: vulkan backend not available")

	// ErrNoAdapter is returned when adapter enumeration finds no GPU.
	ErrNoAdapter = errors.New("halengine: no GPU adapters found")

	// ErrEngineClosed is returned by operations on a closed engine.
	ErrEngineClosed = errors.New("halengine: engine closed")

	// ErrNoHALProvider is returned when a device provider does not expose
	// the underlying HAL device and queue.
	ErrNoHALProvider = errors.New("halengine: provider does not expose HAL types")
)
