package gpu

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// HostDevice is a hal device and queue received from a host application,
// together with the format its surfaces use.
type HostDevice struct {
	Device        hal.Device
	Queue         hal.Queue
	SurfaceFormat gputypes.TextureFormat
	Adapter       gpucontext.AdapterInfo
}

// NewDeviceFromProvider extracts the hal device and queue from a
// gpucontext.DeviceProvider. The provider must implement HalDevice() any
// and HalQueue() any returning hal.Device and hal.Queue.
func NewDeviceFromProvider(provider gpucontext.DeviceProvider) (HostDevice, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return HostDevice{}, ErrNoHALProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return HostDevice{}, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return HostDevice{}, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHALProvider)
	}
	format := provider.SurfaceFormat()
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatBGRA8Unorm
	}
	return HostDevice{Device: device, Queue: queue, SurfaceFormat: format, Adapter: provider.AdapterInfo()}, nil
}
