//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// Device is an open HAL device and its queue.
type Device struct {
	Device hal.Device
	Queue  hal.Queue
	Name   string

	instance hal.Instance
	owned    bool
}

// Acquire opens a device on the Vulkan backend, preferring discrete and
// integrated GPUs over software adapters.
func Acquire() (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan backend not available", ErrNoDevice)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %w", ErrNoDevice, err)
	}
	d, err := FromInstance(instance)
	if err != nil {
		instance.Destroy()
		return nil, err
	}
	return d, nil
}

// FromInstance opens the preferred adapter of instance. The returned
// Device owns instance and destroys it on Release.
func FromInstance(instance hal.Instance) (*Device, error) {
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return nil, fmt.Errorf("%w: no adapters found", ErrNoDevice)
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrNoDevice, selected.Info.Name, err)
	}

	slogger().Info("gpu: device opened", "adapter", selected.Info.Name)
	return &Device{
		Device:   openDev.Device,
		Queue:    openDev.Queue,
		Name:     selected.Info.Name,
		instance: instance,
		owned:    true,
	}, nil
}

// Shared wraps a device owned by someone else, such as a windowing
// framework. The provider must expose HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue. Release leaves shared devices open.
func Shared(provider any) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("%w: provider does not expose HAL types", ErrNoDevice)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: provider HalDevice is not hal.Device", ErrNoDevice)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: provider HalQueue is not hal.Queue", ErrNoDevice)
	}
	return &Device{Device: device, Queue: queue, Name: "shared"}, nil
}

// Release destroys the device and instance if this Device opened them.
func (d *Device) Release() {
	if !d.owned {
		d.Device, d.Queue = nil, nil
		return
	}
	if d.Device != nil {
		d.Device.Destroy()
		d.Device = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
	d.Queue = nil
}
