// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package device

import (
	"sync"
)

// Registry is the process-wide device set.
type Registry struct {
	mu      sync.Mutex
	devices []*Device
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a device.
func (r *Registry) Add(d *Device) {
	r.mu.Lock()
	r.devices = append(r.devices, d)
	r.mu.Unlock()
}

// Remove drops a device from the registry.  The caller is responsible for
// deactivating it.
func (r *Registry) Remove(d *Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, dev := range r.devices {
		if dev == d {
			r.devices = append(r.devices[:i], r.devices[i+1:]...)
			return
		}
	}
}

// ByUDI finds a device by its stable identifier.
func (r *Registry) ByUDI(udi string) *Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.devices {
		if d.UDI() == udi {
			return d
		}
	}
	return nil
}

// ByIface finds a device by kernel interface name.
func (r *Registry) ByIface(iface string) *Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.devices {
		if d.Iface() == iface {
			return d
		}
	}
	return nil
}

// All returns a snapshot of the registered devices.
func (r *Registry) All() []*Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Device, len(r.devices))
	copy(out, r.devices)
	return out
}
