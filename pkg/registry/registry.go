// Package registry implements DeviceRegistry: the thread-safe owner of every
// device instance StoneGate knows about, real or simulated.
package registry

import (
	"sync"

	"github.com/stonegate-lab/stonegate/pkg/device"
)

// Valid device states surfaced by poll_all.
const (
	StateNominal = "nominal"
	StateWarning = "warning"
	StateFault   = "fault"
	StateUnknown = "unknown"
)

// Measurement is the {state, measurements} envelope poll_all reports per
// device.
type Measurement struct {
	State        string         `json:"state"`
	Measurements map[string]any `json:"measurements"`
}

// Entry pairs a device id with its polled measurement.
type Entry struct {
	ID          string      `json:"id"`
	Measurement Measurement `json:"measurement"`
}

// Registry is an unordered collection of devices keyed by id. The mutex
// guards only the id→device map. PollAll and DescriptorGraph do their device
// work after releasing the lock; ForEach is the exception and runs its
// callback while holding it.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]device.Device
	order   []string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{devices: make(map[string]device.Device)}
}

// Register inserts a device, replacing any existing device under the same
// id.
func (r *Registry) Register(d device.Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.devices[d.ID()]; !exists {
		r.order = append(r.order, d.ID())
	}
	r.devices[d.ID()] = d
}

// Get looks up a device by id.
func (r *Registry) Get(id string) (device.Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[id]
	return d, ok
}

// ForEach applies fn to every device under the registry lock. fn must not
// block or re-enter the registry.
func (r *Registry) ForEach(fn func(device.Device)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		fn(r.devices[id])
	}
}

// snapshot takes a consistent copy of the current device list under a single
// lock acquisition, so callers can do device work (which may take time)
// without holding the registry mutex.
func (r *Registry) snapshot() []device.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]device.Device, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.devices[id])
	}
	return out
}

// DescriptorGraph returns every device's descriptor.
func (r *Registry) DescriptorGraph() []device.Descriptor {
	devices := r.snapshot()
	out := make([]device.Descriptor, len(devices))
	for i, d := range devices {
		out[i] = d.Descriptor()
	}
	return out
}

// PollAll reads every device exactly once. Because the device list is
// snapshotted under a single lock acquisition up front, concurrent
// Register calls cannot cause a device to be polled twice or skipped
// within one PollAll invocation.
func (r *Registry) PollAll() []Entry {
	devices := r.snapshot()
	out := make([]Entry, len(devices))
	for i, d := range devices {
		out[i] = Entry{
			ID: d.ID(),
			Measurement: Measurement{
				State:        normalizeState(d.Descriptor().Status),
				Measurements: d.ReadMeasurement(),
			},
		}
	}
	return out
}

func normalizeState(status string) string {
	switch status {
	case StateNominal, StateWarning, StateFault, StateUnknown:
		return status
	default:
		return StateNominal
	}
}
