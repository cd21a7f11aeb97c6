package ccdsim

import (
	"sort"
	"sync"

	"github.com/nerrad567/equinox-core/internal/bus"
	"github.com/nerrad567/equinox-core/internal/hotplug"
)

// Source is a simulated USB bus for cameras. Units are plugged and unplugged
// programmatically and the changes surface through the hot-plug contract:
// a change signal plus enumeration of what is currently visible.
type Source struct {
	mu      sync.Mutex
	present map[string]struct{}
	events  chan hotplug.Event
	closed  bool
}

// NewSource creates an empty simulated bus.
func NewSource() *Source {
	return &Source{
		present: make(map[string]struct{}),
		events:  make(chan hotplug.Event, 16),
	}
}

// Plug makes the unit id visible and signals an arrival. Plugging a unit
// that is already present does nothing.
func (s *Source) Plug(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, ok := s.present[id]; ok {
		return
	}
	s.present[id] = struct{}{}
	s.signal(hotplug.EventArrived)
}

// Unplug removes the unit id and signals a departure.
func (s *Source) Unplug(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, ok := s.present[id]; !ok {
		return
	}
	delete(s.present, id)
	s.signal(hotplug.EventLeft)
}

// signal delivers without blocking. A full channel drops the signal, which
// is safe under scan semantics: whichever event does get through makes the
// consumer enumerate the accumulated state. Caller holds mu.
func (s *Source) signal(kind hotplug.EventKind) {
	select {
	case s.events <- hotplug.Event{Kind: kind}:
	default:
	}
}

// Enumerate lists the unit ids currently visible, sorted for stable scans.
func (s *Source) Enumerate() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.present))
	for id := range s.present {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Events exposes the arrival and departure signals.
func (s *Source) Events() <-chan hotplug.Event {
	return s.events
}

// Close shuts the simulated bus down. The event channel is closed so a
// consuming registry worker exits; Plug and Unplug become no-ops.
func (s *Source) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}

// Factory adapts the driver to the hot-plug registry: every bound unit id
// gets a fresh device running its own Camera. All cameras share one Options
// value, so failure injection set there applies to each unit.
func Factory(opts Options) hotplug.Factory {
	return func(id string) (*bus.Device, error) {
		cam, err := New(id, opts)
		if err != nil {
			return nil, err
		}
		return bus.NewDevice(DeviceName(opts.Model, id), cam), nil
	}
}
