package hotplug

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nerrad567/equinox-core/internal/bus"
)

// DefaultCapacity is the slot table size used when Options.Capacity is zero.
const DefaultCapacity = 32

// Logger is the minimal logging interface the registry needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Factory builds the device for a newly visible identity. It runs on the
// attach goroutine and may block on hardware.
type Factory func(id string) (*bus.Device, error)

// Options configures a Registry.
type Options struct {
	// Capacity bounds the number of simultaneously bound devices.
	// DefaultCapacity when zero.
	Capacity int

	// Settle is how long to wait after an arrival signal before scanning,
	// giving slow hardware time to finish enumerating.
	Settle time.Duration

	// Log receives diagnostics. Optional.
	Log Logger
}

// slot is one entry of the fixed-size table. A slot with an id and no device
// has its attach still in flight; doomed marks it for detachment the moment
// the attach completes.
type slot struct {
	id     string
	device *bus.Device
	doomed bool
}

// Registry keeps hardware identities bound to at most one live device each.
type Registry struct {
	core    *bus.Bus
	source  Source
	factory Factory
	opts    Options
	log     Logger

	mu     sync.Mutex
	slots  []slot
	closed bool

	attached uint64
	detached uint64
	rejected uint64

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Stats is a point-in-time snapshot of registry activity.
type Stats struct {
	Capacity int    `json:"capacity"`
	Occupied int    `json:"occupied"`
	Attached uint64 `json:"attached"`
	Detached uint64 `json:"detached"`
	Rejected uint64 `json:"rejected"`
}

// NewRegistry creates a registry binding identities from source to devices
// built by factory and attached to core.
func NewRegistry(core *bus.Bus, source Source, factory Factory, opts Options) (*Registry, error) {
	if core == nil {
		return nil, errors.New("hotplug: bus required")
	}
	if source == nil {
		return nil, errors.New("hotplug: source required")
	}
	if factory == nil {
		return nil, errors.New("hotplug: factory required")
	}
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Log == nil {
		opts.Log = noopLogger{}
	}
	return &Registry{
		core:    core,
		source:  source,
		factory: factory,
		opts:    opts,
		log:     opts.Log,
		slots:   make([]slot, opts.Capacity),
		done:    make(chan struct{}),
	}, nil
}

// Start launches the worker. It scans once for devices already present, then
// serves signals until ctx is cancelled, Close is called or the source closes
// its channel.
func (r *Registry) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.run(ctx)
}

func (r *Registry) run(ctx context.Context) {
	defer r.wg.Done()

	r.scanArrivals()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case ev, ok := <-r.source.Events():
			if !ok {
				return
			}
			switch ev.Kind {
			case EventArrived:
				if !r.settle(ctx) {
					return
				}
				r.scanArrivals()
			case EventLeft:
				r.sweepRemovals()
			default:
				r.log.Warn("unknown hotplug event", "kind", ev.Kind)
			}
		}
	}
}

// settle waits the configured settle delay. Returns false when shut down
// while waiting.
func (r *Registry) settle(ctx context.Context) bool {
	if r.opts.Settle <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-r.done:
		return false
	case <-time.After(r.opts.Settle):
		return true
	}
}

// scanArrivals binds every visible identity that has no slot yet.
func (r *Registry) scanArrivals() {
	ids, err := r.source.Enumerate()
	if err != nil {
		r.log.Error("enumerating devices", "error", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	for _, id := range ids {
		if id == "" || r.slotOf(id) >= 0 {
			continue
		}
		if err := r.bind(id); err != nil {
			r.rejected++
			r.log.Warn("device not bound", "id", id, "error", err)
		}
	}
}

// bind assigns id to the first free slot and launches its attach. Registry
// lock held.
func (r *Registry) bind(id string) error {
	free := -1
	for i := range r.slots {
		if r.slots[i].id == "" {
			free = i
			break
		}
	}
	if free < 0 {
		return ErrNoFreeSlot
	}
	if r.slots[free].device != nil {
		panic("hotplug: free slot holds a device")
	}

	r.slots[free] = slot{id: id}
	r.wg.Add(1)
	go r.attach(free, id)
	return nil
}

// attach builds and attaches the device bound to slot i. Runs on its own
// goroutine so a blocking probe never delays other arrivals.
func (r *Registry) attach(i int, id string) {
	defer r.wg.Done()

	d, err := r.factory(id)
	if err != nil {
		r.log.Error("building device", "id", id, "error", err)
		r.release(i, id)
		return
	}
	if err := r.core.AttachDevice(d); err != nil {
		r.log.Error("attaching device", "id", id, "device", d.Name(), "error", err)
		r.release(i, id)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slots[i].doomed || r.closed {
		// Unplugged, or shut down, while the probe was still running. The
		// device reached the bus, so it counts as one attach and one detach.
		r.slots[i] = slot{}
		r.attached++
		if err := r.core.DetachDevice(d.Name()); err != nil {
			r.log.Error("detaching device", "device", d.Name(), "error", err)
		}
		r.detached++
		r.log.Info("device unplugged during attach", "id", id, "device", d.Name(), "slot", i)
		return
	}
	r.slots[i].device = d
	r.attached++
	r.log.Info("device attached", "id", id, "device", d.Name(), "slot", i)
}

// release frees slot i after a failed attach.
func (r *Registry) release(i int, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slots[i].id == id {
		r.slots[i] = slot{}
	}
}

// sweepRemovals detaches every bound identity that is no longer visible.
func (r *Registry) sweepRemovals() {
	ids, err := r.source.Enumerate()
	if err != nil {
		r.log.Error("enumerating devices", "error", err)
		return
	}
	visible := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		visible[id] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.slots {
		s := &r.slots[i]
		if s.id == "" {
			continue
		}
		if _, ok := visible[s.id]; ok {
			continue
		}
		if s.device == nil {
			s.doomed = true
			continue
		}

		name := s.device.Name()
		if err := r.core.DetachDevice(name); err != nil {
			r.log.Error("detaching device", "device", name, "error", err)
		}
		r.log.Info("device detached", "id", s.id, "device", name, "slot", i)
		r.slots[i] = slot{}
		r.detached++
	}
}

// Close stops the worker, waits out in-flight attaches and detaches every
// bound device. Safe to call more than once.
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		close(r.done)

		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()

		// In-flight attach goroutines detach themselves once they see the
		// closed flag; waiting here drains them before the final sweep.
		r.wg.Wait()

		r.mu.Lock()
		defer r.mu.Unlock()
		for i := range r.slots {
			s := &r.slots[i]
			if s.id == "" || s.device == nil {
				continue
			}
			if err := r.core.DetachDevice(s.device.Name()); err != nil {
				r.log.Error("detaching device", "device", s.device.Name(), "error", err)
			}
			r.slots[i] = slot{}
			r.detached++
		}
	})
}

// Stats reports table occupancy and lifetime counters.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	occupied := 0
	for i := range r.slots {
		if r.slots[i].id != "" {
			occupied++
		}
	}
	return Stats{
		Capacity: len(r.slots),
		Occupied: occupied,
		Attached: r.attached,
		Detached: r.detached,
		Rejected: r.rejected,
	}
}

// slotOf returns the slot index bound to id, or -1. Registry lock held.
func (r *Registry) slotOf(id string) int {
	for i := range r.slots {
		if r.slots[i].id == id {
			return i
		}
	}
	return -1
}
