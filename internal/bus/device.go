package bus

import (
	"sync"

	"github.com/nerrad567/equinox-core/internal/property"
	"github.com/nerrad567/equinox-core/internal/timer"
)

// Handler is the driver side of a device: the four-operation contract every
// driver implements. All four run with the device lock held; they may block
// on hardware there, and only there. A handler that does not recognise a
// property returns ErrNotHandled so the request can fall through to the next
// layer (concrete driver to base driver); any other error means FAILED.
type Handler interface {
	// Attach allocates private state and defines the device's property
	// set. It must be idempotent against a second call.
	Attach(d *Device) error

	// EnumerateProperties defines every property matching tmpl toward the
	// given client, or toward all clients when c is nil. A nil tmpl
	// matches everything.
	EnumerateProperties(d *Device, c Client, tmpl *property.Property) error

	// ChangeProperty applies a client-submitted property. Dispatch is by
	// identity match, not equality.
	ChangeProperty(d *Device, c Client, p *property.Property) error

	// Detach disconnects if still connected and releases private state.
	Detach(d *Device) error
}

// Device is one attached instrument: its name, property set, private driver
// state (held by the Handler), connection flag, lock and timer scheduler.
// Exactly one Device exists per hardware identity while it is attached.
type Device struct {
	name    string
	handler Handler

	mu     sync.Mutex
	timers *timer.Scheduler

	// Guarded by mu.
	bus       *Bus
	props     map[string]*property.Property
	connected bool
}

// NewDevice creates a detached device bound to its driver handler. The
// device becomes live once passed to Bus.AttachDevice.
func NewDevice(name string, h Handler) *Device {
	d := &Device{
		name:    name,
		handler: h,
		props:   make(map[string]*property.Property),
	}
	d.timers = timer.NewScheduler(&d.mu)
	return d
}

// Name returns the device name, the first half of every property identity.
func (d *Device) Name() string { return d.name }

// Timers returns the device's scheduler. Its methods follow the device lock
// discipline described in the timer package.
func (d *Device) Timers() *timer.Scheduler { return d.timers }

// Lock acquires the device lock. Handler methods and timer callbacks already
// run with it held; only code entering from outside the dispatch path needs
// to take it explicitly.
func (d *Device) Lock() { d.mu.Lock() }

// Unlock releases the device lock.
func (d *Device) Unlock() { d.mu.Unlock() }

// Connected reports the connection flag. Device lock held.
func (d *Device) Connected() bool { return d.connected }

// SetConnected records whether the hardware handle is open. Device lock held.
func (d *Device) SetConnected(connected bool) { d.connected = connected }

// Dispatch routes a property request into this device's handler chain, the
// same path SubmitChange takes, but from code already holding the device
// lock: timer bodies and handlers re-applying saved values. An unclaimed
// request is tolerated, as on the bus path. Device lock held.
func (d *Device) Dispatch(c Client, p *property.Property) error {
	err := d.handler.ChangeProperty(d, c, p)
	if isNotHandled(err) {
		if d.bus != nil {
			d.bus.log.Debug("unhandled property change",
				"device", d.name,
				"property", p.Name)
		}
		return nil
	}
	return err
}

// Property returns the named live property, or false if not defined. The
// returned pointer is the live instance: it is mutated and read only under
// the device lock. Device lock held.
func (d *Device) Property(name string) (*property.Property, bool) {
	p, ok := d.props[name]
	return p, ok
}

// Properties returns the live property set in no particular order. Device
// lock held.
func (d *Device) Properties() []*property.Property {
	list := make([]*property.Property, 0, len(d.props))
	for _, p := range d.props {
		list = append(list, p)
	}
	return list
}

// Define registers a property with the device and announces it to matching
// clients. The property's device field is forced to this device's name.
// Defining an already defined name replaces it, which clients observe as a
// fresh definition. Hidden properties are stored but never announced.
// Device lock held.
func (d *Device) Define(p *property.Property, message string) {
	if p == nil {
		return
	}
	p.Device = d.name
	d.props[p.Name] = p
	if p.Hidden || d.bus == nil {
		return
	}
	d.bus.fanOut(eventDefine, p, message)
}

// Update announces a value or state transition of a defined property.
// Device lock held.
func (d *Device) Update(p *property.Property, message string) {
	if p == nil || d.bus == nil || p.Hidden {
		return
	}
	if _, ok := d.props[p.Name]; !ok {
		d.bus.log.Warn("update for undefined property",
			"device", d.name,
			"property", p.Name)
		return
	}
	d.bus.fanOut(eventUpdate, p, message)
}

// Delete removes a property from the device and announces the teardown.
// Device lock held.
func (d *Device) Delete(p *property.Property, message string) {
	if p == nil {
		return
	}
	delete(d.props, p.Name)
	if p.Hidden || d.bus == nil {
		return
	}
	d.bus.fanOut(eventDelete, p, message)
}

// Announce re-delivers the definition of a live property: toward a single
// client when c is given (its filter is bypassed, an explicit enumeration
// request outranks passive interest), toward all matching clients when c is
// nil. Used by enumerate handlers. Device lock held.
func (d *Device) Announce(c Client, p *property.Property, message string) {
	if p == nil || p.Hidden || d.bus == nil {
		return
	}
	if c == nil {
		d.bus.fanOut(eventDefine, p, message)
		return
	}
	d.bus.deliverTo(c, eventDefine, p, message)
}

// SendMessage broadcasts a human-readable message from this device to every
// client whose filter covers it. Device lock held.
func (d *Device) SendMessage(message string) {
	if d.bus == nil {
		return
	}
	d.bus.fanOutMessage(d.name, message)
}

// deleteAll tears down any properties remaining after detach. Device lock
// held.
func (d *Device) deleteAll(message string) {
	for _, p := range d.props {
		d.Delete(p, message)
	}
}
