package bus

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/equinox-core/internal/property"
)

// Logger abstracts structured logging so the bus does not depend on a
// concrete implementation.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is used when no logger is provided.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type clientEntry struct {
	client Client
	filter Filter
}

// Bus is the central dispatcher: the authoritative registry of attached
// devices and subscribed clients, and the router between them.
type Bus struct {
	mu      sync.RWMutex
	devices map[string]*Device
	clients []clientEntry

	log Logger

	changes  atomic.Uint64
	defines  atomic.Uint64
	updates  atomic.Uint64
	deletes  atomic.Uint64
	messages atomic.Uint64
}

// New creates an empty bus. A nil logger disables logging.
func New(log Logger) *Bus {
	if log == nil {
		log = noopLogger{}
	}
	return &Bus{
		devices: make(map[string]*Device),
		log:     log,
	}
}

// AttachDevice binds a device to the bus and runs its handler's Attach under
// the device lock, letting it define the initial property set. On attach
// failure the device is unbound again and anything it defined is torn down.
func (b *Bus) AttachDevice(d *Device) error {
	if d == nil {
		return ErrNoSuchDevice
	}

	b.mu.Lock()
	if _, exists := b.devices[d.name]; exists {
		b.mu.Unlock()
		b.log.Warn("device already attached", "device", d.name)
		return fmt.Errorf("%w: %s", ErrDeviceExists, d.name)
	}
	b.devices[d.name] = d
	b.mu.Unlock()

	d.mu.Lock()
	d.bus = b
	err := d.handler.Attach(d)
	if err != nil {
		d.deleteAll("")
		d.bus = nil
	}
	d.mu.Unlock()

	if err != nil {
		b.mu.Lock()
		delete(b.devices, d.name)
		b.mu.Unlock()
		b.log.Error("device attach failed", "device", d.name, "error", err)
		return fmt.Errorf("attach %s: %w", d.name, err)
	}

	b.log.Info("device attached", "device", d.name)
	return nil
}

// DetachDevice unbinds the named device, runs its handler's Detach, cancels
// any remaining timers and tears down whatever properties are left. The
// handler is expected to disconnect first; teardown continues even if it
// fails. Safe against concurrent changes: the device lock serialises detach
// behind any in-flight dispatch.
func (b *Bus) DetachDevice(name string) error {
	b.mu.Lock()
	d, ok := b.devices[name]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNoSuchDevice, name)
	}
	delete(b.devices, name)
	b.mu.Unlock()

	d.mu.Lock()
	err := d.handler.Detach(d)
	d.timers.CancelAll()
	d.deleteAll("")
	d.bus = nil
	d.mu.Unlock()

	if err != nil {
		b.log.Error("device detach failed", "device", name, "error", err)
		return fmt.Errorf("detach %s: %w", name, err)
	}

	b.log.Info("device detached", "device", name)
	return nil
}

// AttachClient subscribes a client with the given interest filter. Delivery
// order across clients is subscription order.
func (b *Bus) AttachClient(c Client, f Filter) error {
	if err := f.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, entry := range b.clients {
		if entry.client.ID() == c.ID() {
			return fmt.Errorf("%w: %s", ErrClientExists, c.ID())
		}
	}
	b.clients = append(b.clients, clientEntry{client: c, filter: f})
	b.log.Info("client attached", "client", c.ID())
	return nil
}

// DetachClient removes a subscription. After it returns the client receives
// no further callbacks.
func (b *Bus) DetachClient(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, entry := range b.clients {
		if entry.client.ID() == id {
			b.clients = append(b.clients[:i], b.clients[i+1:]...)
			b.log.Info("client detached", "client", id)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNoSuchClient, id)
}

// SubmitChange routes a client-submitted property to the owning device's
// handler under the device lock. At most one change is in flight per device;
// a concurrent submission blocks here until the lock frees. A change no
// handler layer claims is tolerated and logged. The bus itself never touches
// hardware on this path.
func (b *Bus) SubmitChange(c Client, p *property.Property) error {
	b.changes.Add(1)

	if p == nil || p.Device == "" {
		return ErrNoSuchDevice
	}

	b.mu.RLock()
	d, ok := b.devices[p.Device]
	b.mu.RUnlock()
	if !ok {
		b.log.Debug("change for unknown device", "device", p.Device, "property", p.Name)
		return fmt.Errorf("%w: %s", ErrNoSuchDevice, p.Device)
	}

	d.mu.Lock()
	err := d.Dispatch(c, p)
	d.mu.Unlock()

	if err != nil {
		return fmt.Errorf("change %s.%s: %w", p.Device, p.Name, err)
	}
	return nil
}

// EnumerateProperties asks devices matching tmpl to announce their property
// sets: toward the given client only, or toward every subscriber when c is
// nil. A tmpl naming an unattached device yields ErrNoSuchDevice; otherwise
// devices are visited in name order and the first handler failure is
// reported after all devices have been visited.
func (b *Bus) EnumerateProperties(c Client, tmpl *property.Property) error {
	var targets []*Device

	b.mu.RLock()
	if tmpl != nil && tmpl.Device != "" {
		d, ok := b.devices[tmpl.Device]
		if !ok {
			b.mu.RUnlock()
			return fmt.Errorf("%w: %s", ErrNoSuchDevice, tmpl.Device)
		}
		targets = append(targets, d)
	} else {
		for _, d := range b.devices {
			targets = append(targets, d)
		}
	}
	b.mu.RUnlock()

	sort.Slice(targets, func(i, j int) bool { return targets[i].name < targets[j].name })

	var firstErr error
	for _, d := range targets {
		d.mu.Lock()
		err := d.handler.EnumerateProperties(d, c, tmpl)
		d.mu.Unlock()
		if err != nil && !isNotHandled(err) && firstErr == nil {
			firstErr = fmt.Errorf("enumerate %s: %w", d.name, err)
		}
	}
	return firstErr
}

// Broadcast sends a bus-level message to every client whose filter covers
// the named device; an empty device name reaches every client.
func (b *Bus) Broadcast(device, message string) {
	b.fanOutMessage(device, message)
}

// Devices returns the names of all attached devices in sorted order.
func (b *Bus) Devices() []string {
	b.mu.RLock()
	names := make([]string, 0, len(b.devices))
	for name := range b.devices {
		names = append(names, name)
	}
	b.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Stats is a snapshot of bus activity counters.
type Stats struct {
	Devices  int    `json:"devices"`
	Clients  int    `json:"clients"`
	Changes  uint64 `json:"changes"`
	Defines  uint64 `json:"defines"`
	Updates  uint64 `json:"updates"`
	Deletes  uint64 `json:"deletes"`
	Messages uint64 `json:"messages"`
}

// Stats returns current registry sizes and traffic counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	devices := len(b.devices)
	clients := len(b.clients)
	b.mu.RUnlock()

	return Stats{
		Devices:  devices,
		Clients:  clients,
		Changes:  b.changes.Load(),
		Defines:  b.defines.Load(),
		Updates:  b.updates.Load(),
		Deletes:  b.deletes.Load(),
		Messages: b.messages.Load(),
	}
}

type event int

const (
	eventDefine event = iota
	eventUpdate
	eventDelete
)

// fanOut delivers one property transition to every matching client, in
// subscription order, as an independent deep copy per client. Called with
// the publishing device's lock held; holding the registry read lock across
// delivery keeps a detaching client from receiving callbacks after
// DetachClient has returned.
func (b *Bus) fanOut(ev event, p *property.Property, message string) {
	switch ev {
	case eventDefine:
		b.defines.Add(1)
	case eventUpdate:
		b.updates.Add(1)
	case eventDelete:
		b.deletes.Add(1)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, entry := range b.clients {
		if !entry.filter.Matches(p.Device, p.Name) {
			continue
		}
		deliver(entry.client, ev, p.Clone(), message)
	}
}

// deliverTo announces a property toward a single client, bypassing its
// filter: an explicit enumeration request outranks the passive interest
// declaration.
func (b *Bus) deliverTo(c Client, ev event, p *property.Property, message string) {
	if ev == eventDefine {
		b.defines.Add(1)
	}
	deliver(c, ev, p.Clone(), message)
}

func deliver(c Client, ev event, snap *property.Property, message string) {
	switch ev {
	case eventDefine:
		c.OnDefineProperty(snap, message)
	case eventUpdate:
		c.OnUpdateProperty(snap, message)
	case eventDelete:
		c.OnDeleteProperty(snap, message)
	}
}

// fanOutMessage delivers a device or bus message to matching clients.
func (b *Bus) fanOutMessage(device, message string) {
	b.messages.Add(1)

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, entry := range b.clients {
		if device != "" && !entry.filter.MatchesDevice(device) {
			continue
		}
		entry.client.OnMessage(device, message)
	}
}

func isNotHandled(err error) bool {
	return errors.Is(err, ErrNotHandled)
}
