package export

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/equinox-core/internal/bus"
	"github.com/nerrad567/equinox-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/equinox-core/internal/property"
)

// Publisher is the transmit side of a broker connection. mqtt.Client
// satisfies it directly; tests substitute an in-memory fake.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger receives structured log events. Satisfied by logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// PublisherOptions configures an MQTTPublisher. The zero value is usable.
type PublisherOptions struct {
	// QoS applied to every publish. Defaults to 1 (at least once), which
	// pairs with retained snapshots: the broker keeps the latest copy and
	// duplicates are harmless because snapshots are absolute.
	QoS byte

	// Buffer is the outbound queue capacity. Snapshots beyond it are
	// dropped rather than stalling the bus. Defaults to 256.
	Buffer int

	// Log receives queue overflow and publish failure events.
	Log Logger
}

func (o PublisherOptions) withDefaults() PublisherOptions {
	if o.QoS == 0 {
		o.QoS = 1
	}
	if o.Buffer <= 0 {
		o.Buffer = 256
	}
	if o.Log == nil {
		o.Log = noopLogger{}
	}
	return o
}

// MQTTPublisher is a bus client that mirrors property state to an MQTT
// broker as retained JSON snapshots.
//
// Define and update events publish the full property under
// equinox/property/{device}/{property} with the retained flag set, so a
// late subscriber immediately receives the current state of every live
// property. Delete events publish an empty retained payload to the same
// topic, which clears the broker's copy. Device messages go out transient
// under equinox/message/{device}.
//
// Callbacks never block: payloads are marshalled inline, then handed to a
// bounded queue drained by a single pump goroutine. When the queue is full
// the event is dropped and counted. Close drains the queue and stops the
// pump; the publisher must be detached from the bus first.
type MQTTPublisher struct {
	id     string
	pub    Publisher
	opts   PublisherOptions
	log    Logger
	topics mqtt.Topics

	queue chan outbound
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once

	published atomic.Uint64
	dropped   atomic.Uint64
}

// outbound is one queued publish. QoS is uniform so only the retained
// flag travels with the payload.
type outbound struct {
	topic    string
	payload  []byte
	retained bool
}

// PublisherStats is a point-in-time snapshot of publisher counters.
type PublisherStats struct {
	Published uint64
	Dropped   uint64
}

// NewMQTTPublisher returns a running publisher. The caller attaches it to
// a bus and closes it after detaching.
//
// Parameters:
//   - pub: broker connection, typically an *mqtt.Client
//   - opts: tuning knobs, zero value acceptable
func NewMQTTPublisher(pub Publisher, opts PublisherOptions) *MQTTPublisher {
	opts = opts.withDefaults()
	p := &MQTTPublisher{
		id:    bus.NewClientID(),
		pub:   pub,
		opts:  opts,
		log:   opts.Log,
		queue: make(chan outbound, opts.Buffer),
		done:  make(chan struct{}),
	}
	p.wg.Add(1)
	go p.pump()
	return p
}

// ID implements bus.Client.
func (p *MQTTPublisher) ID() string { return p.id }

// OnDefineProperty publishes a retained snapshot for a newly defined
// property.
func (p *MQTTPublisher) OnDefineProperty(prop *property.Property, message string) {
	p.snapshot("define", prop, message)
}

// OnUpdateProperty publishes a retained snapshot replacing the previous
// one for this property.
func (p *MQTTPublisher) OnUpdateProperty(prop *property.Property, message string) {
	p.snapshot("update", prop, message)
}

// OnDeleteProperty clears the retained snapshot. An empty retained
// payload removes the message from the broker, so subscribers and late
// joiners both observe the property disappearing.
func (p *MQTTPublisher) OnDeleteProperty(prop *property.Property, message string) {
	p.enqueue(outbound{
		topic:    p.topics.PropertyState(prop.Device, prop.Name),
		retained: true,
	})
}

// OnMessage publishes a transient device message. Messages from the bus
// itself carry no device name and are published under the "core" segment.
func (p *MQTTPublisher) OnMessage(device, message string) {
	segment := device
	if segment == "" {
		segment = "core"
	}
	payload, err := json.Marshal(messagePayload{
		Device:    device,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		p.log.Error("marshal device message", "device", device, "error", err)
		return
	}
	p.enqueue(outbound{
		topic:   p.topics.DeviceMessage(segment),
		payload: payload,
	})
}

// Stats returns publish and drop counters.
func (p *MQTTPublisher) Stats() PublisherStats {
	return PublisherStats{
		Published: p.published.Load(),
		Dropped:   p.dropped.Load(),
	}
}

// Close drains queued publishes and stops the pump goroutine. Safe to
// call more than once. Callbacks arriving after Close are dropped once
// the queue fills; detach from the bus before closing to avoid that.
func (p *MQTTPublisher) Close() error {
	p.once.Do(func() { close(p.done) })
	p.wg.Wait()
	return nil
}

func (p *MQTTPublisher) snapshot(event string, prop *property.Property, message string) {
	payload, err := marshalSnapshot(event, prop, message)
	if err != nil {
		p.log.Error("marshal property snapshot",
			"device", prop.Device,
			"property", prop.Name,
			"error", err)
		return
	}
	p.enqueue(outbound{
		topic:    p.topics.PropertyState(prop.Device, prop.Name),
		payload:  payload,
		retained: true,
	})
}

func (p *MQTTPublisher) enqueue(o outbound) {
	select {
	case p.queue <- o:
	default:
		n := p.dropped.Add(1)
		p.log.Warn("export queue full, dropping event",
			"topic", o.topic,
			"dropped_total", n)
	}
}

func (p *MQTTPublisher) pump() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			// Flush whatever was queued before Close.
			for {
				select {
				case o := <-p.queue:
					p.send(o)
				default:
					return
				}
			}
		case o := <-p.queue:
			p.send(o)
		}
	}
}

func (p *MQTTPublisher) send(o outbound) {
	if err := p.pub.Publish(o.topic, o.payload, p.opts.QoS, o.retained); err != nil {
		p.log.Warn("export publish failed", "topic", o.topic, "error", err)
		return
	}
	p.published.Add(1)
}

// propertySnapshot is the retained JSON envelope for a property.
type propertySnapshot struct {
	Event     string         `json:"event"`
	Timestamp string         `json:"timestamp"`
	Message   string         `json:"message,omitempty"`
	Device    string         `json:"device"`
	Name      string         `json:"name"`
	Label     string         `json:"label,omitempty"`
	Group     string         `json:"group,omitempty"`
	Kind      property.Kind  `json:"kind"`
	Perm      property.Perm  `json:"perm"`
	Rule      property.Rule  `json:"rule,omitempty"`
	State     property.State `json:"state"`
	Items     []itemSnapshot `json:"items"`
}

type itemSnapshot struct {
	Name  string `json:"name"`
	Label string `json:"label,omitempty"`
	Value any    `json:"value"`
}

// blobSnapshot stands in for blob values. Payload bytes stay on the bus;
// the broker sees format and size only.
type blobSnapshot struct {
	Format string `json:"format,omitempty"`
	Size   int    `json:"size"`
}

func marshalSnapshot(event string, prop *property.Property, message string) ([]byte, error) {
	snap := propertySnapshot{
		Event:     event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Message:   message,
		Device:    prop.Device,
		Name:      prop.Name,
		Label:     prop.Label,
		Group:     prop.Group,
		Kind:      prop.Kind,
		Perm:      prop.Perm,
		Rule:      prop.Rule,
		State:     prop.State,
		Items:     make([]itemSnapshot, 0, len(prop.Items)),
	}
	for _, it := range prop.Items {
		value := any(it.Value)
		if b, ok := it.Value.(property.Blob); ok {
			value = blobSnapshot{Format: b.Format, Size: b.Size()}
		}
		snap.Items = append(snap.Items, itemSnapshot{
			Name:  it.Name,
			Label: it.Label,
			Value: value,
		})
	}
	return json.Marshal(snap)
}

// messagePayload is the transient JSON envelope for device messages.
type messagePayload struct {
	Device    string `json:"device,omitempty"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}
