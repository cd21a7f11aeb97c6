// Package bus is the dispatch core connecting device drivers to clients.
//
// It owns the two process-wide registries: attached devices, keyed by device
// name, and subscribed clients in subscription order. Clients submit property
// change requests; the bus routes each to the owning device's handler under
// that device's lock. Devices define, update and delete properties; the bus
// fans every transition out to all clients whose interest filter matches.
//
// # Architecture
//
//	          SubmitChange / EnumerateProperties
//	Client ─────────────────────────────────────────┐
//	   ▲                                            ▼
//	   │                                     ┌──────────────┐
//	   │            fan-out (snapshots)      │     Bus      │
//	   └─────────────────────────────────────│  devices{}   │
//	                                         │  clients[]   │
//	                                         └──────┬───────┘
//	                                                │ device lock
//	                                                ▼
//	                                         ┌──────────────┐
//	        Define / Update / Delete         │    Device    │
//	        (from handler + timer bodies)    │  props{}     │
//	                                         │  Handler     │
//	                                         │  Timers      │
//	                                         └──────────────┘
//
// # Locking
//
// Two lock levels exist: the bus registry lock and one lock per device. The
// bus never holds its write lock while taking a device lock; fan-out runs
// under the registry read lock while the publishing device's lock is held.
// That single permitted nesting gives per-property ordering (updates reach
// every client in the order they were produced) without a deadlock cycle.
// Neither SubmitChange nor the fan-out path ever performs hardware I/O; all
// blocking work happens inside handler methods and timer callbacks, under the
// device lock only.
//
// # Key Types
//
//   - Bus: device and client registries plus routing
//   - Device: one attached instrument, its property set, lock and timers
//   - Handler: the four-operation driver contract (attach, enumerate,
//     change, detach)
//   - Client: a subscriber's identity and delivery callbacks
//   - Filter: per-client interest patterns over device and property names
//
// # Usage
//
//	b := bus.New(logger)
//	dev := bus.NewDevice("CCD Simulator", handler)
//	if err := b.AttachDevice(dev); err != nil {
//		return err
//	}
//
//	b.AttachClient(client, bus.Filter{Devices: []string{"CCD *"}})
//	b.SubmitChange(client, request)
//
// # Thread Safety
//
// All Bus methods are safe for concurrent use from any goroutine. Client
// callbacks receive deep-copied property snapshots and may retain them
// freely; they run synchronously on the publishing goroutine and must not
// block, beyond enqueueing toward whatever remote transport they serve.
package bus
