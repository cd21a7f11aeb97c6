// Package hotplug binds transient hardware identities to bus devices.
//
// A Source watches the physical (or simulated) bus and reports arrival and
// removal signals on a channel; the signals are pokes, not deltas. A single
// worker owns the slot table and resolves every poke against a fresh
// enumeration of visible identities: new identities are bound to the first
// free slot and attached to the bus on their own goroutine, bound identities
// that disappeared are detached synchronously and their slots freed. Working
// from scans rather than event payloads makes missed, duplicated and
// reordered signals harmless.
//
// # Locking
//
// The registry mutex guards the slot table and orders before every bus and
// device lock: holding it while attaching or detaching is legal, the reverse
// never happens. Attach goroutines touch the table only before the factory
// call and after AttachDevice returns, so a slow probe never stalls signal
// handling for other devices.
package hotplug
