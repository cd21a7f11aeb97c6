package hotplug

// EventKind classifies a hot-plug signal.
type EventKind string

// Hot-plug signal kinds.
const (
	// EventArrived signals that at least one new identity may be visible.
	EventArrived EventKind = "arrived"

	// EventLeft signals that at least one bound identity may be gone.
	EventLeft EventKind = "left"
)

// Event is a hot-plug signal. It carries no identity: the registry resolves
// the actual change by enumerating the source, which keeps lost or duplicated
// signals from corrupting the slot table.
type Event struct {
	Kind EventKind
}

// Source is a watched hardware bus. Implementations deliver an Event whenever
// the set of visible identities may have changed and answer Enumerate with
// the identities visible right now.
type Source interface {
	// Enumerate lists the identities currently visible, in any order.
	Enumerate() ([]string, error)

	// Events returns the signal channel. Closing it stops the registry
	// worker.
	Events() <-chan Event
}
