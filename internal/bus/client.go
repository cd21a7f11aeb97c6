package bus

import (
	"path"

	"github.com/google/uuid"

	"github.com/nerrad567/equinox-core/internal/property"
)

// Client is a consumer of property traffic: a local in-process subscriber or
// the feed of a remote connection. Callbacks run synchronously on the
// publishing goroutine and receive snapshots the client may retain. A client
// serving a remote transport enqueues there and returns; encoding and
// transmission belong to the transport layer, never to the publish path.
type Client interface {
	// ID returns the stable identity of this client on the bus.
	ID() string

	// OnDefineProperty delivers a newly defined property.
	OnDefineProperty(p *property.Property, message string)

	// OnUpdateProperty delivers a state or value transition.
	OnUpdateProperty(p *property.Property, message string)

	// OnDeleteProperty delivers a property teardown.
	OnDeleteProperty(p *property.Property, message string)

	// OnMessage delivers a broadcast message from a device, or from the
	// bus itself when device is empty.
	OnMessage(device, message string)
}

// NewClientID generates a unique client identity.
func NewClientID() string {
	return uuid.New().String()
}

// Filter selects the traffic a client is interested in. Patterns use
// path.Match syntax ("CCD *", "CCD_*"); an empty pattern list matches
// everything. Device messages are matched against the device patterns only.
type Filter struct {
	Devices    []string
	Properties []string
}

// Validate checks every pattern for well-formedness.
func (f Filter) Validate() error {
	for _, pat := range append(append([]string{}, f.Devices...), f.Properties...) {
		if _, err := path.Match(pat, ""); err != nil {
			return ErrInvalidFilter
		}
	}
	return nil
}

// MatchesDevice reports whether the filter selects the given device.
func (f Filter) MatchesDevice(device string) bool {
	return matchAny(f.Devices, device)
}

// Matches reports whether the filter selects the given property.
func (f Filter) Matches(device, prop string) bool {
	return matchAny(f.Devices, device) && matchAny(f.Properties, prop)
}

func matchAny(patterns []string, name string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pat := range patterns {
		// Patterns are validated at attach time; an error here means a
		// malformed name, which cannot match.
		if ok, err := path.Match(pat, name); err == nil && ok {
			return true
		}
	}
	return false
}
