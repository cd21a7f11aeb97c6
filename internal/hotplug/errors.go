package hotplug

import "errors"

var (
	// ErrNoFreeSlot is reported when a new identity arrives with every slot
	// occupied. The identity stays unbound until a slot frees and a later
	// arrival signal triggers a rescan.
	ErrNoFreeSlot = errors.New("hotplug: no free device slot")
)
