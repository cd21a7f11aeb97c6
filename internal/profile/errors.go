package profile

import "errors"

var (
	// ErrNotFound is returned when no snapshot exists for the requested
	// device and slot.
	ErrNotFound = errors.New("profile: snapshot not found")

	// ErrInvalidSlot is returned for slot numbers outside 0 to SlotCount-1.
	ErrInvalidSlot = errors.New("profile: invalid slot")
)
