package bus

import "errors"

// Domain errors for the bus package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, bus.ErrNoSuchDevice) {
//	    // target device is not attached
//	}
var (
	// ErrNoSuchDevice is returned when a change or enumeration names a
	// device that is not attached.
	ErrNoSuchDevice = errors.New("bus: no such device")

	// ErrDeviceExists is returned when attaching a device whose name is
	// already bound. Device identity must be unique across the bus.
	ErrDeviceExists = errors.New("bus: device already attached")

	// ErrClientExists is returned when attaching a client whose ID is
	// already subscribed.
	ErrClientExists = errors.New("bus: client already attached")

	// ErrNoSuchClient is returned when detaching an unknown client ID.
	ErrNoSuchClient = errors.New("bus: no such client")

	// ErrInvalidFilter is returned when a client filter carries a
	// malformed match pattern.
	ErrInvalidFilter = errors.New("bus: invalid filter pattern")

	// ErrNotHandled is the fallthrough sentinel of the driver contract. A
	// handler returns it to pass a request on to the next layer; a change
	// that no layer claims is tolerated and logged, never a bus fault.
	ErrNotHandled = errors.New("bus: property not handled")
)
