package driver

import "errors"

var (
	// ErrAlreadyConnected is returned when a driver is asked to open a
	// hardware handle it already holds.
	ErrAlreadyConnected = errors.New("driver: device already connected")

	// ErrNotConnected is returned when an operation needs an open hardware
	// handle and there is none.
	ErrNotConnected = errors.New("driver: device not connected")

	// ErrNoStore is returned for configuration actions when no profile
	// store was configured.
	ErrNoStore = errors.New("driver: no profile store configured")
)
