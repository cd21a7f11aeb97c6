// Package ccdsim implements a simulated CCD camera driver.
//
// The driver carries the full surface of a real camera: a connection
// lifecycle with hardware probing, an exposure state machine driven by device
// timers, abort handling, gain and offset controls, an optional temperature
// sensor polled periodically, and synthetic image payloads. A Source
// simulates the USB bus, so the whole hot-plug path from plug event to
// attached device runs without hardware.
//
// Failure injection and time scaling make the driver usable as a test rig:
// exposures can run at milliseconds per unit and every hardware call can be
// made to fail on demand.
package ccdsim
