// Package driver provides the base device handler every concrete driver
// builds on.
//
// # Architecture
//
//	┌─────────────────────────────┐
//	│       concrete driver       │  hardware specifics
//	│  (embeds *driver.Base and   │
//	│   delegates what it doesn't │
//	│   claim itself)             │
//	├─────────────────────────────┤
//	│         driver.Base         │  CONNECTION, INFO, CONFIG,
//	│                             │  PROFILE, DEVICE_PORT,
//	│                             │  DEVICE_BAUDRATE
//	├─────────────────────────────┤
//	│           bus               │  routing and fan-out
//	└─────────────────────────────┘
//
// Base implements bus.Handler and owns the property set common to every
// device: the connection switch, static device information, configuration
// save/load/remove and profile slot selection, plus optional serial port
// settings. A concrete driver embeds *Base, claims the properties it owns in
// ChangeProperty and hands everything else to the embedded Base. Requests
// neither layer claims surface as bus.ErrNotHandled and are tolerated by the
// bus.
//
// # Usage
//
//	type camera struct {
//		*driver.Base
//	}
//
//	func (c *camera) ChangeProperty(d *bus.Device, cl bus.Client, p *property.Property) error {
//		switch {
//		case c.Connection().Match(p):
//			return c.connect(d, p)
//		case c.exposure.Match(p):
//			return c.startExposure(d, p)
//		}
//		return c.Base.ChangeProperty(d, cl, p)
//	}
//
// # Thread Safety
//
// Every Base method that takes a *bus.Device runs under that device's lock;
// the bus and the timer framework guarantee it. Base keeps no state shared
// between devices, so one Base instance serves exactly one device.
package driver
