// Package property defines the value model shared by every device on the bus:
// typed items grouped into named, stateful properties.
//
// A Property is the unit of control and of publication. It belongs to exactly
// one device, is identified by the (device, name) pair, and carries an ordered
// list of Items. Every item of a property holds a value of the property's
// kind: switch, number, text, light or blob. The property's State field is the
// externally visible progress indicator for whatever operation the property
// represents (idle, ok, busy, alert).
//
// # Key Types
//
//   - Property: named, stateful container of items, owned by a device
//   - Item: one value slot with a stable name and a human label
//   - Value: sealed interface over Switch, Number, Text, Light and Blob
//   - Kind, State, Perm, Rule: the enumerations used throughout the core
//
// # Usage
//
//	p, err := property.NewNumber("CCD Simulator", "CCD_GAIN",
//		property.NewNumberItem("GAIN", "Gain", 0, 100, 1, 34))
//	if err != nil {
//		return err
//	}
//	p.Group = "Camera"
//	p.Label = "Gain"
//
//	// A client-submitted copy is applied by item name. Unknown items are
//	// ignored; out-of-range values reject the whole request and leave the
//	// property untouched.
//	if err := p.CopyValues(request); err != nil {
//		return err
//	}
//
// # Thread Safety
//
// Properties are plain data and carry no locking of their own. A live property
// is mutated only while holding the owning device's lock; snapshots handed to
// subscribers are produced with Clone, which deep-copies items and blob
// payloads so the receiver never observes later mutation.
package property
