// Package profile persists device configuration snapshots in SQLite.
//
// A snapshot captures the values of the writable switch, number and text
// properties a driver has marked persistable. Snapshots are keyed by device
// name and a slot number, so each device carries several independent
// configurations that can be saved, reloaded and removed at runtime.
package profile

import (
	"github.com/nerrad567/equinox-core/internal/property"
)

// SlotCount is the number of profile slots each device exposes.
const SlotCount = 5

// SavedItem is one captured item value. Exactly one of the value fields is
// non-nil, matching the kind of the property it was captured from.
type SavedItem struct {
	Name   string   `json:"name"`
	Switch *bool    `json:"switch,omitempty"`
	Number *float64 `json:"number,omitempty"`
	Text   *string  `json:"text,omitempty"`
}

// SavedProperty is the captured state of one property.
type SavedProperty struct {
	Name  string      `json:"name"`
	Items []SavedItem `json:"items"`
}

// Snapshot is the set of captured properties stored under one slot.
type Snapshot []SavedProperty

// Capture records the current values of a property. Only writable switch,
// number and text properties are persistable: lights mirror transient device
// state and blobs are bulk payloads, neither survives a save. Returns false
// when the property cannot be captured.
func Capture(p *property.Property) (SavedProperty, bool) {
	if p == nil || p.Perm == property.PermReadOnly {
		return SavedProperty{}, false
	}
	switch p.Kind {
	case property.KindSwitch, property.KindNumber, property.KindText:
	default:
		return SavedProperty{}, false
	}

	sp := SavedProperty{Name: p.Name, Items: make([]SavedItem, 0, len(p.Items))}
	for _, it := range p.Items {
		si := SavedItem{Name: it.Name}
		switch v := it.Value.(type) {
		case property.Switch:
			on := v.On
			si.Switch = &on
		case property.Number:
			n := v.Value
			si.Number = &n
		case property.Text:
			s := v.Value
			si.Text = &s
		}
		sp.Items = append(sp.Items, si)
	}
	return sp, true
}

// Request rebuilds a change request addressed to device from the captured
// values. The request carries bare values only: bounds, rules and kind checks
// run against the live property when it is applied, so a stale snapshot
// degrades to a rejected request rather than corrupt state.
func (sp SavedProperty) Request(device string) *property.Property {
	req := &property.Property{Device: device, Name: sp.Name}
	for _, si := range sp.Items {
		switch {
		case si.Switch != nil:
			req.Items = append(req.Items, property.NewSwitchItem(si.Name, "", *si.Switch))
		case si.Number != nil:
			req.Items = append(req.Items, property.NewNumberItem(si.Name, "", 0, 0, 0, *si.Number))
		case si.Text != nil:
			req.Items = append(req.Items, property.NewTextItem(si.Name, "", *si.Text))
		}
	}
	return req
}
