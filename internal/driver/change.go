package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/equinox-core/internal/bus"
	"github.com/nerrad567/equinox-core/internal/profile"
	"github.com/nerrad567/equinox-core/internal/property"
	"github.com/nerrad567/equinox-core/internal/transport"
)

// ChangeProperty handles requests against the common property set. Anything
// else is reported unclaimed so embedding drivers can fall through to the
// bus's tolerance for unknown properties.
func (b *Base) ChangeProperty(d *bus.Device, _ bus.Client, p *property.Property) error {
	if !b.attached {
		return bus.ErrNotHandled
	}

	switch {
	case b.connection.Match(p):
		return b.changeConnection(d, p)
	case b.config.Match(p):
		return b.changeConfig(d, p)
	case b.profiles.Match(p):
		return b.changeProfile(d, p)
	case b.port != nil && b.port.Match(p):
		return b.changePort(d, p)
	case b.baudrate != nil && b.baudrate.Match(p):
		return b.changeBaudrate(d, p)
	}
	return bus.ErrNotHandled
}

// changeConnection flips the logical connection flag. Drivers with real
// hardware claim CONNECTION themselves; this fallback serves devices whose
// connect involves no handle to open.
func (b *Base) changeConnection(d *bus.Device, p *property.Property) error {
	if err := b.connection.CopyValues(p); err != nil {
		return b.Reject(d, b.connection, err)
	}
	d.SetConnected(b.connection.SwitchOn(ConnectionConnected))
	b.connection.State = property.StateOK
	d.Update(b.connection, "")
	return nil
}

// changeConfig runs the save, load or remove action selected by the request.
// The action switch springs back to off afterwards and the outcome is
// published on the CONFIG state.
func (b *Base) changeConfig(d *bus.Device, p *property.Property) error {
	if err := b.config.CopyValues(p); err != nil {
		return b.Reject(d, b.config, err)
	}

	var err error
	var outcome string
	switch {
	case b.config.SwitchOn(ConfigSave):
		err = b.saveConfig(d)
		outcome = fmt.Sprintf("configuration saved to profile %d", b.slot)
	case b.config.SwitchOn(ConfigLoad):
		err = b.loadConfig(d)
		outcome = fmt.Sprintf("configuration loaded from profile %d", b.slot)
	case b.config.SwitchOn(ConfigRemove):
		err = b.removeConfig(d)
		outcome = fmt.Sprintf("profile %d removed", b.slot)
	default:
		b.config.State = property.StateOK
		d.Update(b.config, "")
		return nil
	}

	for _, name := range []string{ConfigLoad, ConfigSave, ConfigRemove} {
		b.config.SetSwitch(name, false)
	}

	if err != nil {
		b.log.Warn("configuration action failed",
			"device", d.Name(),
			"slot", b.slot,
			"error", err)
		b.config.State = property.StateAlert
		d.Update(b.config, err.Error())
		return nil
	}
	b.config.State = property.StateOK
	d.Update(b.config, outcome)
	return nil
}

// saveConfig captures every property marked persistable and stores the
// snapshot under the selected slot.
func (b *Base) saveConfig(d *bus.Device) error {
	if b.opts.Store == nil {
		return ErrNoStore
	}

	var snap profile.Snapshot
	for _, name := range b.persist {
		p, ok := d.Property(name)
		if !ok {
			continue
		}
		if sp, ok := profile.Capture(p); ok {
			snap = append(snap, sp)
		}
	}
	return b.opts.Store.Save(context.Background(), d.Name(), b.slot, snap)
}

// loadConfig replays the snapshot stored under the selected slot. Each saved
// property goes back through the full handler chain, so driver-side
// validation and side effects apply exactly as for a live client request.
func (b *Base) loadConfig(d *bus.Device) error {
	if b.opts.Store == nil {
		return ErrNoStore
	}

	snap, err := b.opts.Store.Load(context.Background(), d.Name(), b.slot)
	if err != nil {
		return err
	}
	for _, sp := range snap {
		if err := d.Dispatch(nil, sp.Request(d.Name())); err != nil {
			b.log.Warn("applying saved property",
				"device", d.Name(),
				"property", sp.Name,
				"error", err)
		}
	}
	return nil
}

// removeConfig deletes the snapshot under the selected slot. Removing a slot
// that holds nothing succeeds.
func (b *Base) removeConfig(d *bus.Device) error {
	err := ErrNoStore
	if b.opts.Store != nil {
		err = b.opts.Store.Delete(context.Background(), d.Name(), b.slot)
	}
	if errors.Is(err, profile.ErrNotFound) {
		return nil
	}
	return err
}

// changeProfile selects the active configuration slot.
func (b *Base) changeProfile(d *bus.Device, p *property.Property) error {
	if err := b.profiles.CopyValues(p); err != nil {
		return b.Reject(d, b.profiles, err)
	}
	for i := 0; i < profile.SlotCount; i++ {
		if b.profiles.SwitchOn(ProfileItem(i)) {
			b.slot = i
			break
		}
	}
	b.profiles.State = property.StateOK
	d.Update(b.profiles, "")
	return nil
}

// changePort records a new port path. It takes effect on the next connect.
func (b *Base) changePort(d *bus.Device, p *property.Property) error {
	if err := b.port.CopyValues(p); err != nil {
		return b.Reject(d, b.port, err)
	}
	b.port.State = property.StateOK
	d.Update(b.port, "")
	return nil
}

// changeBaudrate records a new line mode. The mode text is parsed before the
// live value is touched, so an unsupported mode leaves the old one in place.
func (b *Base) changeBaudrate(d *bus.Device, p *property.Property) error {
	for _, it := range p.Items {
		if it.Name != BaudrateItem {
			continue
		}
		if txt, ok := it.Value.(property.Text); ok {
			if _, err := transport.ParseConfig(txt.Value); err != nil {
				return b.Reject(d, b.baudrate, err)
			}
		}
	}
	if err := b.baudrate.CopyValues(p); err != nil {
		return b.Reject(d, b.baudrate, err)
	}
	b.baudrate.State = property.StateOK
	d.Update(b.baudrate, "")
	return nil
}
