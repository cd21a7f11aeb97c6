package driver

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/nerrad567/equinox-core/internal/bus"
	"github.com/nerrad567/equinox-core/internal/profile"
	"github.com/nerrad567/equinox-core/internal/property"
	"github.com/nerrad567/equinox-core/internal/transport"
)

// Logger is the minimal logging interface Base needs. Satisfied by
// logging.Logger and by slog-style loggers.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output. Used when no logger is provided.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ProfileStore persists configuration snapshots between runs. Implemented by
// profile.SQLiteStore.
type ProfileStore interface {
	Save(ctx context.Context, device string, slot int, snap profile.Snapshot) error
	Load(ctx context.Context, device string, slot int) (profile.Snapshot, error)
	Delete(ctx context.Context, device string, slot int) error
}

// SerialPort declares that a device talks over a serial line. When set, Base
// defines the DEVICE_PORT and DEVICE_BAUDRATE properties and persists them
// across configuration saves.
type SerialPort struct {
	// DefaultDevice is the initial port path, such as /dev/ttyUSB0.
	DefaultDevice string

	// DefaultConfig is the initial line mode in BAUD-MODE form, such as
	// 9600-8N1. Empty selects transport.DefaultSerialConfig.
	DefaultConfig string
}

// Options configures a Base.
type Options struct {
	// Driver is the driver name reported in INFO. Required.
	Driver string

	// Version is the driver version string reported in INFO.
	Version string

	// Store persists configuration snapshots. Optional: without one,
	// CONFIG actions fail with an alert but the device works normally.
	Store ProfileStore

	// Serial, when non-nil, adds the serial port properties.
	Serial *SerialPort

	// Log receives diagnostics. Optional.
	Log Logger
}

// Base carries the property set common to every device and implements
// bus.Handler for it. Concrete drivers embed *Base and delegate unclaimed
// requests to it. One Base serves exactly one device; all methods taking a
// *bus.Device run under that device's lock.
type Base struct {
	opts Options
	log  Logger

	attached bool
	slot     int
	persist  []string

	connection *property.Property
	info       *property.Property
	config     *property.Property
	profiles   *property.Property
	port       *property.Property
	baudrate   *property.Property
}

// NewBase creates the common handler layer for one device.
func NewBase(opts Options) (*Base, error) {
	if opts.Driver == "" {
		return nil, errors.New("driver: driver name required")
	}
	if opts.Log == nil {
		opts.Log = noopLogger{}
	}
	return &Base{opts: opts, log: opts.Log}, nil
}

// Attach defines the common property set on d. Repeated calls are no-ops.
func (b *Base) Attach(d *bus.Device) error {
	if b.attached {
		return nil
	}

	name := d.Name()

	connection, err := property.NewSwitch(name, ConnectionProperty, property.RuleExactlyOne,
		property.NewSwitchItem(ConnectionConnected, "Connected", false),
		property.NewSwitchItem(ConnectionDisconnected, "Disconnected", true))
	if err != nil {
		return fmt.Errorf("defining %s: %w", ConnectionProperty, err)
	}
	connection.Label = "Connection"
	connection.Group = GroupMain

	info, err := property.New(name, InfoProperty, property.KindText, property.PermReadOnly,
		property.NewTextItem(InfoName, "Device name", name),
		property.NewTextItem(InfoDriver, "Driver", b.opts.Driver),
		property.NewTextItem(InfoVersion, "Driver version", b.opts.Version),
		property.NewTextItem(InfoModel, "Model", ""),
		property.NewTextItem(InfoSerialNumber, "Serial number", ""))
	if err != nil {
		return fmt.Errorf("defining %s: %w", InfoProperty, err)
	}
	info.Label = "Device info"
	info.Group = GroupMain

	config, err := property.NewSwitch(name, ConfigProperty, property.RuleAtMostOne,
		property.NewSwitchItem(ConfigLoad, "Load", false),
		property.NewSwitchItem(ConfigSave, "Save", false),
		property.NewSwitchItem(ConfigRemove, "Remove", false))
	if err != nil {
		return fmt.Errorf("defining %s: %w", ConfigProperty, err)
	}
	config.Label = "Configuration"
	config.Group = GroupOptions

	profileItems := make([]property.Item, 0, profile.SlotCount)
	for i := 0; i < profile.SlotCount; i++ {
		profileItems = append(profileItems,
			property.NewSwitchItem(ProfileItem(i), fmt.Sprintf("Profile #%d", i), i == 0))
	}
	profiles, err := property.NewSwitch(name, ProfileProperty, property.RuleExactlyOne, profileItems...)
	if err != nil {
		return fmt.Errorf("defining %s: %w", ProfileProperty, err)
	}
	profiles.Label = "Profile"
	profiles.Group = GroupOptions

	b.connection = connection
	b.info = info
	b.config = config
	b.profiles = profiles
	b.attached = true
	b.slot = 0

	d.Define(connection, "")
	d.Define(info, "")
	d.Define(config, "")
	d.Define(profiles, "")

	if b.opts.Serial != nil {
		if err := b.defineSerial(d); err != nil {
			return err
		}
	}
	return nil
}

// defineSerial adds the DEVICE_PORT and DEVICE_BAUDRATE properties and marks
// them persistable.
func (b *Base) defineSerial(d *bus.Device) error {
	name := d.Name()
	mode := b.opts.Serial.DefaultConfig
	if mode == "" {
		mode = transport.DefaultSerialConfig
	}

	port, err := property.NewText(name, PortProperty,
		property.NewTextItem(PortItem, "Device path", b.opts.Serial.DefaultDevice))
	if err != nil {
		return fmt.Errorf("defining %s: %w", PortProperty, err)
	}
	port.Label = "Serial port"
	port.Group = GroupPort

	baudrate, err := property.NewText(name, BaudrateProperty,
		property.NewTextItem(BaudrateItem, "Line mode", mode))
	if err != nil {
		return fmt.Errorf("defining %s: %w", BaudrateProperty, err)
	}
	baudrate.Label = "Serial line mode"
	baudrate.Group = GroupPort

	b.port = port
	b.baudrate = baudrate
	d.Define(port, "")
	d.Define(baudrate, "")
	b.Persist(PortProperty, BaudrateProperty)
	return nil
}

// EnumerateProperties announces every visible property matching tmpl to the
// requesting client, in name order.
func (b *Base) EnumerateProperties(d *bus.Device, c bus.Client, tmpl *property.Property) error {
	props := d.Properties()
	sort.Slice(props, func(i, j int) bool { return props[i].Name < props[j].Name })
	for _, p := range props {
		if p.Hidden || !p.Match(tmpl) {
			continue
		}
		d.Announce(c, p, "")
	}
	return nil
}

// Detach releases the base layer. The bus tears down timers and properties
// afterwards, so there is nothing to publish here.
func (b *Base) Detach(d *bus.Device) error {
	d.SetConnected(false)
	b.attached = false
	return nil
}

// Persist marks named properties for capture on a configuration save.
// Drivers call this at attach time for every property whose values should
// survive a restart.
func (b *Base) Persist(names ...string) {
	b.persist = append(b.persist, names...)
}

// Reject publishes a refused change: the live values stay untouched and the
// property goes to alert carrying the reason. The request counts as consumed,
// so the bus reports no error to the submitter.
func (b *Base) Reject(d *bus.Device, live *property.Property, err error) error {
	live.State = property.StateAlert
	d.Update(live, err.Error())
	return nil
}

// SetInfo fills the probe-dependent INFO items and publishes the update.
// Drivers call this once the hardware has identified itself.
func (b *Base) SetInfo(d *bus.Device, model, serial string) {
	if b.info == nil {
		return
	}
	b.info.SetText(InfoModel, model)
	b.info.SetText(InfoSerialNumber, serial)
	b.info.State = property.StateOK
	d.Update(b.info, "")
}

// Connection returns the CONNECTION property, or nil before Attach. Drivers
// claim connection handling by matching against it.
func (b *Base) Connection() *property.Property { return b.connection }

// Info returns the INFO property, or nil before Attach.
func (b *Base) Info() *property.Property { return b.info }

// Slot returns the selected profile slot.
func (b *Base) Slot() int { return b.slot }

// PortSettings returns the configured port path and parsed line mode.
// Fails when the device has no serial support or the mode text is invalid.
func (b *Base) PortSettings() (string, transport.SerialConfig, error) {
	if b.port == nil || b.baudrate == nil {
		return "", transport.SerialConfig{}, errors.New("driver: no serial port configured")
	}
	cfg, err := transport.ParseConfig(b.baudrate.TextValue(BaudrateItem))
	if err != nil {
		return "", transport.SerialConfig{}, err
	}
	return b.port.TextValue(PortItem), cfg, nil
}
