package driver

import "fmt"

// Well-known property names defined by Base for every device.
const (
	ConnectionProperty = "CONNECTION"
	InfoProperty       = "INFO"
	ConfigProperty     = "CONFIG"
	ProfileProperty    = "PROFILE"
	PortProperty       = "DEVICE_PORT"
	BaudrateProperty   = "DEVICE_BAUDRATE"
)

// Items of the CONNECTION property.
const (
	ConnectionConnected    = "CONNECTED"
	ConnectionDisconnected = "DISCONNECTED"
)

// Items of the INFO property.
const (
	InfoName         = "NAME"
	InfoDriver       = "DRIVER"
	InfoVersion      = "VERSION"
	InfoModel        = "MODEL"
	InfoSerialNumber = "SERIAL_NUMBER"
)

// Items of the CONFIG property. All three act as momentary buttons: the
// switch springs back to off once the action completes.
const (
	ConfigLoad   = "LOAD"
	ConfigSave   = "SAVE"
	ConfigRemove = "REMOVE"
)

// Items of the serial port properties.
const (
	PortItem     = "PORT"
	BaudrateItem = "BAUD_RATE"
)

// Property groups used for presentation.
const (
	GroupMain    = "Main"
	GroupOptions = "Options"
	GroupPort    = "Port"
)

// ProfileItem returns the item name of profile slot i.
func ProfileItem(i int) string {
	return fmt.Sprintf("PROFILE_%d", i)
}
