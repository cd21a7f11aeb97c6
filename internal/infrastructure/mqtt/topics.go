package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for the Equinox MQTT hierarchy.
//
// Core publishes retained property snapshots and transient device messages:
//
//	equinox/property/{device}/{property}  retained JSON snapshot
//	equinox/message/{device}              transient device message
//	equinox/system/status                 core online/offline status (retained, LWT)
const (
	// TopicPrefix is the base for all Equinox topics.
	TopicPrefix = "equinox"

	// TopicPrefixProperty is the base for property snapshot topics.
	TopicPrefixProperty = "equinox/property"

	// TopicPrefixMessage is the base for device message topics.
	TopicPrefixMessage = "equinox/message"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "equinox/system"
)

// Topics provides builders for Equinox MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.PropertyState("CCD Simulator #cam-1", "CCD_EXPOSURE")
//	// Returns: "equinox/property/CCD Simulator -cam-1/CCD_EXPOSURE"
type Topics struct{}

// sanitiseSegment makes a string safe for use as a single topic segment.
//
// Device names may contain characters that are reserved in MQTT topic
// names ('#' and '+' must not appear in a publish topic, '/' would split
// the segment). Each reserved character is replaced with '-' so the
// mapping stays deterministic and the result is always publishable.
func sanitiseSegment(s string) string {
	return strings.NewReplacer("/", "-", "+", "-", "#", "-").Replace(s)
}

// PropertyState returns the retained snapshot topic for a property.
//
// Example: equinox/property/CCD Simulator -cam-1/CCD_EXPOSURE
func (Topics) PropertyState(device, property string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixProperty, sanitiseSegment(device), sanitiseSegment(property))
}

// DeviceMessage returns the transient message topic for a device.
//
// Example: equinox/message/CCD Simulator -cam-1
func (Topics) DeviceMessage(device string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixMessage, sanitiseSegment(device))
}

// SystemStatus returns the system status topic.
//
// Example: equinox/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Downstream Subscribers
// =============================================================================
//
// Core itself only publishes. These patterns are provided for external
// consumers (dashboards, recorders) subscribing to the exported state.

// AllProperties returns a pattern matching every property snapshot.
//
// Pattern: equinox/property/#
func (Topics) AllProperties() string {
	return fmt.Sprintf("%s/#", TopicPrefixProperty)
}

// DeviceProperties returns a pattern matching all properties of one device.
//
// Pattern: equinox/property/{device}/+
func (Topics) DeviceProperties(device string) string {
	return fmt.Sprintf("%s/%s/+", TopicPrefixProperty, sanitiseSegment(device))
}

// AllMessages returns a pattern matching all device messages.
//
// Pattern: equinox/message/+
func (Topics) AllMessages() string {
	return fmt.Sprintf("%s/+", TopicPrefixMessage)
}

// AllTopics returns a pattern matching all Equinox topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: equinox/#
func (Topics) AllTopics() string {
	return "equinox/#"
}
