// Package mqtt provides MQTT client connectivity for Equinox Core.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Equinox uses MQTT as an outbound export path. Core is the source of
// truth for device state; it mirrors retained property snapshots and
// transient device messages to the broker so dashboards and recorders
// can follow along without connecting to Core directly.
//
//	Equinox Core → MQTT Broker → Dashboards / Recorders
//
// The client is deliberately publish-only. Commands enter the system
// through property change requests on the bus, never through MQTT, so
// there is no subscribe surface to secure or replay.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.Export.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Publish a retained property snapshot
//	topic := mqtt.Topics{}.PropertyState("CCD Simulator #cam-1", "CCD_EXPOSURE")
//	client.PublishRetained(topic, snapshot)
package mqtt
