// Package export mirrors bus traffic to external systems.
//
// Two bus clients live here. MQTTPublisher maintains retained JSON property
// snapshots on an MQTT broker, one topic per property, so dashboards can
// reconstruct full device state from the broker alone. Recorder flattens
// numeric property updates into time-series points for long-term telemetry.
//
// Both clients receive callbacks synchronously on the publishing device's
// goroutine, so neither may block there. The publisher decouples through a
// bounded queue drained by its own goroutine, dropping on overflow; the
// recorder hands points to a write API that batches asynchronously.
//
// # Usage
//
//	pub := export.NewMQTTPublisher(mqttClient, export.PublisherOptions{Log: log})
//	defer pub.Close()
//	core.AttachClient(pub, bus.Filter{})
//
//	rec := export.NewRecorder(influxClient)
//	core.AttachClient(rec, bus.Filter{})
//
// # Topic Layout
//
//	equinox/property/{device}/{property}  retained snapshot, cleared on delete
//	equinox/message/{device}              transient device message
package export
