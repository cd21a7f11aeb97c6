package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WritePropertyMetric writes a single numeric property item to InfluxDB.
//
// This is the primary method for recording device telemetry. Each numeric
// item of a property becomes one point, tagged by device, property, and
// item so series stay low-cardinality and queryable per camera.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - device: Device name (e.g., "CCD Simulator #cam-1")
//   - property: Property name (e.g., "CCD_TEMPERATURE")
//   - item: Item name within the property (e.g., "TEMPERATURE")
//   - value: The numeric value to record
//
// Example:
//
//	client.WritePropertyMetric("CCD Simulator #cam-1", "CCD_TEMPERATURE", "TEMPERATURE", -9.87)
//	client.WritePropertyMetric("CCD Simulator #cam-1", "CCD_EXPOSURE", "EXPOSURE", 2.0)
func (c *Client) WritePropertyMetric(device, property, item string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"property_metrics",
		map[string]string{
			"device":   device,
			"property": property,
			"item":     item,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("slot_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"occupied": 3, "capacity": 32})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
