package export

import (
	"sync/atomic"

	"github.com/nerrad567/equinox-core/internal/bus"
	"github.com/nerrad567/equinox-core/internal/property"
)

// MetricWriter accepts one numeric sample per property item.
// influxdb.Client satisfies it; tests substitute an in-memory fake.
type MetricWriter interface {
	WritePropertyMetric(device, property, item string, value float64)
}

// Recorder is a bus client that flattens numeric properties into
// time-series points, one per item, tagged with device, property and
// item names.
//
// Only number properties are recorded. Define events are recorded as
// well as updates so the series starts at the device's initial state.
// Deletes and messages carry no numeric payload and are ignored.
//
// Recorder needs no queue of its own: the write API batches points
// asynchronously, so recording from a bus callback does not block the
// publishing device.
type Recorder struct {
	id     string
	writer MetricWriter
	points atomic.Uint64
}

// NewRecorder returns a recorder writing through w.
func NewRecorder(w MetricWriter) *Recorder {
	return &Recorder{id: bus.NewClientID(), writer: w}
}

// ID implements bus.Client.
func (r *Recorder) ID() string { return r.id }

// OnDefineProperty records the initial values of a numeric property.
func (r *Recorder) OnDefineProperty(prop *property.Property, message string) {
	r.record(prop)
}

// OnUpdateProperty records the new values of a numeric property.
func (r *Recorder) OnUpdateProperty(prop *property.Property, message string) {
	r.record(prop)
}

// OnDeleteProperty implements bus.Client. Deletes are not recorded.
func (r *Recorder) OnDeleteProperty(prop *property.Property, message string) {}

// OnMessage implements bus.Client. Messages are not recorded.
func (r *Recorder) OnMessage(device, message string) {}

// Points returns the number of samples written so far.
func (r *Recorder) Points() uint64 {
	return r.points.Load()
}

func (r *Recorder) record(prop *property.Property) {
	if prop.Kind != property.KindNumber {
		return
	}
	for _, it := range prop.Items {
		n, ok := it.Value.(property.Number)
		if !ok {
			continue
		}
		r.writer.WritePropertyMetric(prop.Device, prop.Name, it.Name, n.Value)
		r.points.Add(1)
	}
}
