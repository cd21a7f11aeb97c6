package export

import (
	"sync"
	"testing"

	"github.com/nerrad567/equinox-core/internal/bus"
	"github.com/nerrad567/equinox-core/internal/property"
)

// === Test Fixtures ===

type metricPoint struct {
	device   string
	property string
	item     string
	value    float64
}

type fakeWriter struct {
	mu     sync.Mutex
	points []metricPoint
}

func (w *fakeWriter) WritePropertyMetric(device, property, item string, value float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.points = append(w.points, metricPoint{device, property, item, value})
}

func (w *fakeWriter) snapshot() []metricPoint {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]metricPoint(nil), w.points...)
}

// === Recording ===

func TestRecorderFlattensNumberItems(t *testing.T) {
	writer := &fakeWriter{}
	rec := NewRecorder(writer)

	p := numberProperty(t, "CCD Simulator #cam-1", "CCD_FRAME",
		property.NewNumberItem("WIDTH", "Width", 0, 4096, 1, 640),
		property.NewNumberItem("HEIGHT", "Height", 0, 4096, 1, 480))

	rec.OnUpdateProperty(p, "")

	got := writer.snapshot()
	if len(got) != 2 {
		t.Fatalf("points = %d, want 2", len(got))
	}
	want := []metricPoint{
		{"CCD Simulator #cam-1", "CCD_FRAME", "WIDTH", 640},
		{"CCD Simulator #cam-1", "CCD_FRAME", "HEIGHT", 480},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
	if rec.Points() != 2 {
		t.Errorf("Points() = %d, want 2", rec.Points())
	}
}

func TestRecorderRecordsDefines(t *testing.T) {
	writer := &fakeWriter{}
	rec := NewRecorder(writer)

	p := numberProperty(t, "Focuser", "FOCUSER_POSITION",
		property.NewNumberItem("POSITION", "Position", 0, 10000, 1, 5000))

	// The series must start at the device's initial state, not its first
	// change.
	rec.OnDefineProperty(p, "")

	got := writer.snapshot()
	if len(got) != 1 {
		t.Fatalf("points = %d, want 1", len(got))
	}
	if got[0] != (metricPoint{"Focuser", "FOCUSER_POSITION", "POSITION", 5000}) {
		t.Errorf("point = %+v", got[0])
	}
}

func TestRecorderIgnoresNonNumeric(t *testing.T) {
	sw, err := property.NewSwitch("Cam", "CONNECTION", property.RuleExactlyOne,
		property.NewSwitchItem("CONNECTED", "Connected", false),
		property.NewSwitchItem("DISCONNECTED", "Disconnected", true))
	if err != nil {
		t.Fatalf("NewSwitch() error = %v", err)
	}
	txt, err := property.NewText("Cam", "DRIVER_INFO",
		property.NewTextItem("MODEL", "Model", "CCD Simulator"))
	if err != nil {
		t.Fatalf("NewText() error = %v", err)
	}
	light, err := property.NewLight("Cam", "COOLER_STATUS",
		property.NewLightItem("COOLING", "Cooling", property.StateOK))
	if err != nil {
		t.Fatalf("NewLight() error = %v", err)
	}
	blob, err := property.NewBlob("Cam", "CCD_IMAGE",
		property.NewBlobItem("IMAGE", "Image"))
	if err != nil {
		t.Fatalf("NewBlob() error = %v", err)
	}

	tests := []struct {
		name string
		p    *property.Property
	}{
		{"switch", sw},
		{"text", txt},
		{"light", light},
		{"blob", blob},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer := &fakeWriter{}
			rec := NewRecorder(writer)
			rec.OnDefineProperty(tt.p, "")
			rec.OnUpdateProperty(tt.p, "")
			if got := len(writer.snapshot()); got != 0 {
				t.Errorf("points = %d, want 0", got)
			}
		})
	}
}

func TestRecorderIgnoresDeletesAndMessages(t *testing.T) {
	writer := &fakeWriter{}
	rec := NewRecorder(writer)

	p := numberProperty(t, "Cam", "CCD_TEMPERATURE",
		property.NewNumberItem("TEMPERATURE", "Temperature", -50, 50, 0, -10))

	rec.OnDeleteProperty(p, "gone")
	rec.OnMessage("Cam", "cooler off")

	if got := len(writer.snapshot()); got != 0 {
		t.Errorf("points = %d, want 0", got)
	}
	if rec.Points() != 0 {
		t.Errorf("Points() = %d, want 0", rec.Points())
	}
}

// === Bus Integration ===

func TestRecorderOnBus(t *testing.T) {
	writer := &fakeWriter{}
	rec := NewRecorder(writer)

	core := bus.New(nil)
	if err := core.AttachClient(rec, bus.Filter{}); err != nil {
		t.Fatalf("AttachClient() error = %v", err)
	}

	p := numberProperty(t, "Focuser", "FOCUSER_POSITION",
		property.NewNumberItem("POSITION", "Position", 0, 10000, 1, 2500))
	if err := core.AttachDevice(bus.NewDevice("Focuser", &defineOnAttach{props: []*property.Property{p}})); err != nil {
		t.Fatalf("AttachDevice() error = %v", err)
	}

	// Delivery is synchronous, so the point is written by the time
	// AttachDevice returns.
	got := writer.snapshot()
	if len(got) != 1 {
		t.Fatalf("points = %d, want 1", len(got))
	}
	if got[0] != (metricPoint{"Focuser", "FOCUSER_POSITION", "POSITION", 2500}) {
		t.Errorf("point = %+v", got[0])
	}
}
