package hotplug

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/equinox-core/internal/bus"
	"github.com/nerrad567/equinox-core/internal/property"
)

// stubHandler is a minimal bus.Handler defining one property at attach.
type stubHandler struct {
	attachErr error
}

func (h *stubHandler) Attach(d *bus.Device) error {
	if h.attachErr != nil {
		return h.attachErr
	}
	p, err := property.NewNumber(d.Name(), "CCD_GAIN",
		property.NewNumberItem("GAIN", "Gain", 0, 100, 1, 50))
	if err != nil {
		return err
	}
	d.Define(p, "")
	return nil
}

func (h *stubHandler) EnumerateProperties(*bus.Device, bus.Client, *property.Property) error {
	return nil
}

func (h *stubHandler) ChangeProperty(*bus.Device, bus.Client, *property.Property) error {
	return bus.ErrNotHandled
}

func (h *stubHandler) Detach(*bus.Device) error { return nil }

// testFactory builds stub devices. Special identities inject failures.
func testFactory(id string) (*bus.Device, error) {
	if id == "reject" {
		return nil, errors.New("probe failed")
	}
	h := &stubHandler{}
	if id == "badattach" {
		h.attachErr = errors.New("no response")
	}
	return bus.NewDevice("Camera "+id, h), nil
}

// fakeSource simulates a pluggable hardware bus.
type fakeSource struct {
	mu      sync.Mutex
	present map[string]struct{}
	events  chan Event
	once    sync.Once
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		present: make(map[string]struct{}),
		events:  make(chan Event, 64),
	}
}

func (s *fakeSource) Plug(id string) {
	s.mu.Lock()
	s.present[id] = struct{}{}
	s.mu.Unlock()
	s.events <- Event{Kind: EventArrived}
}

func (s *fakeSource) Unplug(id string) {
	s.mu.Lock()
	delete(s.present, id)
	s.mu.Unlock()
	s.events <- Event{Kind: EventLeft}
}

// Poke resends a signal without changing visibility.
func (s *fakeSource) Poke(kind EventKind) {
	s.events <- Event{Kind: kind}
}

func (s *fakeSource) Enumerate() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.present))
	for id := range s.present {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *fakeSource) Events() <-chan Event { return s.events }

func (s *fakeSource) close() {
	s.once.Do(func() { close(s.events) })
}

// newTestRegistry wires a registry to a fresh bus and fake source and starts
// its worker.
func newTestRegistry(t *testing.T, capacity int) (*bus.Bus, *fakeSource, *Registry) {
	t.Helper()

	core := bus.New(nil)
	src := newFakeSource()
	reg, err := NewRegistry(core, src, testFactory, Options{Capacity: capacity})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	reg.Start(ctx)
	t.Cleanup(func() {
		cancel()
		src.close()
		reg.Close()
	})
	return core, src, reg
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestArrivalAttachesDevice(t *testing.T) {
	core, src, reg := newTestRegistry(t, 4)

	src.Plug("cam-1")

	waitFor(t, func() bool { return len(core.Devices()) == 1 }, "device never attached")
	if got := core.Devices()[0]; got != "Camera cam-1" {
		t.Errorf("attached device = %q, want %q", got, "Camera cam-1")
	}

	stats := reg.Stats()
	if stats.Occupied != 1 {
		t.Errorf("occupied = %d, want 1", stats.Occupied)
	}
	if stats.Attached != 1 {
		t.Errorf("attached = %d, want 1", stats.Attached)
	}
}

func TestInitialScanBindsPresentDevices(t *testing.T) {
	core := bus.New(nil)
	src := newFakeSource()
	src.mu.Lock()
	src.present["cam-1"] = struct{}{}
	src.present["cam-2"] = struct{}{}
	src.mu.Unlock()

	reg, err := NewRegistry(core, src, testFactory, Options{Capacity: 4})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	reg.Start(ctx)
	t.Cleanup(func() {
		cancel()
		src.close()
		reg.Close()
	})

	waitFor(t, func() bool { return len(core.Devices()) == 2 }, "initial scan missed devices")
}

func TestDuplicateArrivalBindsOnce(t *testing.T) {
	core, src, reg := newTestRegistry(t, 4)

	src.Plug("cam-1")
	src.Plug("cam-1")
	src.Poke(EventArrived)

	waitFor(t, func() bool { return len(core.Devices()) == 1 }, "device never attached")

	// Give any wrongly spawned second attach a chance to land.
	time.Sleep(20 * time.Millisecond)
	if n := len(core.Devices()); n != 1 {
		t.Errorf("%d devices attached, want 1", n)
	}
	if stats := reg.Stats(); stats.Occupied != 1 || stats.Attached != 1 {
		t.Errorf("stats = %+v, want one occupied slot and one attach", stats)
	}
}

func TestRemovalFreesSlotAndAllowsReturn(t *testing.T) {
	core, src, reg := newTestRegistry(t, 4)

	src.Plug("cam-1")
	waitFor(t, func() bool { return len(core.Devices()) == 1 }, "device never attached")

	src.Unplug("cam-1")
	waitFor(t, func() bool { return len(core.Devices()) == 0 }, "device never detached")
	waitFor(t, func() bool { return reg.Stats().Occupied == 0 }, "slot never freed")

	src.Plug("cam-1")
	waitFor(t, func() bool { return len(core.Devices()) == 1 }, "device never re-attached")

	stats := reg.Stats()
	if stats.Attached != 2 || stats.Detached != 1 {
		t.Errorf("stats = %+v, want 2 attaches and 1 detach", stats)
	}
}

func TestCapacityExhausted(t *testing.T) {
	core, src, reg := newTestRegistry(t, 1)

	src.Plug("cam-1")
	waitFor(t, func() bool { return len(core.Devices()) == 1 }, "first device never attached")

	src.Plug("cam-2")
	waitFor(t, func() bool { return reg.Stats().Rejected >= 1 }, "overflow arrival never rejected")
	if n := len(core.Devices()); n != 1 {
		t.Fatalf("%d devices attached, want 1", n)
	}

	// Freeing the slot and signalling again binds the waiting identity.
	src.Unplug("cam-1")
	waitFor(t, func() bool { return reg.Stats().Occupied == 0 }, "slot never freed")

	src.Poke(EventArrived)
	waitFor(t, func() bool { return len(core.Devices()) == 1 }, "waiting device never attached")
	if got := core.Devices()[0]; got != "Camera cam-2" {
		t.Errorf("attached device = %q, want %q", got, "Camera cam-2")
	}
}

func TestFactoryFailureReleasesSlot(t *testing.T) {
	core, src, reg := newTestRegistry(t, 1)

	src.Plug("reject")
	waitFor(t, func() bool { return reg.Stats().Occupied == 0 }, "failed bind never released")
	if n := len(core.Devices()); n != 0 {
		t.Fatalf("%d devices attached, want 0", n)
	}

	// The slot is usable again.
	src.Unplug("reject")
	src.Plug("cam-1")
	waitFor(t, func() bool { return len(core.Devices()) == 1 }, "device never attached")
}

func TestAttachFailureReleasesSlot(t *testing.T) {
	core, src, reg := newTestRegistry(t, 2)

	src.Plug("badattach")
	waitFor(t, func() bool { return reg.Stats().Occupied == 0 }, "failed attach never released")
	if n := len(core.Devices()); n != 0 {
		t.Errorf("%d devices attached, want 0", n)
	}
}

func TestCloseDetachesEverything(t *testing.T) {
	core, src, reg := newTestRegistry(t, 4)

	src.Plug("cam-1")
	src.Plug("cam-2")
	waitFor(t, func() bool { return len(core.Devices()) == 2 }, "devices never attached")

	reg.Close()

	if n := len(core.Devices()); n != 0 {
		t.Errorf("%d devices still attached after Close, want 0", n)
	}
	if stats := reg.Stats(); stats.Occupied != 0 {
		t.Errorf("occupied = %d after Close, want 0", stats.Occupied)
	}

	// A late arrival signal must not bind anything.
	src.Plug("cam-3")
	time.Sleep(20 * time.Millisecond)
	if n := len(core.Devices()); n != 0 {
		t.Errorf("%d devices attached after Close, want 0", n)
	}
}

func TestChurnConvergesToSingleContext(t *testing.T) {
	core, src, reg := newTestRegistry(t, 2)

	for i := 0; i < 10; i++ {
		src.Plug("cam-1")
		src.Unplug("cam-1")
	}
	waitFor(t, func() bool { return reg.Stats().Occupied == 0 }, "churn never settled")

	src.Plug("cam-1")
	waitFor(t, func() bool { return len(core.Devices()) == 1 }, "device never attached after churn")

	stats := reg.Stats()
	if stats.Occupied != 1 {
		t.Errorf("occupied = %d, want 1", stats.Occupied)
	}
	if stats.Attached != stats.Detached+1 {
		t.Errorf("attached = %d, detached = %d, want exactly one live context",
			stats.Attached, stats.Detached)
	}
}
