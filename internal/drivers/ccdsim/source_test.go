package ccdsim

import (
	"context"
	"testing"
	"time"

	"github.com/nerrad567/equinox-core/internal/bus"
	"github.com/nerrad567/equinox-core/internal/hotplug"
	"github.com/nerrad567/equinox-core/internal/property"
)

func TestSourceEnumerateSorted(t *testing.T) {
	src := NewSource()
	src.Plug("cam-2")
	src.Plug("cam-1")

	ids, err := src.Enumerate()
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if len(ids) != 2 || ids[0] != "cam-1" || ids[1] != "cam-2" {
		t.Errorf("ids = %v, want [cam-1 cam-2]", ids)
	}

	src.Unplug("cam-1")
	ids, _ = src.Enumerate()
	if len(ids) != 1 || ids[0] != "cam-2" {
		t.Errorf("ids = %v, want [cam-2]", ids)
	}
}

func TestSourceSignals(t *testing.T) {
	src := NewSource()

	src.Plug("cam-1")
	select {
	case ev := <-src.Events():
		if ev.Kind != hotplug.EventArrived {
			t.Errorf("kind = %s, want arrived", ev.Kind)
		}
	default:
		t.Fatal("no arrival signal")
	}

	// Plugging the same unit again changes nothing and signals nothing.
	src.Plug("cam-1")
	select {
	case <-src.Events():
		t.Fatal("duplicate plug should not signal")
	default:
	}

	src.Unplug("cam-1")
	select {
	case ev := <-src.Events():
		if ev.Kind != hotplug.EventLeft {
			t.Errorf("kind = %s, want left", ev.Kind)
		}
	default:
		t.Fatal("no departure signal")
	}
}

func TestSourceClose(t *testing.T) {
	src := NewSource()
	src.Close()
	src.Close()

	src.Plug("cam-1")
	if ids, _ := src.Enumerate(); len(ids) != 0 {
		t.Error("plug after close should be a no-op")
	}

	if _, open := <-src.Events(); open {
		t.Error("events channel should be closed")
	}
}

// TestPlugToDevice runs the whole path: a unit plugged into the simulated
// bus surfaces as an attached device with camera properties, and unplugging
// takes it down again.
func TestPlugToDevice(t *testing.T) {
	core := bus.New(nil)
	client := &recordClient{id: "client-1"}
	if err := core.AttachClient(client, bus.Filter{}); err != nil {
		t.Fatalf("AttachClient: %v", err)
	}

	src := NewSource()
	reg, err := hotplug.NewRegistry(core, src, Factory(Options{}), hotplug.Options{Capacity: 4})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	reg.Start(ctx)
	t.Cleanup(func() {
		cancel()
		src.Close()
		reg.Close()
	})

	src.Plug("cam-1")
	waitFor(t, func() bool {
		return len(core.Devices()) == 1
	}, "camera never attached")

	name := core.Devices()[0]
	if want := "CCD Simulator #cam-1"; name != want {
		t.Errorf("device name = %q, want %q", name, want)
	}
	waitFor(t, func() bool {
		return client.sawDefine(ExposureProperty)
	}, "camera properties never announced")

	src.Unplug("cam-1")
	waitFor(t, func() bool {
		return len(core.Devices()) == 0
	}, "camera never detached")
	if !client.sawDelete(ExposureProperty) {
		t.Error("properties should be deleted when the unit is unplugged")
	}

	stats := reg.Stats()
	if stats.Attached != 1 || stats.Detached != 1 {
		t.Errorf("stats = %+v, want one attach and one detach", stats)
	}
}

// TestPlugToExposure drives an exposure on a hot-plugged camera end to end.
func TestPlugToExposure(t *testing.T) {
	core := bus.New(nil)
	client := &recordClient{id: "client-1"}
	if err := core.AttachClient(client, bus.Filter{}); err != nil {
		t.Fatalf("AttachClient: %v", err)
	}

	src := NewSource()
	opts := Options{Width: 16, Height: 16, ExposureUnit: 5 * time.Millisecond}
	reg, err := hotplug.NewRegistry(core, src, Factory(opts), hotplug.Options{})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	reg.Start(ctx)
	t.Cleanup(func() {
		cancel()
		src.Close()
		reg.Close()
	})

	src.Plug("cam-7")
	waitFor(t, func() bool {
		return len(core.Devices()) == 1
	}, "camera never attached")
	name := core.Devices()[0]

	connect(t, core, name, client)

	startExposure(t, core, name, 2)
	waitFor(t, func() bool {
		p, _ := client.lastUpdate(ExposureProperty)
		return p != nil && p.State == property.StateOK
	}, "exposure never completed")
}
