package property

import (
	"errors"
	"testing"
)

func testSwitch(t *testing.T, rule Rule, on ...bool) *Property {
	t.Helper()

	items := make([]Item, len(on))
	for i, v := range on {
		items[i] = NewSwitchItem(switchName(i), "", v)
	}
	p, err := NewSwitch("Test Device", "TEST_SWITCH", rule, items...)
	if err != nil {
		t.Fatalf("NewSwitch() error = %v", err)
	}
	return p
}

func switchName(i int) string {
	return string(rune('A' + i))
}

func TestNewValidation(t *testing.T) {
	gain := NewNumberItem("GAIN", "Gain", 0, 100, 1, 34)

	tests := []struct {
		name    string
		build   func() (*Property, error)
		wantErr error
	}{
		{
			name: "valid number",
			build: func() (*Property, error) {
				return NewNumber("Camera", "CCD_GAIN", gain)
			},
		},
		{
			name: "empty device",
			build: func() (*Property, error) {
				return NewNumber("", "CCD_GAIN", gain)
			},
			wantErr: ErrInvalidProperty,
		},
		{
			name: "empty name",
			build: func() (*Property, error) {
				return NewNumber("Camera", "", gain)
			},
			wantErr: ErrInvalidProperty,
		},
		{
			name: "no items",
			build: func() (*Property, error) {
				return NewNumber("Camera", "CCD_GAIN")
			},
			wantErr: ErrInvalidProperty,
		},
		{
			name: "duplicate item names",
			build: func() (*Property, error) {
				return NewNumber("Camera", "CCD_GAIN", gain, gain)
			},
			wantErr: ErrInvalidProperty,
		},
		{
			name: "item kind mismatch",
			build: func() (*Property, error) {
				return NewNumber("Camera", "CCD_GAIN", NewTextItem("GAIN", "", "x"))
			},
			wantErr: ErrKindMismatch,
		},
		{
			name: "initial value out of bounds",
			build: func() (*Property, error) {
				return NewNumber("Camera", "CCD_GAIN", NewNumberItem("GAIN", "", 0, 100, 1, 150))
			},
			wantErr: ErrInvalidValue,
		},
		{
			name: "min above max",
			build: func() (*Property, error) {
				return NewNumber("Camera", "CCD_GAIN", NewNumberItem("GAIN", "", 100, 0, 1, 50))
			},
			wantErr: ErrInvalidProperty,
		},
		{
			name: "unknown rule",
			build: func() (*Property, error) {
				return NewSwitch("Camera", "CONNECTION", Rule("bogus"), NewSwitchItem("ON", "", true))
			},
			wantErr: ErrInvalidProperty,
		},
		{
			name: "text too long",
			build: func() (*Property, error) {
				long := make([]byte, maxTextLength+1)
				return NewText("Camera", "INFO", NewTextItem("MODEL", "", string(long)))
			},
			wantErr: ErrInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.build()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if p.State != StateIdle {
					t.Errorf("State = %q, want %q", p.State, StateIdle)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewSwitchNormalisesInitialState(t *testing.T) {
	// Two items on under exactly-one: the last declared wins.
	p := testSwitch(t, RuleExactlyOne, true, true, false)
	if p.SwitchOn("A") || !p.SwitchOn("B") || p.SwitchOn("C") {
		t.Errorf("items = %v %v %v, want only B on",
			p.SwitchOn("A"), p.SwitchOn("B"), p.SwitchOn("C"))
	}

	// No item on under exactly-one: the first is forced on.
	p = testSwitch(t, RuleExactlyOne, false, false)
	if !p.SwitchOn("A") || p.SwitchOn("B") {
		t.Error("expected first item forced on")
	}
}

func TestCloneIsolation(t *testing.T) {
	img, err := NewBlob("Camera", "CCD_IMAGE", NewBlobItem("IMAGE", "Image"))
	if err != nil {
		t.Fatalf("NewBlob() error = %v", err)
	}
	img.SetBlob("IMAGE", []byte{1, 2, 3}, ".fits")

	snap := img.Clone()

	// Mutating the original must not leak into the snapshot.
	it, _ := img.Item("IMAGE")
	blob := it.Value.(Blob)
	blob.Data[0] = 99
	img.SetText("IMAGE", "not a blob") // no-op, wrong kind
	img.State = StateAlert

	got := snap.Items[0].Value.(Blob)
	if got.Data[0] != 1 {
		t.Errorf("snapshot payload mutated: got %d, want 1", got.Data[0])
	}
	if snap.State != StateIdle {
		t.Errorf("snapshot State = %q, want %q", snap.State, StateIdle)
	}
	if got.Size() != 3 || got.Format != ".fits" {
		t.Errorf("snapshot blob = size %d format %q, want 3 .fits", got.Size(), got.Format)
	}
}

func TestMatch(t *testing.T) {
	p, err := NewNumber("Camera", "CCD_GAIN", NewNumberItem("GAIN", "", 0, 100, 1, 0))
	if err != nil {
		t.Fatalf("NewNumber() error = %v", err)
	}

	tests := []struct {
		name string
		tmpl *Property
		want bool
	}{
		{"nil template", nil, true},
		{"zero template", &Property{}, true},
		{"device only", &Property{Device: "Camera"}, true},
		{"name only", &Property{Name: "CCD_GAIN"}, true},
		{"exact", &Property{Device: "Camera", Name: "CCD_GAIN"}, true},
		{"wrong device", &Property{Device: "Mount"}, false},
		{"wrong name", &Property{Device: "Camera", Name: "CCD_OFFSET"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Match(tt.tmpl); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSetSwitchAppliesRule(t *testing.T) {
	p := testSwitch(t, RuleExactlyOne, true, false, false)

	if !p.SetSwitch("C", true) {
		t.Fatal("SetSwitch(C) = false, want true")
	}
	if p.SwitchOn("A") || p.SwitchOn("B") || !p.SwitchOn("C") {
		t.Error("expected C exclusively on")
	}

	// Under an any rule other items keep their values.
	p = testSwitch(t, RuleAny, true, false)
	p.SetSwitch("B", true)
	if !p.SwitchOn("A") || !p.SwitchOn("B") {
		t.Error("any rule must not clear other items")
	}

	if p.SetSwitch("MISSING", true) {
		t.Error("SetSwitch(MISSING) = true, want false")
	}
}

func TestSetHelpers(t *testing.T) {
	p, err := NewNumber("Camera", "CCD_EXPOSURE",
		NewNumberItem("EXPOSURE", "Exposure", 0, 3600, 1, 0))
	if err != nil {
		t.Fatalf("NewNumber() error = %v", err)
	}

	if !p.SetNumberValue("EXPOSURE", 2.5) {
		t.Error("SetNumberValue in range = false, want true")
	}
	if got := p.NumberValue("EXPOSURE"); got != 2.5 {
		t.Errorf("NumberValue = %v, want 2.5", got)
	}
	if p.SetNumberValue("EXPOSURE", 4000) {
		t.Error("SetNumberValue out of range = true, want false")
	}
	// Target is only moved by CopyValues, not by value updates.
	it, _ := p.Item("EXPOSURE")
	if target := it.Value.(Number).Target; target != 0 {
		t.Errorf("Target = %v, want 0", target)
	}

	lights, err := NewLight("Camera", "STATUS", NewLightItem("SENSOR", "Sensor", StateIdle))
	if err != nil {
		t.Fatalf("NewLight() error = %v", err)
	}
	if lights.Perm != PermReadOnly {
		t.Errorf("light Perm = %q, want %q", lights.Perm, PermReadOnly)
	}
	if !lights.SetLight("SENSOR", StateAlert) {
		t.Error("SetLight = false, want true")
	}
	if lights.SetLight("SENSOR", State("bogus")) {
		t.Error("SetLight with invalid state = true, want false")
	}
}

func TestNormaliseTieBreak(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		on   []bool
		want []bool
	}{
		{"exactly one keeps last", RuleExactlyOne, []bool{true, true, true}, []bool{false, false, true}},
		{"exactly one forces first", RuleExactlyOne, []bool{false, false}, []bool{true, false}},
		{"at most one keeps last", RuleAtMostOne, []bool{true, true}, []bool{false, true}},
		{"at most one allows none", RuleAtMostOne, []bool{false, false}, []bool{false, false}},
		{"any untouched", RuleAny, []bool{true, true}, []bool{true, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Property{
				Device: "Test Device",
				Name:   "TEST_SWITCH",
				Kind:   KindSwitch,
				Rule:   tt.rule,
			}
			for i, v := range tt.on {
				p.Items = append(p.Items, NewSwitchItem(switchName(i), "", v))
			}

			p.Normalise()

			for i, want := range tt.want {
				if got := p.SwitchOn(switchName(i)); got != want {
					t.Errorf("item %s = %v, want %v", switchName(i), got, want)
				}
			}
		})
	}
}

func TestCopyValues(t *testing.T) {
	t.Run("copies by name and ignores unknown items", func(t *testing.T) {
		p, err := NewNumber("Camera", "CCD_GAIN",
			NewNumberItem("GAIN", "Gain", 0, 100, 1, 10),
			NewNumberItem("OFFSET", "Offset", 0, 50, 1, 5))
		if err != nil {
			t.Fatalf("NewNumber() error = %v", err)
		}

		req := &Property{
			Device: "Camera",
			Name:   "CCD_GAIN",
			Kind:   KindNumber,
			Items: []Item{
				NewNumberItem("GAIN", "", 0, 0, 0, 42),
				NewNumberItem("BOGUS", "", 0, 0, 0, 1),
			},
		}
		if err := p.CopyValues(req); err != nil {
			t.Fatalf("CopyValues() error = %v", err)
		}

		if got := p.NumberValue("GAIN"); got != 42 {
			t.Errorf("GAIN = %v, want 42", got)
		}
		if got := p.NumberValue("OFFSET"); got != 5 {
			t.Errorf("OFFSET = %v, want 5 (untouched)", got)
		}
		it, _ := p.Item("GAIN")
		n := it.Value.(Number)
		if n.Target != 42 {
			t.Errorf("Target = %v, want 42", n.Target)
		}
		// Bounds always come from the live property, never the request.
		if n.Min != 0 || n.Max != 100 || n.Step != 1 {
			t.Errorf("bounds = %v/%v/%v, want 0/100/1", n.Min, n.Max, n.Step)
		}
	})

	t.Run("out of range rejects the whole request", func(t *testing.T) {
		p, err := NewNumber("Camera", "CCD_GAIN",
			NewNumberItem("GAIN", "Gain", 0, 100, 1, 10),
			NewNumberItem("OFFSET", "Offset", 0, 50, 1, 5))
		if err != nil {
			t.Fatalf("NewNumber() error = %v", err)
		}

		// GAIN is valid, OFFSET is out of bounds for the live property.
		req := &Property{
			Device: "Camera",
			Name:   "CCD_GAIN",
			Kind:   KindNumber,
			Items: []Item{
				NewNumberItem("GAIN", "", 0, 0, 0, 42),
				NewNumberItem("OFFSET", "", 0, 0, 0, 99),
			},
		}
		err = p.CopyValues(req)
		if !errors.Is(err, ErrInvalidValue) {
			t.Fatalf("CopyValues() error = %v, want ErrInvalidValue", err)
		}

		// Nothing may have been applied, not even the valid item.
		if got := p.NumberValue("GAIN"); got != 10 {
			t.Errorf("GAIN = %v, want 10 (prior state)", got)
		}
		if got := p.NumberValue("OFFSET"); got != 5 {
			t.Errorf("OFFSET = %v, want 5 (prior state)", got)
		}
	})

	t.Run("kind mismatch rejected", func(t *testing.T) {
		p, err := NewNumber("Camera", "CCD_GAIN", NewNumberItem("GAIN", "", 0, 100, 1, 10))
		if err != nil {
			t.Fatalf("NewNumber() error = %v", err)
		}
		req := &Property{Items: []Item{NewTextItem("GAIN", "", "loud")}}
		if err := p.CopyValues(req); !errors.Is(err, ErrKindMismatch) {
			t.Errorf("CopyValues() error = %v, want ErrKindMismatch", err)
		}
	})

	t.Run("identity and state are never taken from the source", func(t *testing.T) {
		p := testSwitch(t, RuleExactlyOne, true, false)
		req := &Property{
			Device: "Impostor",
			Name:   "OTHER",
			Kind:   KindSwitch,
			Perm:   PermReadOnly,
			State:  StateAlert,
			Items:  []Item{NewSwitchItem("B", "", true)},
		}
		if err := p.CopyValues(req); err != nil {
			t.Fatalf("CopyValues() error = %v", err)
		}
		if p.Device != "Test Device" || p.Name != "TEST_SWITCH" {
			t.Errorf("identity changed to %s/%s", p.Device, p.Name)
		}
		if p.State != StateIdle || p.Perm != PermReadWrite {
			t.Errorf("state/perm changed to %s/%s", p.State, p.Perm)
		}
	})

	t.Run("switch rule normalised after copy", func(t *testing.T) {
		p := testSwitch(t, RuleExactlyOne, true, false, false)
		req := &Property{
			Kind: KindSwitch,
			Items: []Item{
				NewSwitchItem("B", "", true),
				NewSwitchItem("C", "", true),
			},
		}
		if err := p.CopyValues(req); err != nil {
			t.Fatalf("CopyValues() error = %v", err)
		}
		// A was on, the request turns B and C on: last in declared order wins.
		if p.SwitchOn("A") || p.SwitchOn("B") || !p.SwitchOn("C") {
			t.Errorf("items = %v %v %v, want only C on",
				p.SwitchOn("A"), p.SwitchOn("B"), p.SwitchOn("C"))
		}
	})
}
