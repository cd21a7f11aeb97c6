package property

// maxTextLength bounds text item values, matching the fixed value buffers of
// the wire protocols this model is encoded into.
const maxTextLength = 512

// Value is the tagged variant held by an Item. Exactly one concrete type
// exists per Kind; access sites switch exhaustively on the concrete type
// rather than sniffing loosely typed fields.
type Value interface {
	// Kind reports which concrete variant this value is.
	Kind() Kind

	clone() Value
}

// Switch is a boolean value slot.
type Switch struct {
	On bool `json:"on"`
}

// Kind implements Value.
func (Switch) Kind() Kind { return KindSwitch }

func (v Switch) clone() Value { return v }

// Number is a bounded floating-point value slot. Value is the current
// reading, Target the last requested setpoint. Min equal to Max declares the
// slot unbounded. Format is an optional printf-style display hint.
type Number struct {
	Value  float64 `json:"value"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Step   float64 `json:"step"`
	Target float64 `json:"target"`
	Format string  `json:"format,omitempty"`
}

// Kind implements Value.
func (Number) Kind() Kind { return KindNumber }

func (v Number) clone() Value { return v }

// InRange reports whether x lies within the declared bounds.
func (v Number) InRange(x float64) bool {
	if v.Min == v.Max {
		return true
	}
	return x >= v.Min && x <= v.Max
}

// Text is a bounded string value slot.
type Text struct {
	Value string `json:"value"`
}

// Kind implements Value.
func (Text) Kind() Kind { return KindText }

func (v Text) clone() Value { return v }

// Light is a read-only status indicator. Its value reuses the property state
// enumeration: idle, ok, busy or alert.
type Light struct {
	Value State `json:"value"`
}

// Kind implements Value.
func (Light) Kind() Kind { return KindLight }

func (v Light) clone() Value { return v }

// Blob is a binary payload with a format hint such as ".fits". Size is always
// len(Data); it is carried explicitly on the wire shape for clients that drop
// the payload itself.
type Blob struct {
	Data   []byte `json:"-"`
	Format string `json:"format,omitempty"`
}

// Kind implements Value.
func (Blob) Kind() Kind { return KindBlob }

func (v Blob) clone() Value {
	if v.Data != nil {
		data := make([]byte, len(v.Data))
		copy(data, v.Data)
		v.Data = data
	}
	return v
}

// Size returns the payload length in bytes.
func (v Blob) Size() int { return len(v.Data) }

// Item is one named value slot inside a property. The name is the stable
// machine identifier; the label is for humans and may change freely.
type Item struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Value Value  `json:"value"`
}

func (it Item) clone() Item {
	it.Value = it.Value.clone()
	return it
}

// NewSwitchItem returns a switch item in the given position.
func NewSwitchItem(name, label string, on bool) Item {
	return Item{Name: name, Label: label, Value: Switch{On: on}}
}

// NewNumberItem returns a number item. The initial value is also recorded as
// the target. Bounds are validated when the item is attached to a property,
// not here.
func NewNumberItem(name, label string, min, max, step, value float64) Item {
	return Item{Name: name, Label: label, Value: Number{
		Value:  value,
		Min:    min,
		Max:    max,
		Step:   step,
		Target: value,
	}}
}

// NewTextItem returns a text item.
func NewTextItem(name, label, value string) Item {
	return Item{Name: name, Label: label, Value: Text{Value: value}}
}

// NewLightItem returns a light item.
func NewLightItem(name, label string, value State) Item {
	return Item{Name: name, Label: label, Value: Light{Value: value}}
}

// NewBlobItem returns an empty blob item. The payload is filled in by the
// driver when data becomes available.
func NewBlobItem(name, label string) Item {
	return Item{Name: name, Label: label, Value: Blob{}}
}

// validate checks a single item against the owning property's kind.
func (it Item) validate(kind Kind) error {
	if it.Name == "" {
		return ErrInvalidProperty
	}
	if it.Value == nil || it.Value.Kind() != kind {
		return ErrKindMismatch
	}
	switch v := it.Value.(type) {
	case Number:
		if v.Min > v.Max {
			return ErrInvalidProperty
		}
		if !v.InRange(v.Value) {
			return ErrInvalidValue
		}
	case Text:
		if len(v.Value) > maxTextLength {
			return ErrInvalidValue
		}
	case Light:
		if !validState(v.Value) {
			return ErrInvalidValue
		}
	}
	return nil
}
