package property

// Property is a named, stateful, typed attribute of a device. It is
// identified by the (Device, Name) pair, which is unique across all attached
// devices, and owns an ordered list of items sharing its Kind.
type Property struct {
	// Identity
	Device string `json:"device"`
	Name   string `json:"name"`

	// Presentation
	Label  string `json:"label,omitempty"`
	Group  string `json:"group,omitempty"`
	Hidden bool   `json:"hidden,omitempty"`

	// Behaviour
	Kind  Kind  `json:"kind"`
	Perm  Perm  `json:"perm"`
	Rule  Rule  `json:"rule,omitempty"`
	State State `json:"state"`

	// Items in declared order. Order is significant for switch rules: the
	// normalisation tie-break is positional.
	Items []Item `json:"items"`
}

// New constructs a property of the given kind and validates its items.
// Callers normally use the kind-specific constructors instead.
func New(device, name string, kind Kind, perm Perm, items ...Item) (*Property, error) {
	if device == "" || name == "" {
		return nil, ErrInvalidProperty
	}
	if !validKind(kind) || !validPerm(perm) {
		return nil, ErrInvalidProperty
	}
	if len(items) == 0 {
		return nil, ErrInvalidProperty
	}

	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if err := it.validate(kind); err != nil {
			return nil, err
		}
		if _, dup := seen[it.Name]; dup {
			return nil, ErrInvalidProperty
		}
		seen[it.Name] = struct{}{}
	}

	return &Property{
		Device: device,
		Name:   name,
		Kind:   kind,
		Perm:   perm,
		State:  StateIdle,
		Items:  items,
	}, nil
}

// NewSwitch constructs a switch property with the given rule. The initial
// item values are normalised against the rule.
func NewSwitch(device, name string, rule Rule, items ...Item) (*Property, error) {
	if !validRule(rule) {
		return nil, ErrInvalidProperty
	}
	p, err := New(device, name, KindSwitch, PermReadWrite, items...)
	if err != nil {
		return nil, err
	}
	p.Rule = rule
	p.Normalise()
	return p, nil
}

// NewNumber constructs a read-write number property.
func NewNumber(device, name string, items ...Item) (*Property, error) {
	return New(device, name, KindNumber, PermReadWrite, items...)
}

// NewText constructs a read-write text property.
func NewText(device, name string, items ...Item) (*Property, error) {
	return New(device, name, KindText, PermReadWrite, items...)
}

// NewLight constructs a light property. Lights are status indicators and are
// always read-only.
func NewLight(device, name string, items ...Item) (*Property, error) {
	return New(device, name, KindLight, PermReadOnly, items...)
}

// NewBlob constructs a read-only blob property. Payloads are filled in by the
// owning driver as data becomes available.
func NewBlob(device, name string, items ...Item) (*Property, error) {
	return New(device, name, KindBlob, PermReadOnly, items...)
}

// Clone creates a complete independent copy of the property. Items and blob
// payloads are duplicated so modifications to the copy never affect the
// original. Snapshots delivered to subscribers are produced this way.
func (p *Property) Clone() *Property {
	if p == nil {
		return nil
	}

	cpy := *p
	cpy.Items = make([]Item, len(p.Items))
	for i, it := range p.Items {
		cpy.Items[i] = it.clone()
	}
	return &cpy
}

// Match reports whether tmpl selects this property. Empty template fields
// match anything, so a nil or zero template selects every property and a
// template carrying only a device name selects that device's whole set.
// Identity is all that is compared; kind, state and items are ignored.
func (p *Property) Match(tmpl *Property) bool {
	if tmpl == nil {
		return true
	}
	if tmpl.Device != "" && tmpl.Device != p.Device {
		return false
	}
	if tmpl.Name != "" && tmpl.Name != p.Name {
		return false
	}
	return true
}

// Item returns a pointer to the named item for in-place mutation by the
// owning driver. The pointer is only valid while the device lock is held.
func (p *Property) Item(name string) (*Item, bool) {
	for i := range p.Items {
		if p.Items[i].Name == name {
			return &p.Items[i], true
		}
	}
	return nil, false
}

// SwitchOn reports whether the named switch item is on. Missing items and
// non-switch items read as off.
func (p *Property) SwitchOn(name string) bool {
	it, ok := p.Item(name)
	if !ok {
		return false
	}
	v, ok := it.Value.(Switch)
	return ok && v.On
}

// NumberValue returns the current value of the named number item, or zero if
// the item is missing or not a number.
func (p *Property) NumberValue(name string) float64 {
	it, ok := p.Item(name)
	if !ok {
		return 0
	}
	v, ok := it.Value.(Number)
	if !ok {
		return 0
	}
	return v.Value
}

// TextValue returns the value of the named text item, or "" if the item is
// missing or not text.
func (p *Property) TextValue(name string) string {
	it, ok := p.Item(name)
	if !ok {
		return ""
	}
	v, ok := it.Value.(Text)
	if !ok {
		return ""
	}
	return v.Value
}

// SetSwitch sets the named switch item. Turning an item on under an
// exactly-one or at-most-one rule clears every other item first. Returns
// false if the item is missing or not a switch.
func (p *Property) SetSwitch(name string, on bool) bool {
	it, ok := p.Item(name)
	if !ok {
		return false
	}
	if _, isSwitch := it.Value.(Switch); !isSwitch {
		return false
	}

	if on && p.Rule != RuleAny && p.Rule != "" {
		for i := range p.Items {
			if v, isSwitch := p.Items[i].Value.(Switch); isSwitch {
				v.On = false
				p.Items[i].Value = v
			}
		}
	}
	it.Value = Switch{On: on}
	return true
}

// SetNumberValue updates the current value of the named number item, leaving
// its target and bounds untouched. Returns false if the item is missing, not
// a number, or the value lies outside its bounds.
func (p *Property) SetNumberValue(name string, value float64) bool {
	it, ok := p.Item(name)
	if !ok {
		return false
	}
	v, isNumber := it.Value.(Number)
	if !isNumber || !v.InRange(value) {
		return false
	}
	v.Value = value
	it.Value = v
	return true
}

// SetText updates the named text item. Returns false if the item is missing,
// not text, or the value exceeds the length limit.
func (p *Property) SetText(name, value string) bool {
	it, ok := p.Item(name)
	if !ok || len(value) > maxTextLength {
		return false
	}
	if _, isText := it.Value.(Text); !isText {
		return false
	}
	it.Value = Text{Value: value}
	return true
}

// SetLight updates the named light item. Returns false if the item is
// missing, not a light, or the state is not recognised.
func (p *Property) SetLight(name string, state State) bool {
	it, ok := p.Item(name)
	if !ok || !validState(state) {
		return false
	}
	if _, isLight := it.Value.(Light); !isLight {
		return false
	}
	it.Value = Light{Value: state}
	return true
}

// SetBlob replaces the payload of the named blob item. The data slice is
// taken over by the item, not copied. Returns false if the item is missing or
// not a blob.
func (p *Property) SetBlob(name string, data []byte, format string) bool {
	it, ok := p.Item(name)
	if !ok {
		return false
	}
	if _, isBlob := it.Value.(Blob); !isBlob {
		return false
	}
	it.Value = Blob{Data: data, Format: format}
	return true
}

// Normalise forces the property's switch items into compliance with its
// rule. Violating updates are repaired rather than rejected: the last item on
// in declared order wins, and under an exactly-one rule with no item on the
// first item is forced on. Non-switch properties are left untouched.
func (p *Property) Normalise() {
	if p.Kind != KindSwitch || p.Rule == RuleAny || p.Rule == "" {
		return
	}

	last := -1
	for i := range p.Items {
		if v, ok := p.Items[i].Value.(Switch); ok && v.On {
			last = i
		}
	}

	if last < 0 {
		if p.Rule == RuleExactlyOne && len(p.Items) > 0 {
			p.Items[0].Value = Switch{On: true}
		}
		return
	}

	for i := range p.Items {
		if _, ok := p.Items[i].Value.(Switch); ok {
			p.Items[i].Value = Switch{On: i == last}
		}
	}
}

// CopyValues applies a client-submitted property onto this one. Values are
// copied by item name; unknown names are ignored, matching observed driver
// tolerance for sloppy clients. Identity, permission, kind, state and number
// bounds are never taken from the source. The copy is validated before
// anything is applied: on error the property is left exactly as it was.
// Switch rules are normalised after a successful copy.
func (p *Property) CopyValues(src *Property) error {
	if src == nil {
		return nil
	}

	type update struct {
		index int
		value Value
	}
	updates := make([]update, 0, len(src.Items))

	for _, in := range src.Items {
		idx := -1
		for i := range p.Items {
			if p.Items[i].Name == in.Name {
				idx = i
				break
			}
		}
		if idx < 0 {
			continue
		}
		if in.Value == nil || in.Value.Kind() != p.Kind {
			return ErrKindMismatch
		}

		switch v := in.Value.(type) {
		case Switch:
			updates = append(updates, update{idx, v})
		case Number:
			cur := p.Items[idx].Value.(Number)
			if !cur.InRange(v.Value) {
				return ErrInvalidValue
			}
			cur.Value = v.Value
			cur.Target = v.Value
			updates = append(updates, update{idx, cur})
		case Text:
			if len(v.Value) > maxTextLength {
				return ErrInvalidValue
			}
			updates = append(updates, update{idx, v})
		case Light:
			if !validState(v.Value) {
				return ErrInvalidValue
			}
			updates = append(updates, update{idx, v})
		case Blob:
			updates = append(updates, update{idx, v.clone()})
		}
	}

	for _, u := range updates {
		p.Items[u.index].Value = u.value
	}
	p.Normalise()
	return nil
}
