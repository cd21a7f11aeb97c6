package property

// Kind identifies the value type shared by every item of a property.
type Kind string

// Kind constants.
const (
	KindSwitch Kind = "switch"
	KindNumber Kind = "number"
	KindText   Kind = "text"
	KindLight  Kind = "light"
	KindBlob   Kind = "blob"
)

// AllKinds returns all valid property kinds.
func AllKinds() []Kind {
	return []Kind{KindSwitch, KindNumber, KindText, KindLight, KindBlob}
}

// State is the externally visible progress indicator of a property.
//
// Idle means no operation has been requested, OK that the last operation
// completed, Busy that one is in flight and Alert that the last operation
// failed. Busy is never terminal: whoever sets it must hold a live timer or an
// in-flight hardware call that resolves the property to OK or Alert.
type State string

// State constants.
const (
	StateIdle  State = "idle"
	StateOK    State = "ok"
	StateBusy  State = "busy"
	StateAlert State = "alert"
)

// AllStates returns all valid property states.
func AllStates() []State {
	return []State{StateIdle, StateOK, StateBusy, StateAlert}
}

// Perm declares which side of the bus may write a property.
type Perm string

// Perm constants.
const (
	PermReadOnly  Perm = "ro"
	PermReadWrite Perm = "rw"
	PermWriteOnly Perm = "wo"
)

// AllPerms returns all valid permission values.
func AllPerms() []Perm {
	return []Perm{PermReadOnly, PermReadWrite, PermWriteOnly}
}

// Rule constrains how many switch items of one property may be on at once.
// Item order is significant: the normalisation tie-break is positional.
type Rule string

// Rule constants.
const (
	// RuleExactlyOne keeps exactly one item on after any update.
	RuleExactlyOne Rule = "exactly_one"

	// RuleAtMostOne keeps zero or one item on after any update.
	RuleAtMostOne Rule = "at_most_one"

	// RuleAny places no constraint on the items.
	RuleAny Rule = "any"
)

// AllRules returns all valid switch rules.
func AllRules() []Rule {
	return []Rule{RuleExactlyOne, RuleAtMostOne, RuleAny}
}

func validKind(k Kind) bool {
	switch k {
	case KindSwitch, KindNumber, KindText, KindLight, KindBlob:
		return true
	}
	return false
}

func validState(s State) bool {
	switch s {
	case StateIdle, StateOK, StateBusy, StateAlert:
		return true
	}
	return false
}

func validPerm(p Perm) bool {
	switch p {
	case PermReadOnly, PermReadWrite, PermWriteOnly:
		return true
	}
	return false
}

func validRule(r Rule) bool {
	switch r {
	case RuleExactlyOne, RuleAtMostOne, RuleAny:
		return true
	}
	return false
}
