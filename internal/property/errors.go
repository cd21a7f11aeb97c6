package property

import "errors"

// Domain errors for the property package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, property.ErrInvalidValue) {
//	    // reject the request, leave the property untouched
//	}
var (
	// ErrInvalidProperty is returned when a property or item definition is
	// structurally invalid (empty identity, duplicate item names, bad rule).
	ErrInvalidProperty = errors.New("property: invalid definition")

	// ErrInvalidValue is returned when a value lies outside its declared
	// bounds or exceeds the text length limit.
	ErrInvalidValue = errors.New("property: value out of bounds")

	// ErrKindMismatch is returned when an item value does not match the
	// kind declared by its property.
	ErrKindMismatch = errors.New("property: item kind mismatch")
)
