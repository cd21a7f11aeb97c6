package transport

import "errors"

// ErrInvalidConfig is returned when a serial configuration string does not
// follow the "9600-8N1" format or names an unsupported rate.
var ErrInvalidConfig = errors.New("transport: invalid serial config")
