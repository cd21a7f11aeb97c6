// Package transport declares the contract between drivers and the raw
// serial/socket layer, which lives outside the core.
//
// The core never performs byte I/O itself; drivers receive an Opener and
// treat its connections as reliable and blocking. The contract is fixed:
// sockets carry a five second send/receive timeout, ReadLine strips carriage
// returns and terminates on a line feed, and Write blocks until the whole
// buffer is gone, retrying partial writes. Failures and timeouts surface as
// errors, never as partial results.
//
// Serial lines are configured with a compact string such as "9600-8N1":
// baud rate, data bits, parity and stop bits. ParseConfig validates the
// string against the supported baud rates; the base driver uses it to vet
// DEVICE_BAUDRATE values before a driver ever reaches the hardware.
package transport
