package transport

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Timeout is the fixed send/receive timeout applied to every socket
// connection handed to a driver.
const Timeout = 5 * time.Second

// DefaultSerialConfig is the line configuration assumed when a device does
// not declare one.
const DefaultSerialConfig = "9600-8N1"

// Parity of a serial line.
type Parity string

// Parity constants.
const (
	ParityNone Parity = "N"
	ParityEven Parity = "E"
	ParityOdd  Parity = "O"
)

// supportedBauds are the line speeds a config string may name.
var supportedBauds = map[int]struct{}{
	50: {}, 75: {}, 110: {}, 134: {}, 150: {}, 200: {}, 300: {}, 600: {},
	1200: {}, 1800: {}, 2400: {}, 4800: {}, 9600: {}, 19200: {}, 38400: {},
	57600: {}, 115200: {}, 230400: {}, 460800: {}, 921600: {},
}

// SerialConfig is the parsed form of a "9600-8N1" style configuration
// string: baud rate, data bits, parity and stop bits.
type SerialConfig struct {
	Baud     int
	DataBits int
	Parity   Parity
	StopBits int
}

// String renders the configuration back into its compact form.
func (c SerialConfig) String() string {
	return fmt.Sprintf("%d-%d%s%d", c.Baud, c.DataBits, c.Parity, c.StopBits)
}

// ParseConfig parses and validates a serial configuration string. The format
// is "<baud>-<data bits><parity><stop bits>", for example "9600-8N1" or
// "115200-7E2". Data bits run 5 to 8, parity is N, E or O in either case,
// stop bits 1 or 2.
func ParseConfig(s string) (SerialConfig, error) {
	speed, mode, ok := strings.Cut(s, "-")
	if !ok || len(mode) != 3 {
		return SerialConfig{}, fmt.Errorf("%w: %q", ErrInvalidConfig, s)
	}

	baud, err := strconv.Atoi(speed)
	if err != nil {
		return SerialConfig{}, fmt.Errorf("%w: %q", ErrInvalidConfig, s)
	}
	if _, supported := supportedBauds[baud]; !supported {
		return SerialConfig{}, fmt.Errorf("%w: unsupported baud rate %d", ErrInvalidConfig, baud)
	}

	cfg := SerialConfig{Baud: baud}

	switch mode[0] {
	case '5', '6', '7', '8':
		cfg.DataBits = int(mode[0] - '0')
	default:
		return SerialConfig{}, fmt.Errorf("%w: data bits %q", ErrInvalidConfig, mode[0])
	}

	switch mode[1] {
	case 'N', 'n':
		cfg.Parity = ParityNone
	case 'E', 'e':
		cfg.Parity = ParityEven
	case 'O', 'o':
		cfg.Parity = ParityOdd
	default:
		return SerialConfig{}, fmt.Errorf("%w: parity %q", ErrInvalidConfig, mode[1])
	}

	switch mode[2] {
	case '1', '2':
		cfg.StopBits = int(mode[2] - '0')
	default:
		return SerialConfig{}, fmt.Errorf("%w: stop bits %q", ErrInvalidConfig, mode[2])
	}

	return cfg, nil
}

// Conn is one open line to an instrument. Implementations are blocking and
// reliable: a call returns complete data or an error, never a partial
// result the caller must resume.
type Conn interface {
	// ReadLine reads up to the next line feed, stripping carriage returns
	// and the terminator itself.
	ReadLine() (string, error)

	// Write sends the whole buffer, retrying partial writes until done.
	Write(data []byte) error

	// Close releases the line.
	Close() error
}

// Opener hands out connections to drivers. The concrete implementation is
// platform code outside the core; drivers receive one at construction and
// use it only inside device-locked sections, where blocking is permitted.
type Opener interface {
	// OpenSerial opens a serial device with the given "9600-8N1" style
	// configuration string.
	OpenSerial(device, config string) (Conn, error)

	// DialTCP connects to host:port with the fixed Timeout applied to
	// dialling, sends and receives.
	DialTCP(host string, port int) (Conn, error)

	// DialUDP opens a datagram exchange with host:port under the same
	// timeout regime.
	DialUDP(host string, port int) (Conn, error)
}
