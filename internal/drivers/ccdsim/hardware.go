package ccdsim

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
)

// Hardware-level failures surfaced by the simulated sensor.
var (
	errSensorOpen  = errors.New("ccdsim: camera did not respond")
	errSensorStart = errors.New("ccdsim: shutter stuck")
	errSensorRead  = errors.New("ccdsim: pixel transfer failed")
	errSensorGone  = errors.New("ccdsim: camera is closed")
)

// sensor simulates the camera hardware behind the driver: a frame generator
// with gain, offset and an optional temperature probe. All methods are safe
// for concurrent use, mirroring a thread-safe vendor library.
type sensor struct {
	id   string
	opts Options

	mu       sync.Mutex
	open     bool
	exposing bool
	gain     int
	offset   int
	temp     float64
	frame    uint16
}

// openSensor claims the simulated hardware. The returned sensor is ready for
// exposures until Close.
func openSensor(id string, opts Options) (*sensor, error) {
	if opts.FailOpen {
		return nil, errSensorOpen
	}
	return &sensor{
		id:     id,
		opts:   opts,
		open:   true,
		gain:   50,
		offset: 10,
		temp:   opts.StartTemperature,
	}, nil
}

func (s *sensor) Close() {
	s.mu.Lock()
	s.open = false
	s.exposing = false
	s.mu.Unlock()
}

func (s *sensor) Model() string  { return s.opts.Model }
func (s *sensor) Serial() string { return fmt.Sprintf("SIM-%s", s.id) }

func (s *sensor) Width() int         { return s.opts.Width }
func (s *sensor) Height() int        { return s.opts.Height }
func (s *sensor) PixelSize() float64 { return s.opts.PixelSize }
func (s *sensor) BitsPerPixel() int  { return s.opts.BitsPerPixel }

func (s *sensor) Gain() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gain
}

func (s *sensor) Offset() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}

func (s *sensor) SetGain(v int) {
	s.mu.Lock()
	s.gain = v
	s.mu.Unlock()
}

func (s *sensor) SetOffset(v int) {
	s.mu.Lock()
	s.offset = v
	s.mu.Unlock()
}

// HasTemperatureSensor reports whether the probe found a temperature chip.
func (s *sensor) HasTemperatureSensor() bool { return s.opts.TemperatureSensor }

// Temperature returns the current sensor temperature. The simulated chip
// drifts slightly between reads so successive polls publish fresh values.
func (s *sensor) Temperature() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.temp += 0.01
	return s.temp
}

// StartExposure opens the simulated shutter. The caller owns exposure timing;
// the sensor only tracks that a frame is in progress.
func (s *sensor) StartExposure(seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return errSensorGone
	}
	if s.opts.FailExposure {
		return errSensorStart
	}
	s.exposing = true
	return nil
}

// AbortExposure drops the frame in progress. Aborting an idle sensor is a
// no-op, as on real hardware.
func (s *sensor) AbortExposure() {
	s.mu.Lock()
	s.exposing = false
	s.mu.Unlock()
}

// ReadPixels downloads the exposed frame as little-endian 16-bit samples.
// The pattern is a diagonal gradient lifted by the offset and scaled by the
// gain, with a frame counter folded in so consecutive images differ.
func (s *sensor) ReadPixels() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil, errSensorGone
	}
	if s.opts.FailRead {
		s.exposing = false
		return nil, errSensorRead
	}
	s.exposing = false
	s.frame++

	w, h := s.opts.Width, s.opts.Height
	buf := make([]byte, w*h*2)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint16(x+y)*uint16(s.gain) + uint16(s.offset) + s.frame
			binary.LittleEndian.PutUint16(buf[2*(y*w+x):], v)
		}
	}
	return buf, nil
}
