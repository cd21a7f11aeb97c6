package ccdsim

import (
	"fmt"
	"time"

	"github.com/nerrad567/equinox-core/internal/bus"
	"github.com/nerrad567/equinox-core/internal/driver"
	"github.com/nerrad567/equinox-core/internal/property"
	"github.com/nerrad567/equinox-core/internal/timer"
)

const driverVersion = "1.0.0"

// BlobFormat is the payload suffix for images from the simulated sensor,
// little-endian 16-bit samples in row-major order.
const BlobFormat = ".raw"

// Defaults for the simulated hardware.
const (
	defaultModel        = "CCD Simulator"
	defaultWidth        = 640
	defaultHeight       = 480
	defaultPixelSize    = 5.2
	defaultBitsPerPixel = 16

	defaultTemperatureInterval = 3 * time.Second
)

// Logger receives driver diagnostics.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a simulated camera.
type Options struct {
	// Store persists configuration profiles. Optional.
	Store driver.ProfileStore

	// Log receives diagnostics. Optional.
	Log Logger

	// Model names the simulated hardware and prefixes device names.
	Model string

	// Sensor geometry reported through CCD_INFO.
	Width        int
	Height       int
	PixelSize    float64
	BitsPerPixel int

	// TemperatureSensor fits the camera with a temperature chip. Without
	// one the CCD_TEMPERATURE property stays hidden and no poll runs.
	TemperatureSensor   bool
	StartTemperature    float64
	TemperatureInterval time.Duration

	// ExposureUnit is the wall-clock length of one exposure second.
	// Defaults to a real second; tests shrink it to milliseconds.
	ExposureUnit time.Duration

	// Failure injection for the simulated hardware.
	FailOpen     bool
	FailExposure bool
	FailRead     bool
}

func (o Options) withDefaults() Options {
	if o.Model == "" {
		o.Model = defaultModel
	}
	if o.Width <= 0 {
		o.Width = defaultWidth
	}
	if o.Height <= 0 {
		o.Height = defaultHeight
	}
	if o.PixelSize <= 0 {
		o.PixelSize = defaultPixelSize
	}
	if o.BitsPerPixel <= 0 {
		o.BitsPerPixel = defaultBitsPerPixel
	}
	if o.TemperatureInterval <= 0 {
		o.TemperatureInterval = defaultTemperatureInterval
	}
	if o.ExposureUnit <= 0 {
		o.ExposureUnit = time.Second
	}
	return o
}

// Camera is the simulated camera driver. It embeds the base layer for the
// common properties and claims CONNECTION on top of it, as hardware drivers
// do: connecting opens and probes the sensor before the switch settles.
type Camera struct {
	*driver.Base

	id   string
	opts Options
	log  Logger

	cam *sensor

	exposure    *property.Property
	abort       *property.Property
	image       *property.Property
	gain        *property.Property
	offset      *property.Property
	ccdInfo     *property.Property
	temperature *property.Property

	exposureTimer *timer.Timer
	tempTimer     *timer.Timer
}

// New builds a simulated camera for one hardware unit. The id distinguishes
// units on the simulated bus and feeds the serial number.
func New(id string, opts Options) (*Camera, error) {
	opts = opts.withDefaults()
	base, err := driver.NewBase(driver.Options{
		Driver:  "ccdsim",
		Version: driverVersion,
		Store:   opts.Store,
		Log:     opts.Log,
	})
	if err != nil {
		return nil, err
	}
	log := opts.Log
	if log == nil {
		log = noopLogger{}
	}
	return &Camera{Base: base, id: id, opts: opts, log: log}, nil
}

// DeviceName returns the bus name for a camera unit, model and unit id
// combined the way multi-head vendor drivers label devices.
func DeviceName(model, id string) string {
	if model == "" {
		model = defaultModel
	}
	return fmt.Sprintf("%s #%s", model, id)
}

// Attach defines the camera properties on top of the base set. Geometry in
// CCD_INFO and the gain and offset values stay at their defaults until a
// connect probes the hardware.
func (c *Camera) Attach(d *bus.Device) error {
	if err := c.Base.Attach(d); err != nil {
		return err
	}
	if c.exposure != nil {
		return nil
	}

	name := d.Name()

	exposure, err := property.NewNumber(name, ExposureProperty,
		property.NewNumberItem(ExposureItem, "Exposure time (s)", 0, 3600, 1, 0))
	if err != nil {
		return fmt.Errorf("defining %s: %w", ExposureProperty, err)
	}
	exposure.Label = "Start exposure"
	exposure.Group = GroupImager

	abort, err := property.NewSwitch(name, AbortProperty, property.RuleAtMostOne,
		property.NewSwitchItem(AbortItem, "Abort exposure", false))
	if err != nil {
		return fmt.Errorf("defining %s: %w", AbortProperty, err)
	}
	abort.Label = "Abort exposure"
	abort.Group = GroupImager

	image, err := property.NewBlob(name, ImageProperty,
		property.NewBlobItem(ImageItem, "Image data"))
	if err != nil {
		return fmt.Errorf("defining %s: %w", ImageProperty, err)
	}
	image.Label = "Image"
	image.Group = GroupImager

	gain, err := property.NewNumber(name, GainProperty,
		property.NewNumberItem(GainItem, "Gain", 0, 100, 1, 0))
	if err != nil {
		return fmt.Errorf("defining %s: %w", GainProperty, err)
	}
	gain.Label = "Gain"
	gain.Group = GroupImager

	offset, err := property.NewNumber(name, OffsetProperty,
		property.NewNumberItem(OffsetItem, "Offset", 0, 100, 1, 0))
	if err != nil {
		return fmt.Errorf("defining %s: %w", OffsetProperty, err)
	}
	offset.Label = "Offset"
	offset.Group = GroupImager

	ccdInfo, err := property.New(name, InfoProperty, property.KindNumber, property.PermReadOnly,
		property.NewNumberItem(InfoWidth, "Width (px)", 0, 0, 0, 0),
		property.NewNumberItem(InfoHeight, "Height (px)", 0, 0, 0, 0),
		property.NewNumberItem(InfoPixelSize, "Pixel size (um)", 0, 0, 0, 0),
		property.NewNumberItem(InfoBitsPerPixel, "Bits per pixel", 0, 0, 0, 0))
	if err != nil {
		return fmt.Errorf("defining %s: %w", InfoProperty, err)
	}
	ccdInfo.Label = "Sensor info"
	ccdInfo.Group = GroupImager

	temperature, err := property.New(name, TemperatureProperty, property.KindNumber, property.PermReadOnly,
		property.NewNumberItem(TemperatureItem, "Temperature (C)", -55, 45, 0, 0))
	if err != nil {
		return fmt.Errorf("defining %s: %w", TemperatureProperty, err)
	}
	temperature.Label = "Temperature"
	temperature.Group = GroupImager
	temperature.Hidden = true

	c.exposure = exposure
	c.abort = abort
	c.image = image
	c.gain = gain
	c.offset = offset
	c.ccdInfo = ccdInfo
	c.temperature = temperature

	d.Define(exposure, "")
	d.Define(abort, "")
	d.Define(image, "")
	d.Define(gain, "")
	d.Define(offset, "")
	d.Define(ccdInfo, "")
	d.Define(temperature, "")

	c.Persist(GainProperty, OffsetProperty)
	return nil
}

// Detach releases the hardware if a connection is still up.
func (c *Camera) Detach(d *bus.Device) error {
	if c.cam != nil || d.Connected() {
		c.shutdown(d)
	}
	return c.Base.Detach(d)
}

// ChangeProperty routes camera requests and delegates the rest to the base
// layer.
func (c *Camera) ChangeProperty(d *bus.Device, cl bus.Client, p *property.Property) error {
	if c.exposure == nil {
		return c.Base.ChangeProperty(d, cl, p)
	}
	switch {
	case c.Connection().Match(p):
		return c.changeConnection(d, p)
	case c.exposure.Match(p):
		return c.startExposure(d, p)
	case c.abort.Match(p):
		return c.abortExposure(d, p)
	case c.gain.Match(p):
		return c.changeGain(d, p)
	case c.offset.Match(p):
		return c.changeOffset(d, p)
	}
	return c.Base.ChangeProperty(d, cl, p)
}

// changeConnection claims CONNECTION from the base layer. Opening and
// probing hardware takes time, so the switch goes busy on the request path
// and a zero-delay timer completes the transition.
func (c *Camera) changeConnection(d *bus.Device, p *property.Property) error {
	conn := c.Connection()
	if conn.State == property.StateBusy {
		// A transition is already in flight; the request is dropped the
		// same way a repeated exposure start is.
		return nil
	}
	if err := conn.CopyValues(p); err != nil {
		return c.Reject(d, conn, err)
	}
	if conn.SwitchOn(driver.ConnectionConnected) == d.Connected() {
		conn.State = property.StateOK
		d.Update(conn, "")
		return nil
	}
	conn.State = property.StateBusy
	d.Update(conn, "")
	d.Timers().Schedule(0, func() { c.connectionCallback(d) })
	return nil
}

func (c *Camera) connectionCallback(d *bus.Device) {
	conn := c.Connection()
	if conn.SwitchOn(driver.ConnectionConnected) {
		cam, err := openSensor(c.id, c.opts)
		if err != nil {
			c.log.Warn("camera connect failed", "device", d.Name(), "error", err)
			conn.SetSwitch(driver.ConnectionDisconnected, true)
			conn.State = property.StateAlert
			d.Update(conn, "camera did not respond")
			return
		}
		c.cam = cam
		c.probe(d)
		d.SetConnected(true)
		conn.State = property.StateOK
		d.Update(conn, "")
		c.log.Info("camera connected", "device", d.Name(), "serial", cam.Serial())
		return
	}
	c.shutdown(d)
	conn.State = property.StateOK
	d.Update(conn, "")
	c.log.Info("camera disconnected", "device", d.Name())
}

// probe fills the hardware-derived properties after a successful open.
func (c *Camera) probe(d *bus.Device) {
	cam := c.cam

	c.ccdInfo.SetNumberValue(InfoWidth, float64(cam.Width()))
	c.ccdInfo.SetNumberValue(InfoHeight, float64(cam.Height()))
	c.ccdInfo.SetNumberValue(InfoPixelSize, cam.PixelSize())
	c.ccdInfo.SetNumberValue(InfoBitsPerPixel, float64(cam.BitsPerPixel()))
	c.ccdInfo.State = property.StateOK
	d.Update(c.ccdInfo, "")

	c.gain.SetNumberValue(GainItem, float64(cam.Gain()))
	c.gain.State = property.StateOK
	d.Update(c.gain, "")

	c.offset.SetNumberValue(OffsetItem, float64(cam.Offset()))
	c.offset.State = property.StateOK
	d.Update(c.offset, "")

	c.SetInfo(d, cam.Model(), cam.Serial())

	if cam.HasTemperatureSensor() {
		c.temperature.Hidden = false
		d.Define(c.temperature, "")
		c.tempTimer = d.Timers().Schedule(0, func() { c.temperatureCallback(d) })
	} else {
		c.log.Debug("no temperature sensor", "device", d.Name())
	}
}

// shutdown stops all activity and releases the hardware so a later connect
// starts clean. Device lock held.
func (c *Camera) shutdown(d *bus.Device) {
	if c.exposureTimer != nil {
		c.exposureTimer.Cancel()
		c.exposureTimer = nil
	}
	if c.tempTimer != nil {
		c.tempTimer.Cancel()
		c.tempTimer = nil
	}
	if c.exposure != nil && c.exposure.State == property.StateBusy {
		c.exposure.SetNumberValue(ExposureItem, 0)
		c.exposure.State = property.StateIdle
		d.Update(c.exposure, "exposure aborted")
	}
	if c.temperature != nil && !c.temperature.Hidden {
		c.temperature.Hidden = true
		d.Delete(c.temperature, "")
	}
	if c.cam != nil {
		c.cam.Close()
		c.cam = nil
	}
	d.SetConnected(false)
}

// startExposure begins a frame. A start while one is in progress is dropped
// without touching the running exposure.
func (c *Camera) startExposure(d *bus.Device, p *property.Property) error {
	if c.exposure.State == property.StateBusy {
		c.log.Debug("exposure already running", "device", d.Name())
		return nil
	}
	if !d.Connected() {
		return c.Reject(d, c.exposure, driver.ErrNotConnected)
	}
	if err := c.exposure.CopyValues(p); err != nil {
		return c.Reject(d, c.exposure, err)
	}
	seconds := c.exposure.NumberValue(ExposureItem)
	if err := c.cam.StartExposure(seconds); err != nil {
		c.log.Warn("exposure start failed", "device", d.Name(), "error", err)
		c.exposure.State = property.StateAlert
		d.Update(c.exposure, "exposure failed")
		return nil
	}

	c.image.State = property.StateBusy
	d.Update(c.image, "")
	c.exposure.State = property.StateBusy
	d.Update(c.exposure, "")

	delay := time.Duration(seconds * float64(c.opts.ExposureUnit))
	c.exposureTimer = d.Timers().Schedule(delay, func() { c.exposureCallback(d) })
	return nil
}

// exposureCallback completes a frame: the countdown lands on zero, pixels
// are downloaded and the image goes out before the exposure settles. A
// callback racing a disconnect or an abort finds the busy state gone and
// leaves everything alone.
func (c *Camera) exposureCallback(d *bus.Device) {
	c.exposureTimer = nil
	if !d.Connected() || c.exposure.State != property.StateBusy {
		return
	}

	c.exposure.SetNumberValue(ExposureItem, 0)
	d.Update(c.exposure, "")

	data, err := c.cam.ReadPixels()
	if err != nil {
		c.log.Warn("pixel download failed", "device", d.Name(), "error", err)
		c.image.State = property.StateAlert
		d.Update(c.image, "")
		c.exposure.State = property.StateAlert
		d.Update(c.exposure, "exposure failed")
		return
	}

	c.image.SetBlob(ImageItem, data, BlobFormat)
	c.image.State = property.StateOK
	d.Update(c.image, "")
	c.exposure.State = property.StateOK
	d.Update(c.exposure, "")
}

// abortExposure cancels the frame in progress. The switch is momentary: it
// resets to off as part of the acknowledgement. Aborting an idle camera is
// acknowledged without effect.
func (c *Camera) abortExposure(d *bus.Device, p *property.Property) error {
	if err := c.abort.CopyValues(p); err != nil {
		return c.Reject(d, c.abort, err)
	}
	if c.abort.SwitchOn(AbortItem) {
		if c.exposure.State == property.StateBusy {
			c.cam.AbortExposure()
			if c.exposureTimer != nil {
				c.exposureTimer.Cancel()
				c.exposureTimer = nil
			}
			c.exposure.SetNumberValue(ExposureItem, 0)
			c.exposure.State = property.StateIdle
			d.Update(c.exposure, "exposure aborted")
			c.image.State = property.StateIdle
			d.Update(c.image, "")
		}
		c.abort.SetSwitch(AbortItem, false)
	}
	c.abort.State = property.StateOK
	d.Update(c.abort, "")
	return nil
}

func (c *Camera) changeGain(d *bus.Device, p *property.Property) error {
	if err := c.gain.CopyValues(p); err != nil {
		return c.Reject(d, c.gain, err)
	}
	if c.cam != nil {
		c.cam.SetGain(int(c.gain.NumberValue(GainItem)))
	}
	c.gain.State = property.StateOK
	d.Update(c.gain, "")
	return nil
}

func (c *Camera) changeOffset(d *bus.Device, p *property.Property) error {
	if err := c.offset.CopyValues(p); err != nil {
		return c.Reject(d, c.offset, err)
	}
	if c.cam != nil {
		c.cam.SetOffset(int(c.offset.NumberValue(OffsetItem)))
	}
	c.offset.State = property.StateOK
	d.Update(c.offset, "")
	return nil
}

// temperatureCallback publishes a fresh reading and rearms itself. Readings
// pause while an exposure runs so the poll never delays frame completion.
func (c *Camera) temperatureCallback(d *bus.Device) {
	if !d.Connected() || c.cam == nil {
		return
	}
	if c.exposure.State != property.StateBusy {
		c.temperature.SetNumberValue(TemperatureItem, c.cam.Temperature())
		c.temperature.State = property.StateOK
		d.Update(c.temperature, "")
	}
	if c.tempTimer == nil || !c.tempTimer.Reschedule(c.opts.TemperatureInterval) {
		c.tempTimer = nil
	}
}
