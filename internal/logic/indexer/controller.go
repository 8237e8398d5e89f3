// Package indexer drives the daisy: a six-slot carousel turned by a motor
// controller running its own position loop. Slot moves are computed from a
// monotonic slot counter and sent once as absolute setpoints.
package indexer

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cjeanneret/daisy/internal/debug"
	"github.com/cjeanneret/daisy/internal/diag"
	"github.com/cjeanneret/daisy/internal/hw/actuator"
)

// Phase is the calibration lifecycle of the controller.
type Phase int

const (
	Uninitialized Phase = iota
	Calibrated
)

func (p Phase) String() string {
	if p == Calibrated {
		return "calibrated"
	}
	return "uninitialized"
}

var (
	// ErrAlreadyCalibrated is returned by a second Calibrate call.
	ErrAlreadyCalibrated = errors.New("indexer: already calibrated")
	// ErrTuningDisabled is returned by Tune when tuning mode is off.
	ErrTuningDisabled = errors.New("indexer: tuning mode is disabled")
)

// Config holds the constants fixed at startup.
type Config struct {
	Geometry          Geometry
	AllowableError    float64 // closed-loop deadband pushed to the driver
	ToleranceFraction float64 // default at-setpoint tolerance, fraction of a revolution
	JogOutput         float64 // open-loop output for MoveForwardSlowly
	FullSlot          int     // IsFull when slot mod Slots >= FullSlot
	SensorPhase       bool
	MotorInvert       bool
	Tune              bool
	Gains             Gains
	Limits            OutputLimits
}

// Option customizes a Controller.
type Option func(*Controller)

// WithJamPolicy installs the jam extension point.
func WithJamPolicy(p JamPolicy) Option {
	return func(c *Controller) { c.jam = p }
}

// WithSink publishes diagnostics while tuning mode is on.
func WithSink(s diag.Sink) Option {
	return func(c *Controller) { c.sink = s }
}

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller owns the carousel position state. It is not safe for
// concurrent use: every call must come from the control loop.
type Controller struct {
	drv  actuator.Driver
	cfg  Config
	jam  JamPolicy
	sink diag.Sink
	now  func() time.Time

	slot   int64
	target float64
	gains  Gains
	limits OutputLimits
	phase  Phase

	inPosition   bool
	moving       bool
	movingSince  time.Time
	settledSince time.Time
	lastError    float64

	lastErr      error
	driverErrors int
}

// New configures the driver with the initial gains, output limits and
// deadband, and returns a controller at slot index 0. Driver errors are
// logged and do not prevent construction.
func New(drv actuator.Driver, cfg Config, opts ...Option) *Controller {
	c := &Controller{
		drv:    drv,
		cfg:    cfg,
		sink:   diag.Nop{},
		now:    time.Now,
		gains:  cfg.Gains,
		limits: cfg.Limits,
	}
	for _, o := range opts {
		o(c)
	}
	c.target = cfg.Geometry.Setpoint(c.slot)

	c.check("set gains", drv.SetGains(cfg.Gains.P, cfg.Gains.I, cfg.Gains.D, cfg.Gains.F))
	c.check("set output limits", drv.SetOutputLimits(cfg.Limits.Min, cfg.Limits.Max))
	c.check("set allowable error", drv.SetAllowableError(cfg.AllowableError))

	debug.PrintStruct("Indexer config", cfg)
	return c
}

// check records a driver error. Commands are best effort: nothing is retried.
func (c *Controller) check(op string, err error) bool {
	if err == nil {
		return true
	}
	c.lastErr = fmt.Errorf("%s: %w", op, err)
	c.driverErrors++
	c.sink.Publish("driver_errors_total", float64(c.driverErrors))
	debug.Error(c.lastErr)
	return false
}

// Calibrate aligns the relative encoder with the absolute one: the absolute
// pulse-width position, masked to 12 bits and corrected for sensor phase and
// motor inversion, becomes the relative sensor position. It runs once per
// session; later calls return ErrAlreadyCalibrated.
func (c *Controller) Calibrate() error {
	if c.phase == Calibrated {
		return ErrAlreadyCalibrated
	}
	abs, err := c.drv.AbsolutePosition()
	if err != nil {
		return fmt.Errorf("read absolute position: %w", err)
	}
	pos := abs & 0xFFF
	if c.cfg.SensorPhase {
		pos = -pos
	}
	if c.cfg.MotorInvert {
		pos = -pos
	}
	if err := c.drv.SetSensorPosition(pos); err != nil {
		return fmt.Errorf("set sensor position: %w", err)
	}
	c.phase = Calibrated
	debug.Info("Daisy calibrated: absolute=%d relative=%d", abs, pos)
	return nil
}

// Phase returns the calibration phase.
func (c *Controller) Phase() Phase {
	return c.phase
}

// moveBy bumps the slot counter and sends the new setpoint once.
func (c *Controller) moveBy(op string, slots int64) {
	c.slot += slots
	c.target = c.cfg.Geometry.Setpoint(c.slot)
	debug.Move(op, c.slot, c.target)
	if c.check(op, c.drv.SetPositionSetpoint(c.target)) {
		c.moving = true
		c.movingSince = c.now()
		c.settledSince = time.Time{}
	}
}

// AdvanceOneSlot moves the daisy one slot forward.
func (c *Controller) AdvanceOneSlot() {
	c.moveBy("advance", 1)
}

// RetreatOneSlot is the "previous slot" operation. It increments the slot
// counter exactly like AdvanceOneSlot; only the log label differs.
func (c *Controller) RetreatOneSlot() {
	c.moveBy("retreat", 1)
}

// DischargeFullRevolution spins the daisy one full turn to eject every item.
func (c *Controller) DischargeFullRevolution() {
	c.moveBy("discharge", int64(c.cfg.Geometry.Slots))
}

// MoveForwardSlowly bypasses the position loop with a small open-loop output.
func (c *Controller) MoveForwardSlowly() {
	debug.Live("Moving daisy slowly (open loop %.2f)", c.cfg.JogOutput)
	c.check("jog", c.drv.SetOpenLoop(c.cfg.JogOutput))
	c.moving = false
}

// Stop sets a zero open-loop output. Slot index and target are untouched.
func (c *Controller) Stop() {
	debug.Verbose("Stopping daisy motor")
	c.check("stop", c.drv.SetOpenLoop(0))
	c.moving = false
}

// AtSetpoint reports whether the controller's closed-loop error is below
// toleranceFraction of a revolution. A failed error read reports false.
func (c *Controller) AtSetpoint(toleranceFraction float64) bool {
	e, err := c.drv.ClosedLoopError()
	if !c.check("read closed-loop error", err) {
		return false
	}
	c.lastError = e
	return math.Abs(e) < toleranceFraction*c.cfg.Geometry.UnitsPerRevolution
}

// InPosition is AtSetpoint with the configured tolerance.
func (c *Controller) InPosition() bool {
	return c.AtSetpoint(c.cfg.ToleranceFraction)
}

// CurrentSlotMod returns the slot index mod n (0 when n <= 0).
func (c *Controller) CurrentSlotMod(n int) int {
	return SlotMod(c.slot, n)
}

// IsFull reports whether the daisy has indexed its last loadable slot.
func (c *Controller) IsFull() bool {
	return c.CurrentSlotMod(c.cfg.Geometry.Slots) >= c.cfg.FullSlot
}

// Slots returns the number of slots per revolution.
func (c *Controller) Slots() int { return c.cfg.Geometry.Slots }

// SlotIndex returns the monotonic slot counter.
func (c *Controller) SlotIndex() int64 { return c.slot }

// Target returns the current absolute setpoint.
func (c *Controller) Target() float64 { return c.target }

// Gains returns the gains last written to the driver.
func (c *Controller) Gains() Gains { return c.gains }

// Limits returns the output limits last written to the driver.
func (c *Controller) Limits() OutputLimits { return c.limits }

// LastError returns the most recent driver error, if any.
func (c *Controller) LastError() error { return c.lastErr }

// DriverErrors returns how many driver calls have failed.
func (c *Controller) DriverErrors() int { return c.driverErrors }

// Tuning reports whether runtime tuning is enabled.
func (c *Controller) Tuning() bool { return c.cfg.Tune }

// Tune applies a gains update when tuning mode is enabled. Only values that
// differ from the cached ones are written, so replaying an update is a no-op.
func (c *Controller) Tune(u GainsUpdate) error {
	if !c.cfg.Tune {
		return ErrTuningDisabled
	}
	if err := u.Validate(); err != nil {
		return err
	}
	g, l, err := u.Apply(c.gains, c.limits)
	if err != nil {
		return err
	}
	if g != c.gains {
		if !c.check("set gains", c.drv.SetGains(g.P, g.I, g.D, g.F)) {
			return c.lastErr
		}
		debug.Verbose("Daisy gains now P=%g I=%g D=%g F=%g", g.P, g.I, g.D, g.F)
		c.gains = g
	}
	if l != c.limits {
		if !c.check("set output limits", c.drv.SetOutputLimits(l.Min, l.Max)) {
			return c.lastErr
		}
		debug.Verbose("Daisy output limits now [%g, %g]", l.Min, l.Max)
		c.limits = l
	}
	return nil
}

// Timers returns the motion timers as of the last Periodic call.
func (c *Controller) Timers() MotionTimers {
	t := MotionTimers{Target: c.target, Error: c.lastError}
	now := c.now()
	switch {
	case c.moving:
		t.TimeMoving = now.Sub(c.movingSince)
	case !c.settledSince.IsZero():
		t.TimeInPosition = now.Sub(c.settledSince)
	}
	return t
}

// Settled returns the InPosition result of the last Periodic call.
func (c *Controller) Settled() bool {
	return c.inPosition
}

// ClosedLoopError returns the error read by the last Periodic or AtSetpoint.
func (c *Controller) ClosedLoopError() float64 {
	return c.lastError
}

// Periodic runs once per control tick: it refreshes the closed-loop error,
// updates the motion timers, hands them to the jam policy and, in tuning
// mode, publishes diagnostics.
func (c *Controller) Periodic() {
	in := c.InPosition()
	c.inPosition = in
	if in && c.moving {
		c.moving = false
		c.settledSince = c.now()
		debug.Live("Daisy reached slot %d after %v", c.slot, c.settledSince.Sub(c.movingSince))
	}
	timers := c.Timers()
	if c.jam != nil {
		c.jam.Evaluate(c, timers)
	}
	if c.cfg.Tune {
		c.publish(timers)
	}
}

func (c *Controller) publish(t MotionTimers) {
	s := c.sink
	s.Publish("setpoint", c.target)
	s.Publish("closed_loop_error", c.lastError)
	s.Publish("slot_index", float64(c.slot))
	s.Publish("slot_mod", float64(c.CurrentSlotMod(c.cfg.Geometry.Slots)))
	s.Publish("gain_p", c.gains.P)
	s.Publish("gain_i", c.gains.I)
	s.Publish("gain_d", c.gains.D)
	s.Publish("gain_f", c.gains.F)
	s.Publish("max_output", c.limits.Max)
	s.Publish("min_output", c.limits.Min)
	s.Publish("time_moving_seconds", t.TimeMoving.Seconds())
	if pos, err := c.drv.SensorPosition(); err == nil {
		s.Publish("sensor_position", pos)
	}
}
