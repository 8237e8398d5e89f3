package actuator

import (
	"math"

	"github.com/cjeanneret/daisy/internal/debug"
)

// Mode is the controller output mode.
type Mode int

const (
	ModeOpenLoop Mode = iota
	ModePosition
)

func (m Mode) String() string {
	if m == ModePosition {
		return "position"
	}
	return "open-loop"
}

// Call records one command received by SimDriver.
type Call struct {
	Op    string
	Value float64
}

// SimDriver is a simulated motor controller. Each Step moves the measured
// position a fixed fraction of the remaining distance to the setpoint
// (position mode) or by output*OpenLoopUnits (open-loop mode). It is used
// with mock_hw and in tests; it is not safe for concurrent use.
type SimDriver struct {
	Setpoint float64
	Position float64
	Absolute int
	Output   float64
	Mode     Mode

	P, I, D, F     float64
	Min, Max       float64
	AllowableError float64

	Rate          float64 // fraction of remaining error closed per Step (0..1)
	OpenLoopUnits float64 // units moved per Step at full open-loop output
	Jammed        bool    // position does not move while set

	Calls []Call
}

// NewSimDriver returns a simulated controller that closes half the
// remaining error each step.
func NewSimDriver() *SimDriver {
	return &SimDriver{
		Min:           -1,
		Max:           1,
		Rate:          0.5,
		OpenLoopUnits: 40,
	}
}

func (s *SimDriver) record(op string, v float64) {
	debug.Command(op, v)
	s.Calls = append(s.Calls, Call{Op: op, Value: v})
}

func (s *SimDriver) SetPositionSetpoint(units float64) error {
	s.record("setpoint", units)
	s.Mode = ModePosition
	s.Setpoint = units
	return nil
}

func (s *SimDriver) SetOpenLoop(output float64) error {
	s.record("open-loop", output)
	s.Mode = ModeOpenLoop
	s.Output = math.Max(-1, math.Min(1, output))
	return nil
}

// ClosedLoopError keeps reporting against the last setpoint in open-loop
// mode, like the real controller does.
func (s *SimDriver) ClosedLoopError() (float64, error) {
	return s.Setpoint - s.Position, nil
}

func (s *SimDriver) SetGains(p, i, d, f float64) error {
	s.record("gains", p)
	s.P, s.I, s.D, s.F = p, i, d, f
	return nil
}

func (s *SimDriver) SetOutputLimits(min, max float64) error {
	s.record("limits", max)
	s.Min, s.Max = min, max
	return nil
}

func (s *SimDriver) SetAllowableError(units float64) error {
	s.record("allowable-error", units)
	s.AllowableError = units
	return nil
}

func (s *SimDriver) AbsolutePosition() (int, error) {
	return s.Absolute, nil
}

func (s *SimDriver) SensorPosition() (float64, error) {
	return s.Position, nil
}

func (s *SimDriver) SetSensorPosition(units int) error {
	s.record("sensor-position", float64(units))
	s.Position = float64(units)
	return nil
}

func (s *SimDriver) Close() error {
	return nil
}

// Step advances the simulation by one control period.
func (s *SimDriver) Step() {
	if s.Jammed {
		return
	}
	switch s.Mode {
	case ModePosition:
		remaining := s.Setpoint - s.Position
		if math.Abs(remaining) <= s.AllowableError {
			return
		}
		move := remaining * s.Rate
		// the output clamp limits how far one step can go
		limit := s.OpenLoopUnits * math.Max(math.Abs(s.Min), math.Abs(s.Max))
		if limit > 0 {
			move = math.Max(-limit, math.Min(limit, move))
		}
		s.Position += move
	case ModeOpenLoop:
		s.Position += s.Output * s.OpenLoopUnits
	}
}

// CallsFor returns the recorded values for op, oldest first.
func (s *SimDriver) CallsFor(op string) []float64 {
	var out []float64
	for _, c := range s.Calls {
		if c.Op == op {
			out = append(out, c.Value)
		}
	}
	return out
}
