package gpio

import (
	"github.com/cjeanneret/daisy/internal/debug"
)

// Level represents the logical state of a GPIO pin.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// PinMode indicates whether a GPIO is input or output.
type PinMode int

const (
	Input PinMode = iota
	Output
)

// Driver defines the abstract interface for controlling GPIOs.
// This allows plugging in a real Raspberry Pi implementation
// or a mock for development on PC.
type Driver interface {
	SetupPin(pin int, mode PinMode) error
	WritePin(pin int, level Level) error
	ReadPin(pin int) (Level, error)
	Close() error
}

// MockDriver is a test implementation that logs actions and remembers
// the last level written to each pin.
type MockDriver struct {
	levels map[int]Level
}

// NewDriver creates a GPIO driver based on the chosen mode.
// If mock is true, returns a MockDriver (for dev/test).
// If mock is false, returns a real RPiDriver (for Raspberry Pi).
func NewDriver(mock bool) (Driver, error) {
	if mock {
		debug.Info("Using MOCK GPIO driver (development mode)")
		return &MockDriver{}, nil
	}
	return NewRPiRealDriver()
}

func (m *MockDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)
	return nil
}

func (m *MockDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)
	if m.levels == nil {
		m.levels = make(map[int]Level)
	}
	m.levels[pin] = level
	return nil
}

func (m *MockDriver) ReadPin(pin int) (Level, error) {
	debug.GPIO("ReadPin", pin, nil)
	return m.levels[pin], nil
}

func (m *MockDriver) Close() error {
	debug.Trace("GPIO Close (mock)")
	return nil
}

// EnableLine drives an active-LOW enable input (LOW = enabled, HIGH = disabled),
// as found on most motor controller boards. Pin 0 means "not wired" and
// turns every call into a no-op.
type EnableLine struct {
	drv Driver
	pin int
}

// NewEnableLine configures pin as an output and leaves the line disabled.
func NewEnableLine(drv Driver, pin int) (*EnableLine, error) {
	l := &EnableLine{drv: drv, pin: pin}
	if pin <= 0 {
		return l, nil
	}
	if err := drv.SetupPin(pin, Output); err != nil {
		return nil, err
	}
	if err := l.Disable(); err != nil {
		return nil, err
	}
	return l, nil
}

// Enable pulls the line LOW.
func (l *EnableLine) Enable() error {
	if l.pin <= 0 {
		return nil
	}
	return l.drv.WritePin(l.pin, Low)
}

// Disable pulls the line HIGH. The motor freewheels.
func (l *EnableLine) Disable() error {
	if l.pin <= 0 {
		return nil
	}
	return l.drv.WritePin(l.pin, High)
}
