// Package actuator holds the closed-loop motor controller contract used by
// the indexer, plus a simulated plant and a serial-line implementation.
package actuator

//go:generate mockgen -source=driver.go -destination=mock_driver_gen.go -package=actuator

// Driver is a motor controller running its own position loop. Units are
// the controller's native position units (encoder ticks).
type Driver interface {
	// SetPositionSetpoint switches to closed-loop position mode and sets the target.
	SetPositionSetpoint(units float64) error
	// SetOpenLoop switches to open-loop mode with output in [-1, 1].
	SetOpenLoop(output float64) error
	// ClosedLoopError reports setpoint minus measured position, as tracked by the controller.
	ClosedLoopError() (float64, error)
	SetGains(p, i, d, f float64) error
	SetOutputLimits(min, max float64) error
	// SetAllowableError sets the closed-loop deadband.
	SetAllowableError(units float64) error

	// AbsolutePosition reads the raw absolute (pulse-width) encoder position.
	AbsolutePosition() (int, error)
	// SensorPosition reads the relative sensor position used by the loop.
	SensorPosition() (float64, error)
	// SetSensorPosition overwrites the relative sensor position.
	SetSensorPosition(units int) error

	Close() error
}
