package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// IndexerConfig describes the carousel geometry and setpoint tolerances.
type IndexerConfig struct {
	SlotsPerRevolution int     `yaml:"slots_per_revolution"` // number of slots on the daisy (6)
	UnitsPerRevolution float64 `yaml:"units_per_revolution"` // encoder native units per turn (4096 for a CTRE mag encoder)
	OffsetUnits        float64 `yaml:"offset_units"`         // position of slot 0, in native units
	AllowableError     float64 `yaml:"allowable_error"`      // closed-loop deadband pushed to the driver (native units)
	ToleranceFraction  float64 `yaml:"tolerance_fraction"`   // at-setpoint tolerance, fraction of one revolution
	JogOutput          float64 `yaml:"jog_output"`           // open-loop output used by move-forward-slowly
	FullSlot           int     `yaml:"full_slot"`            // slot (mod slots) at which the daisy counts as full
	SensorPhase        bool    `yaml:"sensor_phase"`         // invert encoder reading during calibration
	MotorInvert        bool    `yaml:"motor_invert"`         // invert motor direction during calibration
}

// GainsConfig holds the initial closed-loop gains and output clamp.
type GainsConfig struct {
	P         float64 `yaml:"p"`
	I         float64 `yaml:"i"`
	D         float64 `yaml:"d"`
	F         float64 `yaml:"f"`
	MaxOutput float64 `yaml:"max_output"`
	MinOutput float64 `yaml:"min_output"`
}

// SensorConfig describes the photodiode used to detect items in the daisy.
type SensorConfig struct {
	Type          string  `yaml:"type"`           // "mcp3008" or "mock"
	Channel       int     `yaml:"channel"`        // ADC channel (0-7)
	VRef          float64 `yaml:"vref"`           // ADC reference voltage
	SPISpeedHz    int     `yaml:"spi_speed_hz"`   // SPI clock
	WindowSize    int     `yaml:"window_size"`    // moving window length N
	DarkThreshold float64 `yaml:"dark_threshold"` // mean voltage below which the station is dark
}

// ActuatorConfig describes how to reach the motor controller.
type ActuatorConfig struct {
	Type      string `yaml:"type"`       // "serial" or "mock"
	Port      string `yaml:"port"`       // e.g., "/dev/ttyACM0"
	BaudRate  int    `yaml:"baud_rate"`  // serial baud rate
	TimeoutMs int    `yaml:"timeout_ms"` // per-request read timeout
	EnablePin int    `yaml:"enable_pin"` // controller ENABLE pin (BCM). 0 = not used. Active LOW.
}

// DefaultsConfig contains generic runtime parameters.
type DefaultsConfig struct {
	TickMs           int  `yaml:"tick_ms"`            // control loop period
	RoutineTimeoutMs int  `yaml:"routine_timeout_ms"` // closed-loop moves give up after this long. 0 = default, <0 = never
	DebugLevel       int  `yaml:"debug_level"`        // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockHW           bool `yaml:"mock_hw"`            // use mock GPIO (true=dev/test, false=real Raspberry Pi)
	Tune             bool `yaml:"tune"`               // runtime gain tuning and diagnostics publishing
}

// Config aggregates all application configuration.
type Config struct {
	Indexer  IndexerConfig  `yaml:"indexer"`
	Gains    GainsConfig    `yaml:"gains"`
	Sensor   SensorConfig   `yaml:"sensor"`
	Actuator ActuatorConfig `yaml:"actuator"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// ValidateConfigPath checks that path names a .yaml file directly inside a
// "configs" directory and does not use ".." to climb out of it.
func ValidateConfigPath(path string) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("config path %q must not contain '..'", path)
		}
	}
	if filepath.Ext(path) != ".yaml" {
		return fmt.Errorf("config path %q must have a .yaml extension", path)
	}
	if filepath.Base(filepath.Dir(filepath.Clean(path))) != "configs" {
		return fmt.Errorf("config path %q must be inside a configs/ directory", path)
	}
	return nil
}

// MaxConfigFileBytes caps the size of a config file.
const MaxConfigFileBytes = 1 << 20

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file %s is too large (%d bytes, max %d)", path, info.Size(), MaxConfigFileBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, fills defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration (mock hardware).
func Default() *Config {
	cfg := &Config{Defaults: DefaultsConfig{MockHW: true}}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Indexer.SlotsPerRevolution == 0 {
		c.Indexer.SlotsPerRevolution = 6
	}
	if c.Indexer.UnitsPerRevolution == 0 {
		c.Indexer.UnitsPerRevolution = 4096 // CTRE mag encoder, native units per turn
	}
	if c.Indexer.ToleranceFraction == 0 {
		c.Indexer.ToleranceFraction = 0.05
	}
	if c.Indexer.JogOutput == 0 {
		c.Indexer.JogOutput = 0.2
	}
	if c.Indexer.FullSlot == 0 {
		c.Indexer.FullSlot = c.Indexer.SlotsPerRevolution - 1
	}
	if c.Gains.MaxOutput == 0 && c.Gains.MinOutput == 0 {
		c.Gains.MaxOutput = 1
		c.Gains.MinOutput = -1
	}
	if c.Sensor.Type == "" {
		c.Sensor.Type = "mock"
	}
	if c.Sensor.VRef == 0 {
		c.Sensor.VRef = 3.3
	}
	if c.Sensor.SPISpeedHz == 0 {
		c.Sensor.SPISpeedHz = 1_000_000
	}
	if c.Sensor.WindowSize == 0 {
		c.Sensor.WindowSize = 10
	}
	if c.Sensor.DarkThreshold == 0 {
		c.Sensor.DarkThreshold = 0.5
	}
	if c.Actuator.Type == "" {
		c.Actuator.Type = "mock"
	}
	if c.Actuator.BaudRate == 0 {
		c.Actuator.BaudRate = 115200
	}
	if c.Actuator.TimeoutMs == 0 {
		c.Actuator.TimeoutMs = 50
	}
	if c.Defaults.TickMs <= 0 {
		c.Defaults.TickMs = 20
	}
	if c.Defaults.RoutineTimeoutMs == 0 {
		c.Defaults.RoutineTimeoutMs = 3000
	}
}

// Validate checks value ranges. Defaults must already be applied.
func (c *Config) Validate() error {
	ix := c.Indexer
	if ix.SlotsPerRevolution < 1 {
		return fmt.Errorf("indexer.slots_per_revolution must be >= 1, got %d", ix.SlotsPerRevolution)
	}
	if !finite(ix.UnitsPerRevolution) || ix.UnitsPerRevolution <= 0 {
		return fmt.Errorf("indexer.units_per_revolution must be > 0, got %g", ix.UnitsPerRevolution)
	}
	if !finite(ix.OffsetUnits) {
		return fmt.Errorf("indexer.offset_units must be finite, got %g", ix.OffsetUnits)
	}
	if ix.AllowableError < 0 {
		return fmt.Errorf("indexer.allowable_error must be >= 0, got %g", ix.AllowableError)
	}
	if ix.ToleranceFraction <= 0 || ix.ToleranceFraction > 1 {
		return fmt.Errorf("indexer.tolerance_fraction must be in (0, 1], got %g", ix.ToleranceFraction)
	}
	if ix.JogOutput < -1 || ix.JogOutput > 1 {
		return fmt.Errorf("indexer.jog_output must be in [-1, 1], got %g", ix.JogOutput)
	}
	if ix.FullSlot < 0 || ix.FullSlot >= ix.SlotsPerRevolution {
		return fmt.Errorf("indexer.full_slot must be in [0, %d), got %d", ix.SlotsPerRevolution, ix.FullSlot)
	}
	if c.Gains.MinOutput > c.Gains.MaxOutput {
		return fmt.Errorf("gains.min_output (%g) must be <= gains.max_output (%g)", c.Gains.MinOutput, c.Gains.MaxOutput)
	}
	if c.Gains.MinOutput < -1 || c.Gains.MaxOutput > 1 {
		return fmt.Errorf("gains output limits must be within [-1, 1], got [%g, %g]", c.Gains.MinOutput, c.Gains.MaxOutput)
	}
	switch c.Sensor.Type {
	case "mock", "mcp3008":
	default:
		return fmt.Errorf("unsupported sensor type: %s", c.Sensor.Type)
	}
	if c.Sensor.Channel < 0 || c.Sensor.Channel > 7 {
		return fmt.Errorf("sensor.channel must be between 0 and 7, got %d", c.Sensor.Channel)
	}
	if c.Sensor.WindowSize < 1 {
		return fmt.Errorf("sensor.window_size must be >= 1, got %d", c.Sensor.WindowSize)
	}
	if !finite(c.Sensor.DarkThreshold) {
		return fmt.Errorf("sensor.dark_threshold must be finite, got %g", c.Sensor.DarkThreshold)
	}
	switch c.Actuator.Type {
	case "mock":
	case "serial":
		if c.Actuator.Port == "" {
			return errors.New("actuator.port is required for serial actuator")
		}
	default:
		return fmt.Errorf("unsupported actuator type: %s", c.Actuator.Type)
	}
	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("defaults.debug_level must be between 0 and 4, got %d", c.Defaults.DebugLevel)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// TickPeriod returns the control loop period.
func (c *Config) TickPeriod() time.Duration {
	return time.Duration(c.Defaults.TickMs) * time.Millisecond
}

// RoutineTimeout returns how long a closed-loop move may take, or 0 for no limit.
func (c *Config) RoutineTimeout() time.Duration {
	if c.Defaults.RoutineTimeoutMs < 0 {
		return 0
	}
	return time.Duration(c.Defaults.RoutineTimeoutMs) * time.Millisecond
}

// UnitsPerSlot returns the native units between two adjacent slots.
func (c *Config) UnitsPerSlot() float64 {
	return c.Indexer.UnitsPerRevolution / float64(c.Indexer.SlotsPerRevolution)
}

// ActuatorTimeout returns the serial read timeout.
func (c *Config) ActuatorTimeout() time.Duration {
	return time.Duration(c.Actuator.TimeoutMs) * time.Millisecond
}
