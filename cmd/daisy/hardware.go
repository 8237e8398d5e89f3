package main

import (
	"errors"
	"fmt"

	"github.com/cjeanneret/daisy/internal/config"
	"github.com/cjeanneret/daisy/internal/debug"
	"github.com/cjeanneret/daisy/internal/hw/actuator"
	"github.com/cjeanneret/daisy/internal/hw/adc"
	"github.com/cjeanneret/daisy/internal/hw/gpio"
	"github.com/cjeanneret/daisy/internal/logic/indexer"
	"github.com/cjeanneret/daisy/internal/loop"
)

// rig is the opened hardware: motor controller, photodiode ADC and the GPIO
// driver behind the controller's enable line.
type rig struct {
	gpio   gpio.Driver
	drv    actuator.Driver
	sim    *actuator.SimDriver // set when the actuator is simulated
	source adc.Source
}

// openRig opens every device named by cfg. On error, whatever was opened is
// closed again.
func openRig(cfg *config.Config) (*rig, error) {
	r := &rig{}
	if err := r.open(cfg); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func (r *rig) open(cfg *config.Config) error {
	debug.Value("Mock hardware", cfg.Defaults.MockHW)
	debug.Step(1, "Initializing GPIO driver")
	g, err := gpio.NewDriver(cfg.Defaults.MockHW)
	if err != nil {
		return fmt.Errorf("init GPIO failed: %w", err)
	}
	r.gpio = g

	debug.Step(2, "Initializing motor controller")
	debug.PrintStruct("Actuator config", cfg.Actuator)
	switch cfg.Actuator.Type {
	case "mock":
		r.sim = actuator.NewSimDriver()
		r.drv = r.sim
	case "serial":
		enable, err := gpio.NewEnableLine(r.gpio, cfg.Actuator.EnablePin)
		if err != nil {
			return fmt.Errorf("init enable line failed: %w", err)
		}
		sd, err := actuator.OpenSerial(actuator.SerialConfig{
			Port:     cfg.Actuator.Port,
			BaudRate: cfg.Actuator.BaudRate,
			Timeout:  cfg.ActuatorTimeout(),
		}, enable)
		if err != nil {
			return err
		}
		r.drv = sd
	default:
		return fmt.Errorf("unsupported actuator type: %s", cfg.Actuator.Type)
	}

	debug.Step(3, "Initializing photodiode")
	src, err := openSource(cfg)
	if err != nil {
		return err
	}
	r.source = src
	return nil
}

// openSource opens the photodiode ADC named by cfg.
func openSource(cfg *config.Config) (adc.Source, error) {
	debug.PrintStruct("Sensor config", cfg.Sensor)
	switch cfg.Sensor.Type {
	case "mock":
		// a lit station
		return adc.NewMockSource(cfg.Sensor.VRef * 0.8), nil
	case "mcp3008":
		m, err := adc.NewMCP3008(adc.MCP3008Config{
			Channel: cfg.Sensor.Channel,
			VRef:    cfg.Sensor.VRef,
			SpeedHz: cfg.Sensor.SPISpeedHz,
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported sensor type: %s", cfg.Sensor.Type)
	}
}

// Close releases the devices in reverse order. The motor controller is
// stopped by its own Close.
func (r *rig) Close() error {
	var errs []error
	if r.source != nil {
		errs = append(errs, r.source.Close())
	}
	if r.drv != nil {
		errs = append(errs, r.drv.Close())
	}
	if r.gpio != nil {
		errs = append(errs, r.gpio.Close())
	}
	return errors.Join(errs...)
}

// step advances the simulated plant, if any.
func (r *rig) step() {
	if r.sim != nil {
		r.sim.Step()
	}
}

func controllerConfig(cfg *config.Config) indexer.Config {
	ix := cfg.Indexer
	return indexer.Config{
		Geometry: indexer.Geometry{
			Slots:              ix.SlotsPerRevolution,
			UnitsPerRevolution: ix.UnitsPerRevolution,
			Offset:             ix.OffsetUnits,
		},
		AllowableError:    ix.AllowableError,
		ToleranceFraction: ix.ToleranceFraction,
		JogOutput:         ix.JogOutput,
		FullSlot:          ix.FullSlot,
		SensorPhase:       ix.SensorPhase,
		MotorInvert:       ix.MotorInvert,
		Tune:              cfg.Defaults.Tune,
		Gains: indexer.Gains{
			P: cfg.Gains.P,
			I: cfg.Gains.I,
			D: cfg.Gains.D,
			F: cfg.Gains.F,
		},
		Limits: indexer.OutputLimits{Min: cfg.Gains.MinOutput, Max: cfg.Gains.MaxOutput},
	}
}

func loopConfig(cfg *config.Config) loop.Config {
	return loop.Config{
		Period:    cfg.TickPeriod(),
		Tolerance: cfg.Indexer.ToleranceFraction,
		Timeout:   cfg.RoutineTimeout(),
	}
}
