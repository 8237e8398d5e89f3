package gpio

import (
	"fmt"
	"sync"

	"github.com/cjeanneret/daisy/internal/debug"
	"github.com/stianeikeland/go-rpio/v4"
)

// The GPIO register block is mapped once per process and shared by the
// pin driver and the SPI ADC. Each user calls Acquire and Release.
var (
	mapMu   sync.Mutex
	mapRefs int
)

// Acquire maps the Raspberry Pi GPIO memory, or bumps the reference count if
// it is already mapped.
func Acquire() error {
	mapMu.Lock()
	defer mapMu.Unlock()
	if mapRefs == 0 {
		if err := rpio.Open(); err != nil {
			return fmt.Errorf("failed to open GPIO: %w (are you running on a Raspberry Pi?)", err)
		}
		debug.Verbose("GPIO memory mapped successfully")
	}
	mapRefs++
	return nil
}

// Release drops one reference and unmaps the GPIO memory on the last one.
func Release() error {
	mapMu.Lock()
	defer mapMu.Unlock()
	if mapRefs == 0 {
		return nil
	}
	mapRefs--
	if mapRefs > 0 {
		return nil
	}
	debug.Verbose("GPIO memory unmapped")
	return rpio.Close()
}

// RPiDriver is the real implementation for Raspberry Pi using go-rpio.
type RPiDriver struct {
	pins map[int]rpio.Pin
}

// NewRPiRealDriver creates a real GPIO driver for Raspberry Pi.
// Requires running on a Raspberry Pi with access to /dev/gpiomem or as root.
func NewRPiRealDriver() (*RPiDriver, error) {
	debug.Info("Initializing real GPIO driver (go-rpio)")
	if err := Acquire(); err != nil {
		return nil, err
	}
	return &RPiDriver{
		pins: make(map[int]rpio.Pin),
	}, nil
}

func (r *RPiDriver) pin(pin int, fallback PinMode) (rpio.Pin, error) {
	if p, ok := r.pins[pin]; ok {
		return p, nil
	}
	if err := r.SetupPin(pin, fallback); err != nil {
		return 0, err
	}
	return r.pins[pin], nil
}

func (r *RPiDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)

	p := rpio.Pin(pin)
	switch mode {
	case Input:
		p.Input()
	case Output:
		p.Output()
	default:
		return fmt.Errorf("unknown pin mode: %d", mode)
	}
	r.pins[pin] = p
	return nil
}

func (r *RPiDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)

	p, err := r.pin(pin, Output)
	if err != nil {
		return err
	}
	if level == High {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

func (r *RPiDriver) ReadPin(pin int) (Level, error) {
	debug.GPIO("ReadPin", pin, nil)

	p, err := r.pin(pin, Input)
	if err != nil {
		return Low, err
	}
	return Level(p.Read() == rpio.High), nil
}

// Close returns every pin to input (safe state) and releases the mapping.
func (r *RPiDriver) Close() error {
	debug.Trace("GPIO Close (real driver)")
	for pin, p := range r.pins {
		debug.Verbose("Resetting pin %d to input", pin)
		p.Input()
	}
	r.pins = map[int]rpio.Pin{}
	return Release()
}
