// Package adc reads the photodiode voltage at the daisy's loading station.
package adc

import (
	"errors"
	"fmt"

	"github.com/cjeanneret/daisy/internal/debug"
	"github.com/cjeanneret/daisy/internal/hw/gpio"
	"github.com/stianeikeland/go-rpio/v4"
)

// Source is a single-channel analog input, polled once per control tick.
type Source interface {
	ReadVoltage() (float64, error)
	Close() error
}

// MCP3008Config selects the ADC channel and scaling.
type MCP3008Config struct {
	Channel int     // single-ended input 0-7
	VRef    float64 // reference voltage, full scale
	SpeedHz int     // SPI clock
	ChipSel uint8   // SPI0 chip select (CE0 = 0)
}

// MCP3008 is a 10-bit SPI ADC wired to SPI0 of a Raspberry Pi.
type MCP3008 struct {
	cfg MCP3008Config
}

// NewMCP3008 maps the GPIO memory and starts SPI0.
func NewMCP3008(cfg MCP3008Config) (*MCP3008, error) {
	if cfg.Channel < 0 || cfg.Channel > 7 {
		return nil, fmt.Errorf("mcp3008: channel must be 0-7, got %d", cfg.Channel)
	}
	if cfg.VRef <= 0 {
		return nil, errors.New("mcp3008: vref must be > 0")
	}
	if err := gpio.Acquire(); err != nil {
		return nil, err
	}
	if err := rpio.SpiBegin(rpio.Spi0); err != nil {
		_ = gpio.Release()
		return nil, fmt.Errorf("mcp3008: begin SPI0: %w", err)
	}
	if cfg.SpeedHz > 0 {
		rpio.SpiSpeed(cfg.SpeedHz)
	}
	rpio.SpiChipSelect(cfg.ChipSel)
	debug.Info("MCP3008 ready on SPI0 CE%d, channel %d, vref %.2fV", cfg.ChipSel, cfg.Channel, cfg.VRef)
	return &MCP3008{cfg: cfg}, nil
}

// request builds the 3-byte single-ended conversion request for channel ch.
func request(ch int) []byte {
	return []byte{0x01, byte(0x80 | (ch&0x07)<<4), 0x00}
}

// decode extracts the 10-bit result from a conversion reply.
func decode(reply []byte) int {
	return int(reply[1]&0x03)<<8 | int(reply[2])
}

// ReadVoltage performs one conversion and scales it to volts.
func (m *MCP3008) ReadVoltage() (float64, error) {
	buf := request(m.cfg.Channel)
	rpio.SpiExchange(buf)
	raw := decode(buf)
	v := float64(raw) * m.cfg.VRef / 1023.0
	debug.Trace("MCP3008 ch%d raw=%d volts=%.3f", m.cfg.Channel, raw, v)
	return v, nil
}

// Close stops SPI0 and releases the GPIO mapping.
func (m *MCP3008) Close() error {
	rpio.SpiEnd(rpio.Spi0)
	return gpio.Release()
}

// MockSource replays a fixed list of voltages, cycling forever.
type MockSource struct {
	Values []float64
	next   int
}

// NewMockSource returns a source cycling through values (a constant 0 when empty).
func NewMockSource(values ...float64) *MockSource {
	return &MockSource{Values: values}
}

func (m *MockSource) ReadVoltage() (float64, error) {
	if len(m.Values) == 0 {
		return 0, nil
	}
	v := m.Values[m.next]
	m.next = (m.next + 1) % len(m.Values)
	return v, nil
}

// Set replaces the replayed values and restarts from the first one.
func (m *MockSource) Set(values ...float64) {
	m.Values = values
	m.next = 0
}

func (m *MockSource) Close() error {
	return nil
}
