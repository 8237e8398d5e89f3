package actuator

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cjeanneret/daisy/internal/debug"
	"github.com/cjeanneret/daisy/internal/hw/gpio"
	"go.bug.st/serial"
)

// ErrNoReply is returned when the controller does not answer a query in time.
var ErrNoReply = errors.New("actuator: no reply from controller")

// SerialConfig describes the serial link to the motor controller board.
type SerialConfig struct {
	Port     string
	BaudRate int
	Timeout  time.Duration // per-query read timeout
}

// port is the subset of serial.Port used by SerialDriver.
type port interface {
	io.ReadWriter
	ResetInputBuffer() error
	Close() error
}

// SerialDriver talks to a motor controller board over a line protocol:
//
//	P <units>                    position setpoint
//	O <output>                   open-loop output
//	G <p> <i> <d> <f>            gains
//	L <min> <max>                output limits
//	D <units>                    allowable closed-loop error
//	S <units>                    set relative sensor position
//	E? <seq> -> E <seq> <units>  closed-loop error
//	A? <seq> -> A <seq> <raw>    absolute (pulse-width) position
//	X? <seq> -> X <seq> <units>  relative sensor position
//
// Commands are not acknowledged; queries wait up to Timeout for the reply
// line carrying their own sequence number. Replies to earlier queries that
// arrive late are dropped.
type SerialDriver struct {
	port    port
	timeout time.Duration
	enable  *gpio.EnableLine
	buf     []byte
	seq     uint64
}

// OpenSerial opens the serial port and enables the controller through the
// optional enable line (nil when not wired).
func OpenSerial(cfg SerialConfig, enable *gpio.EnableLine) (*SerialDriver, error) {
	debug.Info("Opening motor controller on %s @ %d baud", cfg.Port, cfg.BaudRate)
	p, err := serial.Open(cfg.Port, &serial.Mode{BaudRate: cfg.BaudRate})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 50 * time.Millisecond
	}
	// short reads let readLine enforce its own deadline
	if err := p.SetReadTimeout(5 * time.Millisecond); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	d := newSerialDriver(p, timeout, enable)
	if enable != nil {
		if err := enable.Enable(); err != nil {
			p.Close()
			return nil, fmt.Errorf("enable motor controller: %w", err)
		}
	}
	return d, nil
}

func newSerialDriver(p port, timeout time.Duration, enable *gpio.EnableLine) *SerialDriver {
	return &SerialDriver{port: p, timeout: timeout, enable: enable}
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (s *SerialDriver) send(fields ...string) error {
	line := strings.Join(fields, " ")
	debug.Command("serial >", line)
	if _, err := s.port.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("write %q: %w", line, err)
	}
	return nil
}

// query sends "<key>? <seq>" and returns the value of the matching
// "<key> <seq> <value>" reply. Pending input is discarded first. Unrelated
// lines (log output from the board) and stale replies are skipped.
func (s *SerialDriver) query(key string) (string, error) {
	s.discard()
	s.seq++
	tag := strconv.FormatUint(s.seq, 10)
	if err := s.send(key+"?", tag); err != nil {
		return "", err
	}
	deadline := time.Now().Add(s.timeout)
	for time.Now().Before(deadline) {
		line, err := s.readLine(deadline)
		if errors.Is(err, ErrNoReply) {
			break
		}
		if err != nil {
			return "", err
		}
		debug.Command("serial <", line)
		fields := strings.Fields(line)
		if len(fields) != 3 || fields[0] != key {
			continue
		}
		if fields[1] == tag {
			return fields[2], nil
		}
		debug.Trace("Dropping stale reply %q (waiting for %s)", line, tag)
	}
	return "", fmt.Errorf("%w (query %s? %s)", ErrNoReply, key, tag)
}

// discard drops buffered input left over from earlier queries.
func (s *SerialDriver) discard() {
	if len(s.buf) > 0 {
		debug.Trace("Discarding %d buffered bytes", len(s.buf))
		s.buf = s.buf[:0]
	}
	if err := s.port.ResetInputBuffer(); err != nil {
		debug.Error(fmt.Errorf("reset serial input: %w", err))
	}
}

func (s *SerialDriver) readLine(deadline time.Time) (string, error) {
	chunk := make([]byte, 64)
	for {
		if i := bytes.IndexByte(s.buf, '\n'); i >= 0 {
			line := strings.TrimSpace(string(s.buf[:i]))
			s.buf = s.buf[i+1:]
			return line, nil
		}
		if !time.Now().Before(deadline) {
			return "", ErrNoReply
		}
		n, err := s.port.Read(chunk)
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read: %w", err)
		}
		s.buf = append(s.buf, chunk[:n]...)
		if n == 0 {
			time.Sleep(time.Millisecond)
		}
	}
}

func (s *SerialDriver) SetPositionSetpoint(units float64) error {
	return s.send("P", ftoa(units))
}

func (s *SerialDriver) SetOpenLoop(output float64) error {
	if output > 1 {
		output = 1
	} else if output < -1 {
		output = -1
	}
	return s.send("O", ftoa(output))
}

func (s *SerialDriver) ClosedLoopError() (float64, error) {
	v, err := s.query("E")
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(v, 64)
}

func (s *SerialDriver) SetGains(p, i, d, f float64) error {
	return s.send("G", ftoa(p), ftoa(i), ftoa(d), ftoa(f))
}

func (s *SerialDriver) SetOutputLimits(min, max float64) error {
	return s.send("L", ftoa(min), ftoa(max))
}

func (s *SerialDriver) SetAllowableError(units float64) error {
	return s.send("D", ftoa(units))
}

func (s *SerialDriver) AbsolutePosition() (int, error) {
	v, err := s.query("A")
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(v)
}

func (s *SerialDriver) SensorPosition() (float64, error) {
	v, err := s.query("X")
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(v, 64)
}

func (s *SerialDriver) SetSensorPosition(units int) error {
	return s.send("S", strconv.Itoa(units))
}

// Close stops the motor, disables the controller and closes the port.
func (s *SerialDriver) Close() error {
	var errs []error
	if err := s.SetOpenLoop(0); err != nil {
		errs = append(errs, err)
	}
	if s.enable != nil {
		if err := s.enable.Disable(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.port.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
