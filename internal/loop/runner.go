// Package loop runs the periodic control loop. One goroutine owns the
// indexer controller, the photodiode filter and the routine scheduler;
// other goroutines reach them only through Submit, PushGains and Snapshot.
package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cjeanneret/daisy/internal/debug"
	"github.com/cjeanneret/daisy/internal/diag"
	"github.com/cjeanneret/daisy/internal/hw/adc"
	"github.com/cjeanneret/daisy/internal/logic/indexer"
	"github.com/cjeanneret/daisy/internal/logic/presence"
	"github.com/cjeanneret/daisy/internal/logic/routine"
)

var (
	// ErrQueueFull is returned by Submit when the command queue is full.
	ErrQueueFull = errors.New("loop: command queue is full")
	// ErrUnknownCommand is returned by Submit for a name it does not know.
	ErrUnknownCommand = errors.New("loop: unknown command")
)

// Commands lists the names accepted by Submit.
var Commands = []string{"advance", "retreat", "discharge", "jog", "load", "stop", "calibrate"}

// Config holds the loop timing.
type Config struct {
	Period    time.Duration // control tick
	Tolerance float64       // at-setpoint tolerance for routines, fraction of a revolution
	Timeout   time.Duration // closed-loop routines are interrupted after this long (0 = never)
	QueueSize int           // pending commands
}

// Snapshot is the state published after every tick.
type Snapshot struct {
	SlotIndex       int64                `json:"slot_index"`
	SlotMod         int                  `json:"slot_mod"`
	Full            bool                 `json:"full"`
	Target          float64              `json:"target"`
	ClosedLoopError float64              `json:"closed_loop_error"`
	AtSetpoint      bool                 `json:"at_setpoint"`
	Dark            bool                 `json:"dark"`
	SensorMean      float64              `json:"sensor_mean"`
	SensorReady     bool                 `json:"sensor_ready"` // false until the window has been filled once
	SensorErrors    int                  `json:"sensor_errors"`
	Gains           indexer.Gains        `json:"gains"`
	Limits          indexer.OutputLimits `json:"limits"`
	Phase           string               `json:"phase"`
	Routine         string               `json:"routine"`
	Tuning          bool                 `json:"tuning"`
	DriverErrors    int                  `json:"driver_errors"`
	LastError       string               `json:"last_error,omitempty"`
	Ticks           uint64               `json:"ticks"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

type gainsRequest struct {
	update indexer.GainsUpdate
	reply  chan error
}

// Option customizes a Runner.
type Option func(*Runner)

// WithSink publishes the sensor diagnostics while tuning is on.
func WithSink(s diag.Sink) Option {
	return func(r *Runner) { r.sink = s }
}

// WithPlant calls step at the start of every tick. The simulated actuator
// advances its plant this way.
func WithPlant(step func()) Option {
	return func(r *Runner) { r.plant = step }
}

// WithObserver is called with the snapshot after every tick, from the loop
// goroutine. It must not block.
func WithObserver(fn func(Snapshot)) Option {
	return func(r *Runner) { r.observer = fn }
}

// WithClock overrides time.Now for snapshots and routine timeouts.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// Runner is the control loop.
type Runner struct {
	cfg    Config
	ctl    *indexer.Controller
	filter *presence.Filter
	source adc.Source
	sched  *routine.Scheduler

	sink     diag.Sink
	plant    func()
	observer func(Snapshot)
	now      func() time.Time
	tuning   bool

	commands chan string
	gains    chan gainsRequest

	ticks        uint64
	sensorErrors int

	mu   sync.RWMutex
	snap Snapshot
}

// New wires a runner around an already configured controller.
func New(cfg Config, ctl *indexer.Controller, filter *presence.Filter, source adc.Source, opts ...Option) *Runner {
	if cfg.Period <= 0 {
		cfg.Period = 20 * time.Millisecond
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 8
	}
	r := &Runner{
		cfg:      cfg,
		ctl:      ctl,
		filter:   filter,
		source:   source,
		sched:    routine.NewScheduler(),
		sink:     diag.Nop{},
		now:      time.Now,
		tuning:   ctl.Tuning(),
		commands: make(chan string, cfg.QueueSize),
		gains:    make(chan gainsRequest),
	}
	for _, o := range opts {
		o(r)
	}
	r.refresh()
	return r
}

// Submit queues a named command for the next tick. It never blocks.
func (r *Runner) Submit(name string) error {
	if !known(name) {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	select {
	case r.commands <- name:
		debug.Verbose("Command %s queued", name)
		return nil
	default:
		return ErrQueueFull
	}
}

func known(name string) bool {
	for _, c := range Commands {
		if c == name {
			return true
		}
	}
	return false
}

// PushGains hands a gains update to the loop and waits for the result. The
// snapshot already reflects the update when PushGains returns.
// indexer.ErrTuningDisabled is returned without involving the loop.
func (r *Runner) PushGains(ctx context.Context, u indexer.GainsUpdate) error {
	if !r.tuning {
		return indexer.ErrTuningDisabled
	}
	if err := u.Validate(); err != nil {
		return err
	}
	req := gainsRequest{update: u, reply: make(chan error, 1)}
	select {
	case r.gains <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the state as of the last tick.
func (r *Runner) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// Run ticks until ctx is done, then interrupts the active routine and stops
// the motor.
func (r *Runner) Run(ctx context.Context) error {
	debug.Info("Control loop started (period %v)", r.cfg.Period)
	ticker := time.NewTicker(r.cfg.Period)
	defer ticker.Stop()
	defer r.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-r.gains:
			err := r.ctl.Tune(req.update)
			r.refresh()
			req.reply <- err
		case <-ticker.C:
			r.Tick()
		}
	}
}

func (r *Runner) shutdown() {
	r.sched.Cancel()
	r.ctl.Stop()
	r.refresh()
	debug.Info("Control loop stopped at slot %d", r.ctl.SlotIndex())
}

// Tick runs one control period. Run calls it on every tick; tests call it
// directly.
func (r *Runner) Tick() {
	r.drain()
	if r.plant != nil {
		r.plant()
	}
	r.sample()
	r.ctl.Periodic()
	r.sched.Tick()
	r.ticks++
	r.refresh()
}

func (r *Runner) drain() {
	for {
		select {
		case name := <-r.commands:
			r.dispatch(name)
		default:
			return
		}
	}
}

func (r *Runner) dispatch(name string) {
	tol := r.cfg.Tolerance
	var next routine.Routine
	switch name {
	case "advance":
		next = routine.NewAdvance(r.ctl, tol)
	case "retreat":
		next = routine.NewRetreat(r.ctl, tol)
	case "discharge":
		next = routine.NewDischarge(r.ctl, tol)
	case "load":
		next = routine.NewLoad(r.ctl, r.filter, tol)
	case "jog":
		r.sched.Start(routine.NewJog(r.ctl))
		return
	case "stop":
		r.sched.Cancel()
		r.ctl.Stop()
		return
	case "calibrate":
		if err := r.ctl.Calibrate(); err != nil {
			debug.Error(err)
		}
		return
	}
	if r.cfg.Timeout > 0 {
		next = routine.WithTimeout(next, r.cfg.Timeout, r.now)
	}
	r.sched.Start(next)
}

func (r *Runner) sample() {
	v, err := r.source.ReadVoltage()
	if err != nil {
		r.sensorErrors++
		debug.Error(fmt.Errorf("read photodiode: %w", err))
	} else {
		r.filter.Sample(v)
	}
	dark := r.filter.IsDark()
	if r.tuning {
		r.sink.Publish("sensor_mean", r.filter.Mean())
		r.sink.Publish("sensor_dark", boolGauge(dark))
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (r *Runner) refresh() {
	c := r.ctl
	s := Snapshot{
		SlotIndex:       c.SlotIndex(),
		SlotMod:         c.CurrentSlotMod(c.Slots()),
		Full:            c.IsFull(),
		Target:          c.Target(),
		ClosedLoopError: c.ClosedLoopError(),
		AtSetpoint:      c.Settled(),
		Dark:            r.filter.Cached(),
		SensorMean:      r.filter.Mean(),
		SensorReady:     r.filter.Filled(),
		SensorErrors:    r.sensorErrors,
		Gains:           c.Gains(),
		Limits:          c.Limits(),
		Phase:           c.Phase().String(),
		Routine:         r.sched.ActiveName(),
		Tuning:          r.tuning,
		DriverErrors:    c.DriverErrors(),
		Ticks:           r.ticks,
		UpdatedAt:       r.now(),
	}
	if err := c.LastError(); err != nil {
		s.LastError = err.Error()
	}
	r.mu.Lock()
	r.snap = s
	r.mu.Unlock()
	if r.observer != nil {
		r.observer(s)
	}
}
