// Package routine sequences indexer operations over several control ticks.
// A routine is started once, executed every tick until it reports itself
// finished, then ended. The Scheduler runs at most one routine at a time.
package routine

import (
	"time"

	"github.com/cjeanneret/daisy/internal/debug"
)

// Indexer is the part of the carousel controller the routines drive.
type Indexer interface {
	AdvanceOneSlot()
	RetreatOneSlot()
	DischargeFullRevolution()
	MoveForwardSlowly()
	Stop()
	AtSetpoint(toleranceFraction float64) bool
	IsFull() bool
}

// Sensor reports whether an item sits in front of the loading station.
// Filled is false while the sensor window still holds its zero-filled
// warm-up samples, which read as dark.
type Sensor interface {
	IsDark() bool
	Filled() bool
}

// Routine is a multi-tick operation.
type Routine interface {
	Name() string
	Initialize()
	Execute()
	IsFinished() bool
	End(interrupted bool)
}

// move issues one closed-loop move on Initialize and finishes once the
// controller reports the new setpoint reached.
type move struct {
	name string
	ix   Indexer
	tol  float64
	do   func()
}

func (m *move) Name() string     { return m.name }
func (m *move) Initialize()      { m.do() }
func (m *move) Execute()         {}
func (m *move) IsFinished() bool { return m.ix.AtSetpoint(m.tol) }

// End leaves the motor holding its position in closed loop.
func (m *move) End(bool) {}

// NewDischarge spins the daisy a full revolution and waits until it is
// within tol (fraction of a revolution) of the new setpoint.
func NewDischarge(ix Indexer, tol float64) Routine {
	return &move{name: "discharge", ix: ix, tol: tol, do: ix.DischargeFullRevolution}
}

// NewAdvance moves one slot forward.
func NewAdvance(ix Indexer, tol float64) Routine {
	return &move{name: "advance", ix: ix, tol: tol, do: ix.AdvanceOneSlot}
}

// NewRetreat runs the "previous slot" operation, which moves the same way
// as NewAdvance.
func NewRetreat(ix Indexer, tol float64) Routine {
	return &move{name: "retreat", ix: ix, tol: tol, do: ix.RetreatOneSlot}
}

// Jog drives the daisy forward in open loop until it is interrupted. The
// output is set once; the controller holds it until End stops the motor.
type Jog struct {
	ix Indexer
}

func NewJog(ix Indexer) *Jog { return &Jog{ix: ix} }

func (j *Jog) Name() string     { return "jog" }
func (j *Jog) Initialize()      { j.ix.MoveForwardSlowly() }
func (j *Jog) Execute()         {}
func (j *Jog) IsFinished() bool { return false }
func (j *Jog) End(bool)         { j.ix.Stop() }

// Load fills the daisy from the loading station: each time an item darkens
// the photodiode while the daisy is at its setpoint, the daisy advances one
// slot. After a move the station must read light again before the next
// advance. Nothing happens until the sensor window is filled. It finishes
// once the daisy is full.
type Load struct {
	ix     Indexer
	sensor Sensor
	tol    float64
	armed  bool
	loaded int
}

func NewLoad(ix Indexer, sensor Sensor, tol float64) *Load {
	return &Load{ix: ix, sensor: sensor, tol: tol}
}

func (l *Load) Name() string { return "load" }

func (l *Load) Initialize() {
	l.armed = true
	l.loaded = 0
}

func (l *Load) Execute() {
	if l.ix.IsFull() || !l.sensor.Filled() || !l.ix.AtSetpoint(l.tol) {
		return
	}
	dark := l.sensor.IsDark()
	switch {
	case !l.armed && !dark:
		l.armed = true
	case l.armed && dark:
		l.ix.AdvanceOneSlot()
		l.armed = false
		l.loaded++
		debug.Live("Item loaded (%d this run)", l.loaded)
	}
}

func (l *Load) IsFinished() bool { return l.ix.IsFull() }

func (l *Load) End(interrupted bool) {
	debug.Verbose("Load ended after %d items (interrupted=%v)", l.loaded, interrupted)
}

// Loaded returns the number of items loaded since Initialize.
func (l *Load) Loaded() int { return l.loaded }

type timeout struct {
	Routine
	limit   time.Duration
	now     func() time.Time
	started time.Time
	expired bool
}

// WithTimeout finishes r after d even if r has not finished by itself; r is
// then ended as interrupted. A nil now uses time.Now.
func WithTimeout(r Routine, d time.Duration, now func() time.Time) Routine {
	if now == nil {
		now = time.Now
	}
	return &timeout{Routine: r, limit: d, now: now}
}

func (t *timeout) Initialize() {
	t.started = t.now()
	t.expired = false
	t.Routine.Initialize()
}

func (t *timeout) IsFinished() bool {
	if t.Routine.IsFinished() {
		return true
	}
	if t.now().Sub(t.started) >= t.limit {
		t.expired = true
		debug.Warn("Routine %s timed out after %v", t.Name(), t.limit)
		return true
	}
	return false
}

func (t *timeout) End(interrupted bool) {
	t.Routine.End(interrupted || t.expired)
}
