package routine

import "github.com/cjeanneret/daisy/internal/debug"

// Scheduler owns at most one active routine. It is driven by the control
// loop and is not safe for concurrent use.
type Scheduler struct {
	active   Routine
	finished int
	canceled int
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Start interrupts the active routine, if any, and initializes r.
func (s *Scheduler) Start(r Routine) {
	s.Cancel()
	debug.Live("Routine %s started", r.Name())
	r.Initialize()
	s.active = r
}

// Cancel ends the active routine as interrupted.
func (s *Scheduler) Cancel() {
	if s.active == nil {
		return
	}
	r := s.active
	s.active = nil
	s.canceled++
	debug.Live("Routine %s interrupted", r.Name())
	r.End(true)
}

// Tick executes one step of the active routine and ends it once finished.
// It reports whether a routine finished during this tick.
func (s *Scheduler) Tick() bool {
	if s.active == nil {
		return false
	}
	r := s.active
	r.Execute()
	if !r.IsFinished() {
		return false
	}
	s.active = nil
	s.finished++
	debug.Live("Routine %s finished", r.Name())
	r.End(false)
	return true
}

// Active returns the running routine, or nil.
func (s *Scheduler) Active() Routine {
	return s.active
}

// ActiveName returns the running routine's name, or "" when idle.
func (s *Scheduler) ActiveName() string {
	if s.active == nil {
		return ""
	}
	return s.active.Name()
}

// Counts returns how many routines finished and how many were interrupted.
func (s *Scheduler) Counts() (finished, canceled int) {
	return s.finished, s.canceled
}
