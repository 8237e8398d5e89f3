package indexer

import "time"

// MotionTimers measure how long the daisy has been chasing its setpoint
// and how long it has been holding it. Exactly one of them is non-zero
// after a closed-loop move has been issued.
type MotionTimers struct {
	TimeMoving     time.Duration
	TimeInPosition time.Duration
	Target         float64
	Error          float64
}

// JamPolicy is called with the motion timers on every Periodic tick. No
// policy ships with the controller: deciding what a jam is and how to
// recover belongs to the caller, which may also just wrap its routines with
// a timeout.
type JamPolicy interface {
	Evaluate(c *Controller, t MotionTimers)
}

// JamPolicyFunc adapts a function to JamPolicy.
type JamPolicyFunc func(c *Controller, t MotionTimers)

func (f JamPolicyFunc) Evaluate(c *Controller, t MotionTimers) { f(c, t) }
