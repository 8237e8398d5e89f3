package indexer

import (
	"errors"
	"fmt"
	"math"
)

// Gains are the closed-loop position gains held by the motor controller.
type Gains struct {
	P float64 `json:"p"`
	I float64 `json:"i"`
	D float64 `json:"d"`
	F float64 `json:"f"`
}

// OutputLimits clamp the closed-loop output.
type OutputLimits struct {
	Min float64 `json:"min_output"`
	Max float64 `json:"max_output"`
}

// GainsUpdate is a partial tuning message. Nil fields keep their current value.
type GainsUpdate struct {
	P         *float64 `json:"p,omitempty"`
	I         *float64 `json:"i,omitempty"`
	D         *float64 `json:"d,omitempty"`
	F         *float64 `json:"f,omitempty"`
	MaxOutput *float64 `json:"max_output,omitempty"`
	MinOutput *float64 `json:"min_output,omitempty"`
}

// ErrEmptyUpdate is returned by Validate for an update carrying no fields.
var ErrEmptyUpdate = errors.New("gains update has no fields")

// Validate rejects non-finite values, empty updates and output limits
// outside [-1, 1].
func (u GainsUpdate) Validate() error {
	fields := []struct {
		name string
		v    *float64
	}{
		{"p", u.P}, {"i", u.I}, {"d", u.D}, {"f", u.F},
		{"max_output", u.MaxOutput}, {"min_output", u.MinOutput},
	}
	set := 0
	for _, f := range fields {
		if f.v == nil {
			continue
		}
		set++
		if math.IsNaN(*f.v) || math.IsInf(*f.v, 0) {
			return fmt.Errorf("%s must be finite, got %g", f.name, *f.v)
		}
	}
	if set == 0 {
		return ErrEmptyUpdate
	}
	for _, l := range []*float64{u.MaxOutput, u.MinOutput} {
		if l != nil && (*l < -1 || *l > 1) {
			return fmt.Errorf("output limits must be within [-1, 1], got %g", *l)
		}
	}
	return nil
}

// Apply returns g and l with the update's non-nil fields substituted.
func (u GainsUpdate) Apply(g Gains, l OutputLimits) (Gains, OutputLimits, error) {
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&g.P, u.P)
	set(&g.I, u.I)
	set(&g.D, u.D)
	set(&g.F, u.F)
	set(&l.Max, u.MaxOutput)
	set(&l.Min, u.MinOutput)
	if l.Min > l.Max {
		return g, l, fmt.Errorf("min_output (%g) must be <= max_output (%g)", l.Min, l.Max)
	}
	return g, l, nil
}
