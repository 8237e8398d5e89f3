package presence

import (
	"github.com/eclesh/welford"
)

// Survey accumulates running statistics of raw photodiode voltages, used
// to pick a dark threshold for a new station or lighting setup.
type Survey struct {
	stats    *welford.Stats
	n        int
	min, max float64
}

// NewSurvey returns an empty survey.
func NewSurvey() *Survey {
	return &Survey{stats: welford.New()}
}

// Add records one voltage.
func (s *Survey) Add(v float64) {
	if s.n == 0 || v < s.min {
		s.min = v
	}
	if s.n == 0 || v > s.max {
		s.max = v
	}
	s.n++
	s.stats.Add(v)
}

// Count returns the number of recorded voltages.
func (s *Survey) Count() int {
	return s.n
}

func (s *Survey) Mean() float64   { return s.stats.Mean() }
func (s *Survey) Stddev() float64 { return s.stats.Stddev() }
func (s *Survey) Min() float64    { return s.min }
func (s *Survey) Max() float64    { return s.max }

// SuggestThreshold returns the midpoint between a lit survey and a dark
// (item present) survey.
func SuggestThreshold(lit, dark *Survey) float64 {
	return (lit.Mean() + dark.Mean()) / 2
}
