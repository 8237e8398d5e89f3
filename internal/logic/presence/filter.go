// Package presence debounces the loading-station photodiode into a
// boolean "item present" (dark) signal.
package presence

import (
	"math"

	"github.com/cjeanneret/daisy/internal/debug"
)

// Filter is a fixed-size moving-average window over the most recent
// voltage samples. The window starts zero-filled, so callers must tolerate
// a warm-up of N samples. Not safe for concurrent use.
type Filter struct {
	samples   []float64
	cursor    int
	writes    int
	threshold float64
	dark      bool
}

// NewFilter returns a window of n samples (n < 1 is treated as 1) that
// reports dark when the mean voltage is strictly below threshold.
func NewFilter(n int, threshold float64) *Filter {
	if n < 1 {
		n = 1
	}
	return &Filter{
		samples:   make([]float64, n),
		threshold: threshold,
	}
}

// Sample overwrites the oldest entry with v.
func (f *Filter) Sample(v float64) {
	f.samples[f.cursor] = v
	f.cursor = (f.cursor + 1) % len(f.samples)
	if f.writes < len(f.samples) {
		f.writes++
	}
}

// Mean returns the arithmetic mean of the window. The sum is compensated
// (Neumaier) so the result does not depend on the order samples were written.
func (f *Filter) Mean() float64 {
	var sum, c float64
	for _, v := range f.samples {
		t := sum + v
		if math.Abs(sum) >= math.Abs(v) {
			c += (sum - t) + v
		} else {
			c += (v - t) + sum
		}
		sum = t
	}
	return (sum + c) / float64(len(f.samples))
}

// IsDark recomputes the mean and reports whether it is strictly below the
// threshold. A mean equal to the threshold is not dark. The result is also
// cached for Cached.
func (f *Filter) IsDark() bool {
	mean := f.Mean()
	f.dark = mean < f.threshold
	debug.Trace("photodiode mean=%.4f threshold=%.4f dark=%v", mean, f.threshold, f.dark)
	return f.dark
}

// Cached returns the result of the last IsDark call without recomputing.
func (f *Filter) Cached() bool {
	return f.dark
}

// Len returns the window size N.
func (f *Filter) Len() int {
	return len(f.samples)
}

// Filled reports whether at least N samples have been written.
func (f *Filter) Filled() bool {
	return f.writes >= len(f.samples)
}

// Threshold returns the dark threshold.
func (f *Filter) Threshold() float64 {
	return f.threshold
}
