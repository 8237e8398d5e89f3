package indexer

// Geometry maps the monotonic slot counter onto the carousel. The counter
// is the only source of truth; the modular slot and the setpoint are pure
// functions of it.
type Geometry struct {
	Slots              int     // slots per revolution
	UnitsPerRevolution float64 // actuator native units per revolution
	Offset             float64 // native units of slot index 0
}

// UnitsPerSlot returns the distance between adjacent slots.
func (g Geometry) UnitsPerSlot() float64 {
	return g.UnitsPerRevolution / float64(g.Slots)
}

// Setpoint returns the absolute actuator position of slot index.
func (g Geometry) Setpoint(slot int64) float64 {
	return float64(slot)*g.UnitsPerSlot() + g.Offset
}

// SlotMod returns slot mod n in [0, n), or 0 when n <= 0.
func SlotMod(slot int64, n int) int {
	if n <= 0 {
		return 0
	}
	m := slot % int64(n)
	if m < 0 {
		m += int64(n)
	}
	return int(m)
}
