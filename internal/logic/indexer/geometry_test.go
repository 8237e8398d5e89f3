package indexer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometry_Setpoint(t *testing.T) {
	g := Geometry{Slots: 6, UnitsPerRevolution: 4096, Offset: 100}
	assert.InDelta(t, 4096.0/6, g.UnitsPerSlot(), 1e-12)
	assert.Equal(t, 100.0, g.Setpoint(0))
	assert.Equal(t, float64(6)*(4096.0/6)+100, g.Setpoint(6))
	assert.InDelta(t, 4196, g.Setpoint(6), 1e-9)
}

func TestGeometry_LargeSlotIndex(t *testing.T) {
	g := Geometry{Slots: 6, UnitsPerRevolution: 4096}
	// a season of discharges stays far inside float64's exact integer range
	slot := int64(6 * 1_000_000)
	sp := g.Setpoint(slot)
	require.False(t, math.IsInf(sp, 0))
	assert.InDelta(t, 4096*1_000_000, sp, 1e-3)
}

func TestSlotMod(t *testing.T) {
	cases := []struct {
		slot int64
		n    int
		want int
	}{
		{0, 6, 0},
		{5, 6, 5},
		{6, 6, 0},
		{11, 6, 5},
		{17, 6, 5},
		{-1, 6, 5},
		{7, 0, 0},
		{7, -2, 0},
		{7, 1, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SlotMod(tc.slot, tc.n), "SlotMod(%d, %d)", tc.slot, tc.n)
	}
}
