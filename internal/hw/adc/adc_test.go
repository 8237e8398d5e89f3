package adc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest(t *testing.T) {
	assert.Equal(t, []byte{0x01, 0x80, 0x00}, request(0))
	assert.Equal(t, []byte{0x01, 0xB0, 0x00}, request(3))
	assert.Equal(t, []byte{0x01, 0xF0, 0x00}, request(7))
}

func TestDecode(t *testing.T) {
	cases := []struct {
		reply []byte
		want  int
	}{
		{[]byte{0x00, 0x00, 0x00}, 0},
		{[]byte{0xFF, 0x03, 0xFF}, 1023},
		{[]byte{0x00, 0x02, 0x00}, 512},
		{[]byte{0x00, 0xFD, 0x10}, 0x110}, // upper bits of byte 1 are ignored
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, decode(tc.reply), "decode(%v)", tc.reply)
	}
}

func TestNewMCP3008_BadConfig(t *testing.T) {
	_, err := NewMCP3008(MCP3008Config{Channel: 8, VRef: 3.3})
	assert.Error(t, err)
	_, err = NewMCP3008(MCP3008Config{Channel: 0, VRef: 0})
	assert.Error(t, err)
}

func TestMockSource_Cycles(t *testing.T) {
	src := NewMockSource(0.1, 0.9)
	var got []float64
	for i := 0; i < 5; i++ {
		v, err := src.ReadVoltage()
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, []float64{0.1, 0.9, 0.1, 0.9, 0.1}, got)
}

func TestMockSource_EmptyAndSet(t *testing.T) {
	src := NewMockSource()
	v, err := src.ReadVoltage()
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)

	src.Set(2.5)
	v, _ = src.ReadVoltage()
	assert.Equal(t, 2.5, v)
}
