package comms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovementCommandBytes(t *testing.T) {
	tests := []struct {
		name string
		cmd  MovementCommand
		want []byte
	}{
		{"stop", Stop, []byte{0xFF, 0x00}},
		{"up", Up, []byte{0x47, 0x00}},
		{"down", Down, []byte{0x46, 0x00}},
		{"move to 1050mm", MoveToHeight(10500), []byte{0x05, 0x04, 0x29}},
		{"move to zero", MoveToHeight(0), []byte{0x05, 0x00, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Encode(tt.cmd))
		})
	}
}

func TestPrebuiltCommands(t *testing.T) {
	assert.Equal(t, []byte{0xFF, 0x00}, StopCommand)
	assert.Equal(t, []byte{0x47, 0x00}, UpCommand)
	assert.Equal(t, []byte{0x46, 0x00}, DownCommand)
}

func TestDecodeCommand(t *testing.T) {
	cmd, ok := DecodeCommand([]byte{0x05, 0x04, 0x29})
	require.True(t, ok)
	assert.Equal(t, MoveToHeight(10500), cmd)

	cmd, ok = DecodeCommand(BuildStopCommand())
	require.True(t, ok)
	assert.Equal(t, KindStop, cmd.Kind)

	_, ok = DecodeCommand([]byte{0x05, 0x04})
	assert.False(t, ok, "truncated move command")

	_, ok = DecodeCommand([]byte{0x12, 0x00})
	assert.False(t, ok, "unknown opcode")
}

func TestDecodeHeight(t *testing.T) {
	units, ok := DecodeHeight([]byte{0x04, 0x29})
	require.True(t, ok)
	assert.Equal(t, uint16(10500), units)

	units, ok = DecodeHeight([]byte{0x04, 0x29, 0x00, 0x7f, 0xaa})
	require.True(t, ok)
	assert.Equal(t, uint16(10500), units, "trailing bytes are ignored")

	_, ok = DecodeHeight([]byte{0x04})
	assert.False(t, ok)

	_, ok = DecodeHeight(nil)
	assert.False(t, ok)
}

func TestUnitConversion(t *testing.T) {
	assert.Equal(t, uint16(10500), MMToUnits(1050))
	assert.Equal(t, uint16(1050), UnitsToMM(10500))
	assert.Equal(t, uint16(1050), UnitsToMM(10509), "sub-millimeter remainder truncates")

	for mm := uint16(0); mm <= MaxHeightMM; mm++ {
		if got := UnitsToMM(MMToUnits(mm)); got != mm {
			t.Fatalf("UnitsToMM(MMToUnits(%d)) = %d", mm, got)
		}
	}
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "Stop", Stop.String())
	assert.Equal(t, "MoveToHeight(6500)", MoveToHeight(6500).String())
}
