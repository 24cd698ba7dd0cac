package easycontrols

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReadFrame(t *testing.T) {

	require := require.New(t)

	f, err := ParseFrame("v00101")
	require.NoError(err)
	require.False(f.IsWrite)
	require.Equal("00101", f.VariableID)
	require.Equal("v00101", f.String())
}

func TestParseWriteFrame(t *testing.T) {

	require := require.New(t)

	f, err := ParseFrame("v00101=3")
	require.NoError(err)
	require.True(f.IsWrite)
	require.Equal("00101", f.VariableID)
	require.Equal("3", f.Value)

	f, err = ParseFrame("v00000=")
	require.NoError(err)
	require.True(f.IsWrite)
	require.Equal("", f.Value)
}

func TestParseMalformedFrames(t *testing.T) {

	for _, raw := range []string{"", "x123", "v001", "v0010a", "v00101x3", "V00101", "v00101\x01"} {
		_, err := ParseFrame(raw)
		assert.True(t, errors.Is(err, ErrMalformedFrame), "frame %q", raw)
	}
}

func TestRegistersASCII(t *testing.T) {

	assert := assert.New(t)

	regs := ASCIIToRegisters("v00101", 0)
	assert.Equal([]uint16{0x7630, 0x3031, 0x3031, 0x0000}, regs)
	assert.Equal("v00101", RegistersToASCII(regs))

	regs = ASCIIToRegisters("2", 4)
	assert.Equal([]uint16{0x3200, 0, 0, 0}, regs)
	assert.Equal("2", RegistersToASCII(regs))

	// no terminator
	assert.Equal("ab", RegistersToASCII([]uint16{0x6162}))
}

func TestStripEcho(t *testing.T) {

	assert := assert.New(t)

	assert.Equal("2", StripEcho("00101", "v00101=2"))
	assert.Equal("2", StripEcho("00101", "2"))
}

func TestTestVariableClient(t *testing.T) {

	require := require.New(t)

	c := CreateTestVariableClient(map[string]string{"00101": "1"})
	v, err := c.ReadVariable("00101")
	require.NoError(err)
	require.Equal("1", v)

	require.NoError(c.WriteVariable("00101", "2"))
	v, err = c.ReadVariable("00101")
	require.NoError(err)
	require.Equal("2", v)

	require.Error(c.WriteVariable("1", "2"))
}
