package easycontrols

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	VARIABLE_PREFIX    = 'v'
	VARIABLE_ID_DIGITS = 5
	VALUE_SEPARATOR    = '='
)

var ErrMalformedFrame = errors.New("malformed variable frame")

// Frame is one variable command: "vNNNNN" (read) or "vNNNNN=VALUE" (write).
type Frame struct {
	VariableID string
	Value      string
	IsWrite    bool
}

func ReadFrame(variableID string) Frame {
	return Frame{VariableID: variableID}
}

func WriteFrame(variableID string, value string) Frame {
	return Frame{VariableID: variableID, Value: value, IsWrite: true}
}

func (f Frame) String() string {
	if f.IsWrite {
		return fmt.Sprintf("%c%s%c%s", VARIABLE_PREFIX, f.VariableID, VALUE_SEPARATOR, f.Value)
	}
	return fmt.Sprintf("%c%s", VARIABLE_PREFIX, f.VariableID)
}

func ParseFrame(raw string) (Frame, error) {
	if len(raw) < 1+VARIABLE_ID_DIGITS || raw[0] != VARIABLE_PREFIX {
		return Frame{}, fmt.Errorf("%w: %q", ErrMalformedFrame, raw)
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < 0x20 || raw[i] > 0x7e {
			return Frame{}, fmt.Errorf("%w: non printable byte 0x%02x at %d", ErrMalformedFrame, raw[i], i)
		}
	}
	id := raw[1 : 1+VARIABLE_ID_DIGITS]
	if !IsVariableID(id) {
		return Frame{}, fmt.Errorf("%w: bad variable id in %q", ErrMalformedFrame, raw)
	}
	rest := raw[1+VARIABLE_ID_DIGITS:]
	if rest == "" {
		return ReadFrame(id), nil
	}
	if rest[0] != VALUE_SEPARATOR {
		return Frame{}, fmt.Errorf("%w: unexpected %q after variable id", ErrMalformedFrame, rest[0])
	}
	return WriteFrame(id, rest[1:]), nil
}

// IsVariableID reports whether id is exactly five decimal digits.
func IsVariableID(id string) bool {
	if len(id) != VARIABLE_ID_DIGITS {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

// RegistersToASCII unpacks two characters per register, high byte first,
// stopping at the first NUL.
func RegistersToASCII(regs []uint16) string {
	bytes := make([]byte, 0, len(regs)*2)
	for _, r := range regs {
		bytes = append(bytes, byte(r>>8), byte(r))
	}
	f := slices.Index(bytes, 0x00)
	if f >= 0 {
		return string(bytes[:f])
	}
	return string(bytes)
}

// ASCIIToRegisters packs s NUL-terminated into at least minRegisters registers.
func ASCIIToRegisters(s string, minRegisters int) []uint16 {
	n := (len(s) + 2) / 2
	if n < minRegisters {
		n = minRegisters
	}
	regs := make([]uint16, n)
	for i := 0; i < len(s); i++ {
		if i%2 == 0 {
			regs[i/2] = uint16(s[i]) << 8
		} else {
			regs[i/2] |= uint16(s[i])
		}
	}
	return regs
}

// StripEcho removes a "vNNNNN=" prefix from a response window, if present.
func StripEcho(variableID string, response string) string {
	prefix := string(VARIABLE_PREFIX) + variableID + string(VALUE_SEPARATOR)
	return strings.TrimPrefix(response, prefix)
}
