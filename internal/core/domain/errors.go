package domain

import (
	"errors"

	"github.com/berfenger/kwlsim/pkg/easycontrols"
)

var (
	ErrUnknownVariable        = errors.New("unknown variable")
	ErrUnknownProperty        = errors.New("unknown property")
	ErrNotReadable            = errors.New("property is not readable")
	ErrNotWritable            = errors.New("property is not writable")
	ErrMalformedFrame         = easycontrols.ErrMalformedFrame
	ErrDecoding               = errors.New("decoding error")
	ErrEncodingLimitsExceeded = errors.New("encoding limits exceeded")
	ErrTypeMismatch           = errors.New("value type mismatch")
	ErrIndexOutOfRange        = errors.New("index out of range")
)
