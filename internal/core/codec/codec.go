package codec

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/berfenger/kwlsim/internal/core/domain"
)

const (
	DEFAULT_DATE_LAYOUT = "02.01.2006"
	DEFAULT_TIME_LAYOUT = "15:04"
)

// Codec converts typed property values to and from their fixed-width ASCII
// representation. The zero value is ready to use.
type Codec struct{}

func (Codec) Encode(d domain.PropertyDescriptor, value any) (string, error) {
	switch d.Type {
	case domain.TypeBool:
		b, ok := value.(bool)
		if !ok {
			return "", mismatch(d, value)
		}
		s := "0"
		if b {
			s = "1"
		}
		return pad(d, s)
	case domain.TypeInteger, domain.TypeEnum:
		i, ok := toInt64(value)
		if !ok {
			return "", mismatch(d, value)
		}
		if d.Type == domain.TypeEnum && !slices.Contains(d.Format.Members, i) {
			return "", fmt.Errorf("%w: %s: %d is not a member", domain.ErrEncodingLimitsExceeded, d.Name, i)
		}
		if !d.Format.Range.Contains(float64(i)) {
			return "", fmt.Errorf("%w: %s: %d out of range", domain.ErrEncodingLimitsExceeded, d.Name, i)
		}
		return pad(d, strconv.FormatInt(i, 10))
	case domain.TypeDouble:
		f, ok := toFloat64(value)
		if !ok {
			return "", mismatch(d, value)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) || !d.Format.Range.Contains(f) {
			return "", fmt.Errorf("%w: %s: %v out of range", domain.ErrEncodingLimitsExceeded, d.Name, f)
		}
		return pad(d, strconv.FormatFloat(f, 'f', d.Format.Precision, 64))
	case domain.TypeDate, domain.TypeTime:
		t, ok := value.(time.Time)
		if !ok {
			return "", mismatch(d, value)
		}
		s := t.Format(layout(d))
		if len(s) != d.Size {
			return "", fmt.Errorf("%w: %s: %q is not %d characters wide", domain.ErrEncodingLimitsExceeded, d.Name, s, d.Size)
		}
		return s, nil
	case domain.TypeString:
		s, ok := value.(string)
		if !ok {
			return "", mismatch(d, value)
		}
		if !printable(s) {
			return "", fmt.Errorf("%w: %s: non printable characters", domain.ErrEncodingLimitsExceeded, d.Name)
		}
		width := d.Width()
		if len(s) > width {
			s = s[:width]
		}
		return s + strings.Repeat(" ", width-len(s)), nil
	}
	return "", fmt.Errorf("%w: %s: unsupported type %s", domain.ErrTypeMismatch, d.Name, d.Type)
}

func (Codec) Decode(d domain.PropertyDescriptor, ascii string) (any, error) {
	if !printable(ascii) {
		return nil, decodingError(d, ascii, "non printable characters")
	}
	switch d.Type {
	case domain.TypeBool:
		s, err := unpad(d, ascii)
		if err != nil {
			return nil, err
		}
		if d.Format.Pad != 0 && len(s) > 1 {
			if strings.Trim(s[:len(s)-1], string(d.Format.Pad)) != "" {
				return nil, decodingError(d, ascii, "unexpected padding")
			}
			s = s[len(s)-1:]
		}
		switch s {
		case "1":
			return true, nil
		case "0":
			return false, nil
		}
		return nil, decodingError(d, ascii, "expected 0 or 1")
	case domain.TypeInteger, domain.TypeEnum:
		s, err := unpad(d, ascii)
		if err != nil {
			return nil, err
		}
		if !isInteger(s) {
			return nil, decodingError(d, ascii, "not an integer")
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, decodingError(d, ascii, err.Error())
		}
		if d.Type == domain.TypeEnum && !slices.Contains(d.Format.Members, i) {
			return nil, decodingError(d, ascii, "not a member")
		}
		if !d.Format.Range.Contains(float64(i)) {
			return nil, decodingError(d, ascii, "out of range")
		}
		return i, nil
	case domain.TypeDouble:
		s, err := unpad(d, ascii)
		if err != nil {
			return nil, err
		}
		if !isFixedPoint(s, d.Format.Precision) {
			return nil, decodingError(d, ascii, fmt.Sprintf("not a decimal with at most %d fractional digits", d.Format.Precision))
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, decodingError(d, ascii, err.Error())
		}
		if !d.Format.Range.Contains(f) {
			return nil, decodingError(d, ascii, "out of range")
		}
		return f, nil
	case domain.TypeDate, domain.TypeTime:
		if len(ascii) != d.Size {
			return nil, decodingError(d, ascii, fmt.Sprintf("expected %d characters", d.Size))
		}
		t, err := time.Parse(layout(d), ascii)
		if err != nil {
			return nil, decodingError(d, ascii, err.Error())
		}
		return t, nil
	case domain.TypeString:
		if len(ascii) > d.Width() {
			return nil, decodingError(d, ascii, fmt.Sprintf("longer than %d characters", d.Width()))
		}
		return strings.TrimRight(ascii, " "), nil
	}
	return nil, fmt.Errorf("%w: %s: unsupported type %s", domain.ErrTypeMismatch, d.Name, d.Type)
}

func layout(d domain.PropertyDescriptor) string {
	if d.Format.Layout != "" {
		return d.Format.Layout
	}
	if d.Type == domain.TypeTime {
		return DEFAULT_TIME_LAYOUT
	}
	return DEFAULT_DATE_LAYOUT
}

// pad right-justifies s to the descriptor size with the format pad character.
// Zero padding keeps a leading minus sign in front of the zeros.
func pad(d domain.PropertyDescriptor, s string) (string, error) {
	if len(s) > d.Size {
		return "", fmt.Errorf("%w: %s: %q does not fit %d characters", domain.ErrEncodingLimitsExceeded, d.Name, s, d.Size)
	}
	if d.Format.Pad == 0 || len(s) == d.Size {
		return s, nil
	}
	fill := strings.Repeat(string(d.Format.Pad), d.Size-len(s))
	if d.Format.Pad == '0' && strings.HasPrefix(s, "-") {
		return "-" + fill + s[1:], nil
	}
	return fill + s, nil
}

func unpad(d domain.PropertyDescriptor, s string) (string, error) {
	switch {
	case s == "":
		return "", decodingError(d, s, "empty value")
	case len(s) > d.Size:
		return "", decodingError(d, s, fmt.Sprintf("longer than %d characters", d.Size))
	case d.Format.Pad != 0 && len(s) != d.Size:
		return "", decodingError(d, s, fmt.Sprintf("expected %d characters", d.Size))
	case d.Format.Pad == ' ':
		return strings.TrimLeft(s, " "), nil
	}
	return s, nil
}

func isInteger(s string) bool {
	if s != "" && (s[0] == '-' || s[0] == '+') {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isFixedPoint(s string, precision int) bool {
	intPart, frac, hasDot := strings.Cut(s, ".")
	if !isInteger(intPart) {
		return false
	}
	if !hasDot {
		return true
	}
	if frac == "" || len(frac) > precision {
		return false
	}
	return isInteger(frac) && frac[0] != '-' && frac[0] != '+'
}

func printable(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

func mismatch(d domain.PropertyDescriptor, value any) error {
	return fmt.Errorf("%w: %s expects %s, got %T", domain.ErrTypeMismatch, d.Name, d.Type, value)
}

func decodingError(d domain.PropertyDescriptor, ascii string, reason string) error {
	return fmt.Errorf("%w: %s: %q: %s", domain.ErrDecoding, d.Name, ascii, reason)
}
