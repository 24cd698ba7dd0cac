package domain

import (
	"fmt"
	"strings"
)

type SemanticType int

const (
	TypeBool SemanticType = iota
	TypeInteger
	TypeDouble
	TypeDate
	TypeTime
	TypeString
	TypeEnum
)

func (t SemanticType) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeInteger:
		return "integer"
	case TypeDouble:
		return "double"
	case TypeDate:
		return "date"
	case TypeTime:
		return "time"
	case TypeString:
		return "string"
	case TypeEnum:
		return "enum"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

type AccessMode int

const (
	ReadOnly AccessMode = iota + 1
	WriteOnly
	ReadWrite
)

func (a AccessMode) Readable() bool {
	return a == ReadOnly || a == ReadWrite
}

func (a AccessMode) Writable() bool {
	return a == WriteOnly || a == ReadWrite
}

func (a AccessMode) String() string {
	switch a {
	case ReadOnly:
		return "ro"
	case WriteOnly:
		return "wo"
	case ReadWrite:
		return "rw"
	default:
		return "none"
	}
}

// Range bounds numeric values, inclusive.
type Range struct {
	Min float64
	Max float64
}

func (r *Range) Contains(v float64) bool {
	return r == nil || (v >= r.Min && v <= r.Max)
}

// Format carries the vendor formatting rule of one property. The zero value
// means unpadded, no fractional digits, default layouts, unrestricted values.
type Format struct {
	// Pad is the left padding character for numbers and bools ('0' or ' ').
	// Zero disables padding: values are written with their natural width.
	Pad byte
	// Precision is the number of fractional digits of a double.
	Precision int
	// Layout is the time.Format layout of dates and times.
	Layout string
	// Members restricts the values of an enum.
	Members []int64
	Range   *Range
}

type PropertyDescriptor struct {
	VariableID string
	Name       string
	Type       SemanticType
	// Size is the character width of one encoded unit.
	Size int
	// Count is the number of registers spanned by the encoded value.
	Count  int
	Access AccessMode
	Format Format
	Unit   string
	Label  string
}

func (d PropertyDescriptor) String() string {
	return fmt.Sprintf("v%s %s (%s size=%d count=%d %s)", d.VariableID, d.Name, d.Type, d.Size, d.Count, d.Access)
}

// Width is the maximum number of characters of an encoded value.
func (d PropertyDescriptor) Width() int {
	if d.Type == TypeString {
		return d.Size * d.Count
	}
	return d.Size
}

// TopLevelName returns the first segment of a dotted or indexed property path.
func TopLevelName(path string) string {
	if i := strings.IndexAny(path, ".["); i >= 0 {
		return path[:i]
	}
	return path
}
