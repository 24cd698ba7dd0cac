package port

import "github.com/berfenger/kwlsim/internal/core/domain"

type CommandTable interface {
	Resolve(variableID string) (string, bool)
}

type PropertyRegistry interface {
	IsProperty(name string) bool
	IsReadable(name string) bool
	IsWritable(name string) bool
	Descriptor(name string) (domain.PropertyDescriptor, bool)
}

// PropertyCatalog is the static table seen both as CommandTable and PropertyRegistry.
type PropertyCatalog interface {
	CommandTable
	PropertyRegistry
	CanonicalName(name string) (string, bool)
	IsList(name string) bool
	Descriptors() []domain.PropertyDescriptor
	Lists() []domain.PropertyDescriptor
}

type PropertyStore interface {
	Get(name string) (any, error)
	Set(name string, value any) error
}

type ListStore interface {
	GetIndex(name string, i int) (any, error)
	SetIndex(name string, i int, value any) error
	Len(name string) (int, error)
}

type ChangeListener = func(name string, value any)

// ObservableStore notifies listeners after every successful mutation.
type ObservableStore interface {
	PropertyStore
	ListStore
	OnChange(l ChangeListener)
}

type TypeCodec interface {
	Encode(d domain.PropertyDescriptor, value any) (string, error)
	Decode(d domain.PropertyDescriptor, ascii string) (any, error)
}

// RegisterWriter writes a block of holding registers starting at addr. A
// transport that notifies its own writes delivers them after the call returns.
type RegisterWriter interface {
	WriteHoldingRegisters(addr uint16, values []uint16) error
}
