package bridge

import (
	"errors"
	"fmt"
	"sync"

	"github.com/berfenger/kwlsim/internal/core/domain"
	"github.com/berfenger/kwlsim/internal/core/port"
	"github.com/berfenger/kwlsim/pkg/easycontrols"
	"go.uber.org/zap"
)

type Options struct {
	CommandOffset   uint16
	ResponseOffset  uint16
	WindowRegisters uint16
	ResponseMode    ResponseMode
}

func DefaultOptions() Options {
	return Options{
		CommandOffset:   easycontrols.DEFAULT_COMMAND_OFFSET,
		ResponseOffset:  easycontrols.DEFAULT_RESPONSE_OFFSET,
		WindowRegisters: easycontrols.DEFAULT_WINDOW_REGISTERS,
		ResponseMode:    RESPONSE_VALUE,
	}
}

type Stats struct {
	Reads     uint64
	Writes    uint64
	Echoes    uint64
	Rejected  uint64
	Malformed uint64
}

// RegisterBridge turns holding register writes into variable commands against
// a property store, answering reads through the register writer.
type RegisterBridge struct {
	table    port.CommandTable
	registry port.PropertyRegistry
	store    port.PropertyStore
	codec    port.TypeCodec
	writer   port.RegisterWriter
	opts     Options
	logger   *zap.Logger

	mu    sync.Mutex
	state State
	stats Stats
}

type Catalog interface {
	port.CommandTable
	port.PropertyRegistry
}

func New(catalog Catalog, store port.PropertyStore, codec port.TypeCodec, writer port.RegisterWriter,
	opts Options, logger *zap.Logger) *RegisterBridge {
	if opts.WindowRegisters == 0 {
		opts.WindowRegisters = easycontrols.DEFAULT_WINDOW_REGISTERS
	}
	return &RegisterBridge{
		table:    catalog,
		registry: catalog,
		store:    store,
		codec:    codec,
		writer:   writer,
		opts:     opts,
		logger:   logger,
		state:    Idle,
	}
}

func (b *RegisterBridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *RegisterBridge) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

func (b *RegisterBridge) Options() Options {
	return b.opts
}

// OnRegistersWritten is the register write hook. It never returns an error:
// rejected commands are logged and dropped.
func (b *RegisterBridge) OnRegistersWritten(addr uint16, regs []uint16) {
	b.mu.Lock()

	if b.state == ResponsePending {
		b.state = Idle
		b.stats.Echoes++
		b.mu.Unlock()
		b.logger.Debug("bridge@response_pending: discarding echo of own response",
			zap.Uint16("addr", addr), zap.Int("registers", len(regs)))
		return
	}

	raw, err := b.extract(addr, regs)
	var frame easycontrols.Frame
	if err == nil {
		frame, err = easycontrols.ParseFrame(raw)
	}
	if err != nil {
		b.stats.Malformed++
		b.mu.Unlock()
		b.reject(err, zap.Uint16("addr", addr), zap.String("frame", raw))
		return
	}

	if frame.IsWrite {
		err = b.write(frame)
		b.mu.Unlock()
		if err != nil {
			b.reject(err, zap.String("frame", frame.String()))
		}
		return
	}

	regs, err = b.read(frame)
	if err != nil {
		b.mu.Unlock()
		b.reject(err, zap.String("frame", frame.String()))
		return
	}
	b.state = ResponsePending

	// the echo of this write must not be delivered until the call returns
	if err := b.writer.WriteHoldingRegisters(b.opts.ResponseOffset, regs); err != nil {
		b.state = Idle
		b.mu.Unlock()
		b.logger.Error("bridge@response_pending: failed to write response", zap.String("frame", frame.String()), zap.Error(err))
		return
	}
	b.mu.Unlock()
}

func (b *RegisterBridge) extract(addr uint16, regs []uint16) (string, error) {
	if addr != b.opts.CommandOffset {
		return "", fmt.Errorf("%w: write at register %d outside command window %d", domain.ErrMalformedFrame, addr, b.opts.CommandOffset)
	}
	if len(regs) > int(b.opts.WindowRegisters) {
		return "", fmt.Errorf("%w: %d registers exceed command window of %d", domain.ErrMalformedFrame, len(regs), b.opts.WindowRegisters)
	}
	return easycontrols.RegistersToASCII(regs), nil
}

// read encodes the current value and returns the registers of the response.
// Caller holds the lock.
func (b *RegisterBridge) read(frame easycontrols.Frame) ([]uint16, error) {
	name, ok := b.table.Resolve(frame.VariableID)
	if !ok {
		b.stats.Rejected++
		return nil, fmt.Errorf("%w: v%s", domain.ErrUnknownVariable, frame.VariableID)
	}
	if !b.registry.IsReadable(name) {
		b.stats.Rejected++
		return nil, fmt.Errorf("%w: %s", domain.ErrNotReadable, name)
	}
	d, _ := b.registry.Descriptor(name)
	value, err := b.store.Get(name)
	if err != nil {
		b.stats.Rejected++
		return nil, err
	}
	ascii, err := b.codec.Encode(d, value)
	if err != nil {
		b.stats.Rejected++
		return nil, err
	}
	if b.opts.ResponseMode == RESPONSE_FRAME {
		ascii = easycontrols.WriteFrame(frame.VariableID, ascii).String()
	}
	regs := easycontrols.ASCIIToRegisters(ascii, 0)
	if len(regs) > int(b.opts.WindowRegisters) {
		b.stats.Rejected++
		return nil, fmt.Errorf("%w: response for %s needs %d registers, window has %d",
			domain.ErrEncodingLimitsExceeded, name, len(regs), b.opts.WindowRegisters)
	}
	b.stats.Reads++
	return regs, nil
}

// write decodes and stores the value. Caller holds the lock.
func (b *RegisterBridge) write(frame easycontrols.Frame) error {
	name, ok := b.table.Resolve(frame.VariableID)
	if !ok {
		b.stats.Rejected++
		return fmt.Errorf("%w: v%s", domain.ErrUnknownVariable, frame.VariableID)
	}
	if !b.registry.IsWritable(name) {
		b.stats.Rejected++
		return fmt.Errorf("%w: %s", domain.ErrNotWritable, name)
	}
	d, _ := b.registry.Descriptor(name)
	value, err := b.codec.Decode(d, frame.Value)
	if err != nil {
		b.stats.Rejected++
		return err
	}
	if err := b.store.Set(name, value); err != nil {
		b.stats.Rejected++
		return err
	}
	b.stats.Writes++
	return nil
}

func (b *RegisterBridge) reject(err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	switch {
	case errors.Is(err, domain.ErrMalformedFrame):
		b.logger.Warn("bridge@idle: ignoring malformed frame", fields...)
	case errors.Is(err, domain.ErrUnknownVariable):
		b.logger.Warn("bridge@idle: ignoring unknown variable", fields...)
	case errors.Is(err, domain.ErrNotReadable), errors.Is(err, domain.ErrNotWritable):
		b.logger.Warn("bridge@idle: access denied", fields...)
	case errors.Is(err, domain.ErrDecoding), errors.Is(err, domain.ErrEncodingLimitsExceeded):
		b.logger.Warn("bridge@idle: value rejected by codec", fields...)
	default:
		b.logger.Error("bridge@idle: command failed", fields...)
	}
}
