package modbus

import (
	"fmt"
	"sync"
)

const BANK_REGISTERS = 1 << 16

type WriteHook func(addr uint16, values []uint16)

type registerWrite struct {
	addr   uint16
	values []uint16
}

// RegisterBank is a sparse holding register space. Client writes are
// dispatched one at a time: a write, the hook calls it triggers and the writes
// those hooks make are all delivered before the next client write is stored.
type RegisterBank struct {
	dispatch sync.Mutex

	mu          sync.RWMutex
	regs        map[uint16]uint16
	hooks       []WriteHook
	dispatching bool
	queued      []registerWrite
}

func NewRegisterBank() *RegisterBank {
	return &RegisterBank{
		regs: map[uint16]uint16{},
	}
}

// OnWrite registers a hook. Call before serving requests.
func (b *RegisterBank) OnWrite(hook WriteHook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hooks = append(b.hooks, hook)
}

// Write stores a client write and passes it to the hooks.
func (b *RegisterBank) Write(addr uint16, values []uint16) error {
	if err := checkRange(addr, len(values)); err != nil {
		return err
	}
	b.dispatch.Lock()
	defer b.dispatch.Unlock()

	b.mu.Lock()
	b.store(addr, values)
	b.dispatching = true
	b.mu.Unlock()

	b.deliver(registerWrite{addr: addr, values: clone(values)})
	return nil
}

// WriteHoldingRegisters is the write path of hooks. During a dispatch the
// values are stored at once and reach the hooks after the running hook
// returns. Outside a dispatch it behaves like Write.
func (b *RegisterBank) WriteHoldingRegisters(addr uint16, values []uint16) error {
	if err := checkRange(addr, len(values)); err != nil {
		return err
	}
	b.mu.Lock()
	if b.dispatching {
		b.store(addr, values)
		b.queued = append(b.queued, registerWrite{addr: addr, values: clone(values)})
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()
	return b.Write(addr, values)
}

// Read returns quantity registers from addr. Unwritten registers read as zero.
func (b *RegisterBank) Read(addr uint16, quantity uint16) ([]uint16, error) {
	if err := checkRange(addr, int(quantity)); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]uint16, quantity)
	for i := range out {
		out[i] = b.regs[addr+uint16(i)]
	}
	return out, nil
}

// store writes values. Caller holds mu.
func (b *RegisterBank) store(addr uint16, values []uint16) {
	for i, v := range values {
		b.regs[addr+uint16(i)] = v
	}
}

// deliver runs the hooks for w and then for every write queued by them, in
// order. Caller holds dispatch.
func (b *RegisterBank) deliver(w registerWrite) {
	b.mu.RLock()
	hooks := b.hooks
	b.mu.RUnlock()

	for {
		for _, hook := range hooks {
			hook(w.addr, clone(w.values))
		}
		b.mu.Lock()
		if len(b.queued) == 0 {
			b.dispatching = false
			b.mu.Unlock()
			return
		}
		w = b.queued[0]
		b.queued = b.queued[1:]
		b.mu.Unlock()
	}
}

func clone(values []uint16) []uint16 {
	return append([]uint16(nil), values...)
}

func checkRange(addr uint16, quantity int) error {
	if int(addr)+quantity > BANK_REGISTERS {
		return fmt.Errorf("registers %d..%d out of range", addr, int(addr)+quantity-1)
	}
	return nil
}
