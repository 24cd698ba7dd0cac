package modbus

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/berfenger/kwlsim/internal/config"
	"github.com/berfenger/kwlsim/internal/core/bridge"
	"github.com/berfenger/kwlsim/internal/core/catalog"
	"github.com/berfenger/kwlsim/internal/core/codec"
	"github.com/berfenger/kwlsim/internal/core/store"
	"github.com/berfenger/kwlsim/pkg/easycontrols"

	"github.com/simonvetter/modbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegisterBank(t *testing.T) {

	assert := assert.New(t)

	bank := NewRegisterBank()

	var notified [][]uint16
	bank.OnWrite(func(addr uint16, values []uint16) {
		assert.Equal(uint16(10), addr)
		notified = append(notified, values)
	})

	assert.NoError(bank.Write(10, []uint16{1, 2, 3}))
	regs, err := bank.Read(9, 5)
	assert.NoError(err)
	assert.Equal([]uint16{0, 1, 2, 3, 0}, regs)
	assert.Equal([][]uint16{{1, 2, 3}}, notified)

	_, err = bank.Read(65535, 2)
	assert.Error(err)
	assert.Error(bank.Write(65535, []uint16{1, 2}))
	assert.Error(bank.WriteHoldingRegisters(65535, []uint16{1, 2}))
	assert.Len(notified, 1)

	regs, err = bank.Read(65535, 1)
	assert.NoError(err)
	assert.Equal([]uint16{0}, regs)
}

func TestRegisterBankHookMayWrite(t *testing.T) {

	assert := assert.New(t)

	bank := NewRegisterBank()
	var seen []uint16
	bank.OnWrite(func(addr uint16, values []uint16) {
		seen = append(seen, addr)
		if addr == 1 {
			assert.NoError(bank.WriteHoldingRegisters(40, values))
			// stored at once, delivered after this hook returns
			regs, _ := bank.Read(40, 1)
			assert.Equal([]uint16{7}, regs)
			assert.Equal([]uint16{1}, seen)
		}
	})

	assert.NoError(bank.Write(1, []uint16{7}))
	assert.Equal([]uint16{1, 40}, seen)

	// outside a dispatch a hook-path write is delivered like a client write
	assert.NoError(bank.WriteHoldingRegisters(50, []uint16{8}))
	assert.Equal([]uint16{1, 40, 50}, seen)
}

func frameRegisters(f easycontrols.Frame) []uint16 {
	return easycontrols.ASCIIToRegisters(f.String(), 0)
}

// interleavingWriter lets another client write arrive while the bridge is
// writing its response.
type interleavingWriter struct {
	bank  *RegisterBank
	other func()
	once  sync.Once
}

func (w *interleavingWriter) WriteHoldingRegisters(addr uint16, values []uint16) error {
	w.once.Do(func() {
		go w.other()
		time.Sleep(50 * time.Millisecond)
	})
	return w.bank.WriteHoldingRegisters(addr, values)
}

func TestEchoIsDeliveredBeforeTheNextClientWrite(t *testing.T) {

	assert := assert.New(t)

	s := store.New(store.DefaultUnit(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))
	bank := NewRegisterBank()
	opts := bridge.DefaultOptions()
	opts.ResponseMode = bridge.RESPONSE_FRAME

	done := make(chan struct{})
	w := &interleavingWriter{bank: bank, other: func() {
		defer close(done)
		assert.NoError(bank.Write(1, frameRegisters(easycontrols.WriteFrame("00102", "1"))))
	}}
	b := bridge.New(catalog.Default(), s, codec.Codec{}, w, opts, zap.Must(zap.NewDevelopment()))
	bank.OnWrite(b.OnRegistersWritten)

	assert.Equal(int64(2), s.Snapshot().FanStage)
	assert.NoError(bank.Write(1, frameRegisters(easycontrols.ReadFrame("00102"))))

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("second client write never completed")
	}

	// the other client's write is applied, the frame echo "v00102=2" is not
	assert.Equal(int64(1), s.Snapshot().FanStage)
	assert.Equal(bridge.Idle, b.State())
	stats := b.Stats()
	assert.Equal(uint64(1), stats.Reads)
	assert.Equal(uint64(1), stats.Writes)
	assert.Equal(uint64(1), stats.Echoes)
	assert.Equal(uint64(0), stats.Rejected)
}

func TestConcurrentClients(t *testing.T) {

	assert := assert.New(t)

	s := store.New(store.DefaultUnit(time.Now()))
	bank := NewRegisterBank()
	opts := bridge.DefaultOptions()
	opts.ResponseMode = bridge.RESPONSE_FRAME
	b := bridge.New(catalog.Default(), s, codec.Codec{}, bank, opts, zap.NewNop())
	bank.OnWrite(b.OnRegistersWritten)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.NoError(bank.Write(1, frameRegisters(easycontrols.WriteFrame("00102", fmt.Sprintf("%d", (i+j)%5)))))
				assert.NoError(bank.Write(1, frameRegisters(easycontrols.ReadFrame("00102"))))
			}
		}(i)
	}
	wg.Wait()

	// every command is served and every echo is discarded
	stats := b.Stats()
	assert.Equal(bridge.Idle, b.State())
	assert.Equal(uint64(400), stats.Writes)
	assert.Equal(uint64(400), stats.Reads)
	assert.Equal(uint64(400), stats.Echoes)
	assert.Equal(uint64(0), stats.Rejected+stats.Malformed)
}

func TestHandler(t *testing.T) {

	assert := assert.New(t)

	logger := zap.Must(zap.NewDevelopment())
	bank := NewRegisterBank()
	h := NewHandler(bank, 180, logger)

	_, err := h.HandleCoils(&modbus.CoilsRequest{UnitId: 180})
	assert.ErrorIs(err, modbus.ErrIllegalFunction)
	_, err = h.HandleDiscreteInputs(&modbus.DiscreteInputsRequest{UnitId: 180})
	assert.ErrorIs(err, modbus.ErrIllegalFunction)
	_, err = h.HandleInputRegisters(&modbus.InputRegistersRequest{UnitId: 180})
	assert.ErrorIs(err, modbus.ErrIllegalFunction)

	_, err = h.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{UnitId: 180, Addr: 1, IsWrite: true, Args: []uint16{0x7630}})
	assert.NoError(err)
	regs, err := h.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{UnitId: 180, Addr: 1, Quantity: 2})
	assert.NoError(err)
	assert.Equal([]uint16{0x7630, 0}, regs)

	_, err = h.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{UnitId: 1, Addr: 1, Quantity: 2})
	assert.ErrorIs(err, modbus.ErrGWTargetFailedToRespond)

	_, err = h.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{UnitId: 180, Addr: 65535, Quantity: 2})
	assert.ErrorIs(err, modbus.ErrIllegalDataAddress)

	anyUnit := NewHandler(bank, 0, logger)
	_, err = anyUnit.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{UnitId: 7, Addr: 1, Quantity: 1})
	assert.NoError(err)
}

func TestServerRoundTrip(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	logger := zap.Must(zap.NewDevelopment())

	cfg := config.ModbusConfig{
		Host:          "127.0.0.1",
		Port:          15502,
		UnitId:        180,
		MaxClients:    2,
		TimeoutMillis: 2000,
	}

	s := store.New(store.DefaultUnit(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))
	bank := NewRegisterBank()
	b := bridge.New(catalog.Default(), s, codec.Codec{}, bank, bridge.DefaultOptions(), logger)
	bank.OnWrite(b.OnRegistersWritten)

	server, err := NewServer(cfg, bank, logger)
	require.NoError(err)
	require.NoError(server.Start())
	defer server.Stop()

	client, err := easycontrols.CreateModbusVariableClient(easycontrols.VariableClientConfig{
		Host:            cfg.Host,
		Port:            cfg.Port,
		UnitId:          180,
		Timeout:         2 * time.Second,
		CommandOffset:   easycontrols.DEFAULT_COMMAND_OFFSET,
		ResponseOffset:  easycontrols.DEFAULT_RESPONSE_OFFSET,
		WindowRegisters: easycontrols.DEFAULT_WINDOW_REGISTERS,
	}, logger, nil)
	require.NoError(err)
	require.NoError(client.Open())
	defer client.Close()

	value, err := client.ReadVariable("00102")
	require.NoError(err)
	assert.Equal("2", value)
	assert.Equal(bridge.Idle, b.State())

	require.NoError(client.WriteVariable("00102", "3"))
	assert.Equal(int64(3), s.Snapshot().FanStage)

	value, err = client.ReadVariable("00102")
	require.NoError(err)
	assert.Equal("3", value)

	value, err = client.ReadVariable("00104")
	require.NoError(err)
	assert.Equal("8.5", value)

	// unknown variables are not answered
	_, err = client.ReadVariable("99999")
	assert.Error(err)

	stats := b.Stats()
	assert.Equal(uint64(3), stats.Reads)
	assert.Equal(uint64(1), stats.Writes)
	assert.Equal(uint64(3), stats.Echoes)
	assert.Equal(uint64(1), stats.Rejected)
}
