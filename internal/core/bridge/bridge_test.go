package bridge

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/berfenger/kwlsim/internal/core/catalog"
	"github.com/berfenger/kwlsim/internal/core/codec"
	. "github.com/berfenger/kwlsim/internal/core/domain"
	"github.com/berfenger/kwlsim/internal/core/store"
	"github.com/berfenger/kwlsim/pkg/easycontrols"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type registerWrite struct {
	addr   uint16
	values []uint16
}

type recordingWriter struct {
	mu     sync.Mutex
	writes []registerWrite
	err    error
	// when set, writes are queued and replayed into the bridge by send, like a
	// register bank does
	loop    *RegisterBridge
	pending []registerWrite
}

func (w *recordingWriter) WriteHoldingRegisters(addr uint16, values []uint16) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.writes = append(w.writes, registerWrite{addr: addr, values: values})
	if w.loop != nil {
		w.pending = append(w.pending, registerWrite{addr: addr, values: values})
	}
	return nil
}

// send delivers a client write and then the echoes of the bridge's own writes.
func (w *recordingWriter) send(addr uint16, values []uint16) {
	w.loop.OnRegistersWritten(addr, values)
	w.flush()
}

func (w *recordingWriter) flush() {
	for {
		w.mu.Lock()
		if len(w.pending) == 0 {
			w.mu.Unlock()
			return
		}
		next := w.pending[0]
		w.pending = w.pending[1:]
		w.mu.Unlock()
		w.loop.OnRegistersWritten(next.addr, next.values)
	}
}

func (w *recordingWriter) last() (registerWrite, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.writes) == 0 {
		return registerWrite{}, false
	}
	return w.writes[len(w.writes)-1], true
}

type mapStore map[string]any

func (s mapStore) Get(name string) (any, error) {
	v, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProperty, name)
	}
	return v, nil
}

func (s mapStore) Set(name string, value any) error {
	if _, ok := s[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProperty, name)
	}
	s[name] = value
	return nil
}

var scenarioTable = []PropertyDescriptor{
	{VariableID: "00101", Name: "OperationMode", Type: TypeInteger, Size: 1, Count: 1, Access: ReadWrite},
	{VariableID: "00103", Name: "FanStagePercent", Type: TypeInteger, Size: 3, Count: 2, Access: ReadOnly},
	{VariableID: "00222", Name: "FilterReset", Type: TypeBool, Size: 1, Count: 1, Access: WriteOnly},
	{VariableID: "00000", Name: "Description", Type: TypeString, Size: 2, Count: 10, Access: ReadWrite},
}

func newScenarioBridge(t *testing.T, opts Options) (*RegisterBridge, mapStore, *recordingWriter) {
	c, err := catalog.New(scenarioTable)
	require.NoError(t, err)
	s := mapStore{"OperationMode": int64(2), "FanStagePercent": int64(50), "FilterReset": false, "Description": "KWL"}
	w := &recordingWriter{}
	b := New(c, s, codec.Codec{}, w, opts, zap.Must(zap.NewDevelopment()))
	return b, s, w
}

func command(frame string) []uint16 {
	return easycontrols.ASCIIToRegisters(frame, 0)
}

func TestReadScenario(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	b, s, w := newScenarioBridge(t, DefaultOptions())
	assert.Equal(Idle, b.State())

	b.OnRegistersWritten(1, command("v00101"))

	write, ok := w.last()
	require.True(ok, "read must write a response")
	assert.Equal(uint16(1), write.addr)
	assert.Equal([]uint16{0x3200}, write.values)
	assert.Equal("2", easycontrols.RegistersToASCII(write.values))
	assert.Equal(ResponsePending, b.State())

	// the echo of the response returns the bridge to idle without touching the store
	b.OnRegistersWritten(write.addr, write.values)
	assert.Equal(Idle, b.State())
	assert.Equal(int64(2), s["OperationMode"])

	b.OnRegistersWritten(1, command("v00101=3"))
	assert.Equal(Idle, b.State())
	v, err := s.Get("OperationMode")
	require.NoError(err)
	assert.Equal(int64(3), v)
	assert.Len(w.writes, 1, "writes produce no response")

	stats := b.Stats()
	assert.Equal(uint64(1), stats.Reads)
	assert.Equal(uint64(1), stats.Writes)
	assert.Equal(uint64(1), stats.Echoes)
}

func TestEchoDiscardsAnyFrame(t *testing.T) {

	assert := assert.New(t)

	b, s, _ := newScenarioBridge(t, DefaultOptions())
	b.OnRegistersWritten(1, command("v00101"))
	assert.Equal(ResponsePending, b.State())

	// even a valid write command is swallowed while a response is pending
	b.OnRegistersWritten(1, command("v00101=1"))
	assert.Equal(Idle, b.State())
	assert.Equal(int64(2), s["OperationMode"])
}

func TestLoopbackWriterConsumesEcho(t *testing.T) {

	assert := assert.New(t)

	b, s, w := newScenarioBridge(t, DefaultOptions())
	w.loop = b

	w.send(1, command("v00103"))
	assert.Equal(Idle, b.State())
	assert.Len(w.writes, 1)
	assert.Equal("50", easycontrols.RegistersToASCII(w.writes[0].values))
	assert.Equal(int64(50), s["FanStagePercent"])
	assert.Equal(uint64(1), b.Stats().Echoes)
}

func TestUnknownVariableProducesNoWrite(t *testing.T) {

	assert := assert.New(t)

	b, _, w := newScenarioBridge(t, DefaultOptions())
	b.OnRegistersWritten(1, command("v09999"))
	assert.Empty(w.writes)
	assert.Equal(Idle, b.State())

	b.OnRegistersWritten(1, command("v09999=1"))
	assert.Empty(w.writes)
	assert.Equal(Idle, b.State())
	assert.Equal(uint64(2), b.Stats().Rejected)
}

func TestAccessModes(t *testing.T) {

	assert := assert.New(t)

	b, s, w := newScenarioBridge(t, DefaultOptions())

	// read only property cannot be written
	b.OnRegistersWritten(1, command("v00103=99"))
	assert.Equal(int64(50), s["FanStagePercent"])
	assert.Equal(Idle, b.State())

	// write only property cannot be read
	b.OnRegistersWritten(1, command("v00222"))
	assert.Empty(w.writes)
	assert.Equal(Idle, b.State())

	b.OnRegistersWritten(1, command("v00222=1"))
	assert.Equal(true, s["FilterReset"])
	assert.Equal(Idle, b.State())
}

func TestMalformedFrames(t *testing.T) {

	assert := assert.New(t)

	b, s, w := newScenarioBridge(t, DefaultOptions())
	for _, frame := range []string{"x123", "v001", "", "v0010a", "v00101x", "V00101"} {
		assert.NotPanics(func() { b.OnRegistersWritten(1, command(frame)) }, frame)
		assert.Equal(Idle, b.State(), frame)
	}
	// non printable content
	b.OnRegistersWritten(1, []uint16{0x7630, 0x3031, 0x3031, 0x0100})
	assert.Equal(Idle, b.State())

	// writes outside the command window
	b.OnRegistersWritten(7, command("v00101=1"))
	assert.Equal(int64(2), s["OperationMode"])

	// frames larger than the window
	b.OnRegistersWritten(1, make([]uint16, DefaultOptions().WindowRegisters+1))

	assert.Empty(w.writes)
	assert.Equal(uint64(9), b.Stats().Malformed)
}

func TestDecodingErrorLeavesStoreUntouched(t *testing.T) {

	assert := assert.New(t)

	b, s, _ := newScenarioBridge(t, DefaultOptions())
	b.OnRegistersWritten(1, command("v00101=12"))
	b.OnRegistersWritten(1, command("v00101=a"))
	b.OnRegistersWritten(1, command("v00101="))
	assert.Equal(int64(2), s["OperationMode"])
	assert.Equal(Idle, b.State())
	assert.Equal(uint64(3), b.Stats().Rejected)
}

func TestEncodingLimitsExceeded(t *testing.T) {

	assert := assert.New(t)

	b, s, w := newScenarioBridge(t, DefaultOptions())
	s["OperationMode"] = int64(42)
	b.OnRegistersWritten(1, command("v00101"))
	assert.Empty(w.writes)
	assert.Equal(Idle, b.State())

	// a response larger than the window is rejected
	opts := DefaultOptions()
	opts.WindowRegisters = 4
	b, _, w = newScenarioBridge(t, opts)
	b.OnRegistersWritten(1, command("v00000"))
	assert.Empty(w.writes)
	assert.Equal(Idle, b.State())
}

func TestFailedResponseWriteRevertsToIdle(t *testing.T) {

	assert := assert.New(t)

	b, _, w := newScenarioBridge(t, DefaultOptions())
	w.err = errors.New("bank closed")
	b.OnRegistersWritten(1, command("v00101"))
	assert.Equal(Idle, b.State())
}

func TestFrameResponseMode(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	opts := DefaultOptions()
	opts.ResponseMode = RESPONSE_FRAME
	opts.ResponseOffset = 40
	b, _, w := newScenarioBridge(t, opts)

	b.OnRegistersWritten(1, command("v00000"))
	write, ok := w.last()
	require.True(ok)
	assert.Equal(uint16(40), write.addr)
	response := easycontrols.RegistersToASCII(write.values)
	assert.Equal("v00000=KWL"+strings.Repeat(" ", 17), response)
	assert.Equal("KWL"+strings.Repeat(" ", 17), easycontrols.StripEcho("00000", response))
}

func TestParseResponseMode(t *testing.T) {

	assert := assert.New(t)

	m, ok := ParseResponseMode("frame")
	assert.True(ok)
	assert.Equal(RESPONSE_FRAME, m)
	m, ok = ParseResponseMode("")
	assert.True(ok)
	assert.Equal(RESPONSE_VALUE, m)
	_, ok = ParseResponseMode("echo")
	assert.False(ok)
	assert.Equal("frame", RESPONSE_FRAME.String())
	assert.Equal("response_pending", ResponsePending.String())
}

func TestVendorTableEndToEnd(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	s := store.New(store.DefaultUnit(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)))
	w := &recordingWriter{}
	b := New(catalog.Default(), s, codec.Codec{}, w, DefaultOptions(), zap.Must(zap.NewDevelopment()))
	w.loop = b

	w.send(1, command("v00102=4"))
	v, err := s.Get("FanStage")
	require.NoError(err)
	assert.Equal(int64(4), v)

	w.send(1, command("v00102"))
	write, ok := w.last()
	require.True(ok)
	assert.Equal("4", easycontrols.RegistersToASCII(write.values))

	w.send(1, command("v00105"))
	write, _ = w.last()
	assert.Equal("18.9", easycontrols.RegistersToASCII(write.values))

	w.send(1, command("v00004=24.12.2025"))
	w.send(1, command("v00004"))
	write, _ = w.last()
	assert.Equal("24.12.2025", easycontrols.RegistersToASCII(write.values))

	// enum outside the member list
	w.send(1, command("v00102=7"))
	v, _ = s.Get("FanStage")
	assert.Equal(int64(4), v)
	assert.Equal(Idle, b.State())
}

func TestResponseWriteHoldsTheBridge(t *testing.T) {

	assert := assert.New(t)

	b, _, w := newScenarioBridge(t, DefaultOptions())
	w.loop = b

	// state is only observable once the response write has returned
	observed := make(chan State, 1)
	blocking := &blockingWriter{next: w, during: func() {
		go func() { observed <- b.State() }()
		select {
		case st := <-observed:
			t.Errorf("state %s read while the response was being written", st)
		case <-time.After(50 * time.Millisecond):
		}
	}}
	b.writer = blocking

	b.OnRegistersWritten(1, command("v00101"))
	assert.Equal(ResponsePending, <-observed)
	w.flush()
	assert.Equal(Idle, b.State())
	assert.Equal(uint64(1), b.Stats().Echoes)

	w.send(1, command("v00101=3"))
	assert.Equal(uint64(1), b.Stats().Writes)
}

type blockingWriter struct {
	next   *recordingWriter
	during func()
}

func (w *blockingWriter) WriteHoldingRegisters(addr uint16, values []uint16) error {
	w.during()
	return w.next.WriteHoldingRegisters(addr, values)
}
