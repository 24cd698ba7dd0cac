package easycontrols

import (
	"errors"
	"fmt"
	"time"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

const (
	DEFAULT_COMMAND_OFFSET   uint16 = 1
	DEFAULT_RESPONSE_OFFSET  uint16 = 1
	DEFAULT_WINDOW_REGISTERS uint16 = 32
)

type VariableClientConfig struct {
	Host            string
	Port            uint
	UnitId          uint8
	Timeout         time.Duration
	CommandOffset   uint16
	ResponseOffset  uint16
	WindowRegisters uint16
}

// VariableClient speaks the variable command language of a ventilation unit
// (or of the simulator) over Modbus/TCP holding registers.
type VariableClient interface {
	Open() error
	Close() error
	ReadVariable(variableID string) (string, error)
	WriteVariable(variableID string, value string) error
}

type ModbusVariableClient struct {
	ModbusClient
	cfg VariableClientConfig
}

func traceLoggerInstrumentation(logger *zap.Logger) *ModbusInstrument {
	if !logger.Core().Enabled(zap.DebugLevel) {
		return nil
	}
	return &ModbusInstrument{
		RecordTime: func(fnName string, readTime time.Duration) {
			logger.Debug("modbus call", zap.String("fn", fnName), zap.Int64("millis", readTime.Milliseconds()))
		},
	}
}

func CreateModbusVariableClient(cfg VariableClientConfig, logger *zap.Logger, instrumentation *ModbusInstrument) (VariableClient, error) {
	if cfg.WindowRegisters == 0 {
		cfg.WindowRegisters = DEFAULT_WINDOW_REGISTERS
	}
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port),
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	// instrumentation
	var inst []ModbusInstrument
	logInst := traceLoggerInstrumentation(logger.With(zap.String("target", "kwl")).With(zap.Uint8("unit", cfg.UnitId)))
	if logInst != nil {
		inst = append(inst, *logInst)
	}
	if instrumentation != nil {
		inst = append(inst, *instrumentation)
	}

	err = client.SetUnitId(cfg.UnitId)
	if err != nil {
		return nil, err
	}
	return &ModbusVariableClient{
		ModbusClient: ModbusClient{
			client:     client,
			instrument: inst,
		},
		cfg: cfg,
	}, nil
}

func (c *ModbusVariableClient) Open() error {
	return c.client.Open()
}

func (c *ModbusVariableClient) Close() error {
	return c.client.Close()
}

func (c *ModbusVariableClient) ReadVariable(variableID string) (string, error) {
	if !IsVariableID(variableID) {
		return "", fmt.Errorf("%w: bad variable id %q", ErrMalformedFrame, variableID)
	}
	if err := c.writeString(c.cfg.CommandOffset, ReadFrame(variableID).String()); err != nil {
		return "", err
	}
	response, err := c.readString(c.cfg.ResponseOffset, c.cfg.WindowRegisters)
	if err != nil {
		return "", err
	}
	if response == "" {
		return "", errors.New("empty response window")
	}
	// with overlapping windows an unanswered command stays in place
	if response == ReadFrame(variableID).String() {
		return "", fmt.Errorf("no response for variable v%s", variableID)
	}
	return StripEcho(variableID, response), nil
}

func (c *ModbusVariableClient) WriteVariable(variableID string, value string) error {
	if !IsVariableID(variableID) {
		return fmt.Errorf("%w: bad variable id %q", ErrMalformedFrame, variableID)
	}
	frame := WriteFrame(variableID, value).String()
	if (len(frame)+2)/2 > int(c.cfg.WindowRegisters) {
		return fmt.Errorf("frame of %d chars does not fit %d registers", len(frame), c.cfg.WindowRegisters)
	}
	return c.writeString(c.cfg.CommandOffset, frame)
}
