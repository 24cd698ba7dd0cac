package easycontrols

import (
	"time"

	"github.com/simonvetter/modbus"
)

type ModbusClient struct {
	client     *modbus.ModbusClient
	instrument []ModbusInstrument
}

type ModbusInstrument struct {
	RecordTime func(fnName string, readTime time.Duration)
}

func (reader ModbusClient) readString(address uint16, size uint16) (string, error) {
	regs, err := reader.readRegisters(address, size, modbus.HOLDING_REGISTER)
	if err != nil {
		return "", err
	}
	return RegistersToASCII(regs), nil
}

func (reader ModbusClient) writeString(address uint16, value string) error {
	return reader.writeRegisters(address, ASCIIToRegisters(value, 0))
}

func (reader ModbusClient) readRegisters(addr uint16, quantity uint16, regType modbus.RegType) ([]uint16, error) {
	defer RecordTimer("ReadRegisters", reader.instrument)()
	return reader.client.ReadRegisters(addr, quantity, regType)
}

func (reader ModbusClient) writeRegisters(addr uint16, values []uint16) error {
	defer RecordTimer("WriteRegisters", reader.instrument)()
	return reader.client.WriteRegisters(addr, values)
}

func RecordTimer(name string, instrument []ModbusInstrument) func() {
	if instrument == nil {
		return func() {}
	}

	start := time.Now()
	return func() {
		duration := time.Since(start)
		for i := range instrument {
			instrument[i].RecordTime(name, duration)
		}
	}
}
