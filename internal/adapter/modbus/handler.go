package modbus

import (
	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

// Handler serves holding registers from a RegisterBank. The emulated unit has
// no coils, discrete inputs or input registers.
type Handler struct {
	bank   *RegisterBank
	unitId uint8
	logger *zap.Logger
}

// NewHandler answers requests for unitId only, or for any unit when unitId is 0.
func NewHandler(bank *RegisterBank, unitId uint8, logger *zap.Logger) *Handler {
	return &Handler{
		bank:   bank,
		unitId: unitId,
		logger: logger,
	}
}

func (h *Handler) HandleCoils(req *modbus.CoilsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (h *Handler) HandleDiscreteInputs(req *modbus.DiscreteInputsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (h *Handler) HandleInputRegisters(req *modbus.InputRegistersRequest) ([]uint16, error) {
	return nil, modbus.ErrIllegalFunction
}

func (h *Handler) HandleHoldingRegisters(req *modbus.HoldingRegistersRequest) ([]uint16, error) {
	if h.unitId != 0 && req.UnitId != h.unitId {
		h.logger.Debug("modbus: request for foreign unit", zap.Uint8("unit", req.UnitId))
		return nil, modbus.ErrGWTargetFailedToRespond
	}
	if req.IsWrite {
		h.logger.Debug("modbus: write holding registers",
			zap.String("client", req.ClientAddr), zap.Uint16("addr", req.Addr), zap.Int("quantity", len(req.Args)))
		if err := h.bank.Write(req.Addr, req.Args); err != nil {
			return nil, modbus.ErrIllegalDataAddress
		}
		return nil, nil
	}
	h.logger.Debug("modbus: read holding registers",
		zap.String("client", req.ClientAddr), zap.Uint16("addr", req.Addr), zap.Uint16("quantity", req.Quantity))
	regs, err := h.bank.Read(req.Addr, req.Quantity)
	if err != nil {
		return nil, modbus.ErrIllegalDataAddress
	}
	return regs, nil
}
