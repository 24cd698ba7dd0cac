package modbus

import (
	"fmt"
	"time"

	"github.com/berfenger/kwlsim/internal/config"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

// Server exposes a RegisterBank as a Modbus/TCP slave.
type Server struct {
	url    string
	server *modbus.ModbusServer
	logger *zap.Logger
}

func NewServer(cfg config.ModbusConfig, bank *RegisterBank, logger *zap.Logger) (*Server, error) {
	url := fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)
	logger = logger.With(zap.String("component", "modbus"))
	server, err := modbus.NewServer(&modbus.ServerConfiguration{
		URL:        url,
		Timeout:    time.Duration(cfg.TimeoutMillis) * time.Millisecond,
		MaxClients: cfg.MaxClients,
	}, NewHandler(bank, uint8(cfg.UnitId), logger))
	if err != nil {
		return nil, err
	}
	return &Server{
		url:    url,
		server: server,
		logger: logger,
	}, nil
}

func (s *Server) Start() error {
	if err := s.server.Start(); err != nil {
		return err
	}
	s.logger.Info("modbus: listening", zap.String("url", s.url))
	return nil
}

func (s *Server) Stop() error {
	s.logger.Info("modbus: stopping")
	return s.server.Stop()
}
