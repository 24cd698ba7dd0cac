package util

import (
	"github.com/berfenger/kwlsim/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Modbus: config.ModbusConfig{
			Host:          "127.0.0.1",
			Port:          5020,
			UnitId:        180,
			MaxClients:    2,
			TimeoutMillis: 1000,
		},
		Bridge: config.BridgeConfig{
			CommandOffset:   1,
			ResponseOffset:  1,
			WindowRegisters: 32,
			ResponseMode:    "value",
		},
		MQTT: config.MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "kwlsim",
			HADiscoveryTopic: "homeassistant",
		},
		Simulation: config.SimulationConfig{
			Enable:         true,
			IntervalMillis: 1000,
		},
		Device: config.DeviceConfig{
			Id:   "kwlsim_test",
			Name: "KWL test",
		},
		Port: 8080,
	}
}
