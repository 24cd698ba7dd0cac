package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/berfenger/kwlsim/internal/core/bridge"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	ENV_PREFIX = "kwlsim"
	// a single Modbus write carries at most 123 registers
	MAX_WINDOW_REGISTERS = 123
	MAX_UNIT_ID          = 247
)

type Config struct {
	LogLevel   zapcore.Level
	Modbus     ModbusConfig      `mapstructure:"modbus"`
	Bridge     BridgeConfig      `mapstructure:"bridge"`
	MQTT       MQTTConfig        `mapstructure:"mqtt"`
	Simulation SimulationConfig  `mapstructure:"simulation"`
	Device     DeviceConfig      `mapstructure:"device"`
	Defaults   map[string]string `mapstructure:"defaults"`
	Port       uint              `mapstructure:"port"`
	HttpLog    bool              `mapstructure:"http_log"`
}

type ModbusConfig struct {
	Host          string
	Port          uint
	UnitId        uint   `mapstructure:"unit_id"`
	MaxClients    uint   `mapstructure:"max_clients"`
	TimeoutMillis uint32 `mapstructure:"timeout_millis"`
	HealthProbe   bool   `mapstructure:"health_probe"`
}

type BridgeConfig struct {
	CommandOffset   uint16 `mapstructure:"command_offset"`
	ResponseOffset  uint16 `mapstructure:"response_offset"`
	WindowRegisters uint16 `mapstructure:"window_registers"`
	ResponseMode    string `mapstructure:"response_mode"`
}

type SimulationConfig struct {
	Enable         bool
	IntervalMillis uint32 `mapstructure:"interval_millis"`
}

type DeviceConfig struct {
	Id           string
	Name         string
	Model        string
	Manufacturer string
}

type MQTTConfig struct {
	Enable            bool
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

func (c BridgeConfig) Options() bridge.Options {
	mode, _ := bridge.ParseResponseMode(c.ResponseMode)
	return bridge.Options{
		CommandOffset:   c.CommandOffset,
		ResponseOffset:  c.ResponseOffset,
		WindowRegisters: c.WindowRegisters,
		ResponseMode:    mode,
	}
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "warn")
	v.SetDefault("modbus.host", "0.0.0.0")
	v.SetDefault("modbus.port", 502)
	v.SetDefault("modbus.unit_id", 180)
	v.SetDefault("modbus.max_clients", 4)
	v.SetDefault("modbus.timeout_millis", 30000)
	v.SetDefault("modbus.health_probe", false)
	v.SetDefault("bridge.command_offset", 1)
	v.SetDefault("bridge.response_offset", 1)
	v.SetDefault("bridge.window_registers", 32)
	v.SetDefault("bridge.response_mode", "value")
	v.SetDefault("simulation.enable", true)
	v.SetDefault("simulation.interval_millis", 10000)
	v.SetDefault("device.id", "kwlsim")
	v.SetDefault("device.name", "KWL simulator")
	v.SetDefault("device.model", "KWL EC 300 W")
	v.SetDefault("device.manufacturer", "kwlsim")
	v.SetDefault("mqtt.enable", false)
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.ha_discovery_enable", false)
	v.SetDefault("mqtt.base_topic", "kwlsim")
	v.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	v.SetDefault("port", 8080)
}

// Load reads defaults, KWLSIM_* environment variables and the optional yaml
// file named by CONFIG_FILE, then validates the result.
func Load(v *viper.Viper) (*Config, error) {

	// alias PORT => KWLSIM_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("KWLSIM_PORT", port)
	}

	SetDefaults(v)

	v.SetEnvPrefix(ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			v.SetConfigFile(cfgFile)

			err = v.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg Config

	err := v.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = ParseLogLevel(v.GetString("log_level"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks bounds and normalizes topics.
func (cfg *Config) Validate() error {
	if cfg.MQTT.Enable {
		// check and fix base topic
		baseTopic, err := CheckMQTTTopic(cfg.MQTT.BaseTopic)
		if err != nil {
			return errors.New("invalid base topic. can only contain letters, numbers and underscores")
		}
		cfg.MQTT.BaseTopic = baseTopic

		// check and fix homeassistant discovery topic
		hadBaseTopic, err := CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
		if err != nil {
			return errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
		}
		cfg.MQTT.HADiscoveryTopic = hadBaseTopic
	}

	// check bounds
	if cfg.Modbus.UnitId > MAX_UNIT_ID {
		return fmt.Errorf("config param modbus.unit_id should be <= %d", MAX_UNIT_ID)
	}
	if cfg.Modbus.MaxClients == 0 {
		return errors.New("config param modbus.max_clients should be > 0")
	}
	if cfg.Bridge.WindowRegisters == 0 || cfg.Bridge.WindowRegisters > MAX_WINDOW_REGISTERS {
		return fmt.Errorf("config param bridge.window_registers should be between 1 and %d", MAX_WINDOW_REGISTERS)
	}
	if int(cfg.Bridge.CommandOffset)+int(cfg.Bridge.WindowRegisters) > 1<<16 ||
		int(cfg.Bridge.ResponseOffset)+int(cfg.Bridge.WindowRegisters) > 1<<16 {
		return errors.New("config param bridge.window_registers overflows the register address space")
	}
	if _, ok := bridge.ParseResponseMode(cfg.Bridge.ResponseMode); !ok {
		return errors.New("config param bridge.response_mode should be one of: value, frame")
	}
	if cfg.Simulation.IntervalMillis < 1000 {
		return errors.New("config param simulation.interval_millis should be >= 1000")
	}
	return nil
}

func ParseLogLevel(level string) zapcore.Level {
	switch level {
	case "trace":
		return zap.DebugLevel
	case "debug":
		return zap.DebugLevel
	case "info":
		return zap.InfoLevel
	case "error":
		return zap.ErrorLevel
	case "warn":
		return zap.WarnLevel
	case "fatal":
		return zap.FatalLevel
	default:
		return zap.InfoLevel
	}
}

func SafePrintConfig(cfg Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
