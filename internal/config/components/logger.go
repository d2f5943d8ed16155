package components

import (
	"ble-linepos/internal/config/shared"
	"ble-linepos/internal/interfaces"
	"strings"
)

type LoggerConfig interface {
	interfaces.Config
}

type LoggerConfigImpl struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

func NewLoggerConfig() LoggerConfigImpl {
	config := LoggerConfigImpl{}
	config.Load()
	config.SetDefaults()
	return config
}

func (L *LoggerConfigImpl) Load() {
	L.Level = strings.ToLower(shared.GetEnv("LOG_LEVEL"))
	L.Format = strings.ToLower(shared.GetEnv("LOG_FORMAT"))
}

func (L *LoggerConfigImpl) SetDefaults() {
	if L.Level == "" {
		L.Level = "info"
	}
	if L.Format == "" {
		L.Format = "console"
	}
}

func (L *LoggerConfigImpl) Validate() error {
	switch L.Level {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return shared.NewConfigError("logger", "level", L.Level, "unknown log level")
	}

	if L.Format != "console" && L.Format != "json" {
		return shared.NewConfigError("logger", "format", L.Format, "must be console or json")
	}

	return nil
}

var _ LoggerConfig = (*LoggerConfigImpl)(nil)
