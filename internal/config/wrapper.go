package config

import (
	"ble-linepos/internal/config/components"
	"ble-linepos/internal/config/shared"
	"ble-linepos/internal/interfaces"
	"errors"
	"fmt"
	"github.com/joho/godotenv"
)

type Wrapper interface {
	GetAnchorsConfig() components.AnchorsConfigImpl
	GetCalibrationConfig() components.CalibrationConfigImpl
	GetFeedConfig() components.FeedConfigImpl
	GetMQTTConfig() components.MQTTConfigImpl
	GetPostgresConfig() components.PostgresConfigImpl
	GetInfluxConfig() components.InfluxConfigImpl
	GetLoggerConfig() components.LoggerConfigImpl
	GetServiceConfig() components.ServiceConfigImpl
	GetWebConfig() components.WebConfigImpl
}

type WrapperImpl struct {
	AnchorsConfig     components.AnchorsConfigImpl     `json:"anchors"`
	CalibrationConfig components.CalibrationConfigImpl `json:"calibration"`
	FeedConfig        components.FeedConfigImpl        `json:"feed"`
	MQTTConfig        components.MQTTConfigImpl        `json:"mqtt"`
	PostgresConfig    components.PostgresConfigImpl    `json:"postgres"`
	InfluxConfig      components.InfluxConfigImpl      `json:"influx"`
	LoggerConfig      components.LoggerConfigImpl      `json:"logger"`
	ServiceConfig     components.ServiceConfigImpl     `json:"service"`
	WebConfig         components.WebConfigImpl         `json:"web"`
}

// Load reads an optional .env file, then every component from the
// environment, and validates the result.
func Load() (*WrapperImpl, error) {
	_ = godotenv.Load()

	wrapper := NewWrapper()
	if err := wrapper.Validate(); err != nil {
		return nil, err
	}
	return &wrapper, nil
}

func NewWrapper() WrapperImpl {
	return WrapperImpl{
		AnchorsConfig:     components.NewAnchorsConfig(),
		CalibrationConfig: components.NewCalibrationConfig(),
		FeedConfig:        components.NewFeedConfig(),
		MQTTConfig:        components.NewMQTTConfig(),
		PostgresConfig:    components.NewPostgresConfig(),
		InfluxConfig:      components.NewInfluxConfig(),
		LoggerConfig:      components.NewLoggerConfig(),
		ServiceConfig:     components.NewServiceConfig(),
		WebConfig:         components.NewWebConfig(),
	}
}

// Validate collects the errors of every component instead of stopping at
// the first one.
func (C *WrapperImpl) Validate() error {
	named := []struct {
		name   string
		config interfaces.Config
	}{
		{"anchors", &C.AnchorsConfig},
		{"calibration", &C.CalibrationConfig},
		{"feed", &C.FeedConfig},
		{"mqtt", &C.MQTTConfig},
		{"influx", &C.InfluxConfig},
		{"logger", &C.LoggerConfig},
		{"service", &C.ServiceConfig},
		{"web", &C.WebConfig},
	}

	var errs []error
	for _, n := range named {
		if err := n.config.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s config: %w", n.name, err))
		}
	}

	if C.AnchorsConfig.Source == components.AnchorSourcePostgres {
		if err := C.PostgresConfig.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("postgres config: %w", err))
		}
	}

	if C.FeedConfig.Type == components.FeedTypeMQTT && !C.MQTTConfig.Enabled {
		errs = append(errs, shared.NewConfigError("feed", "type", C.FeedConfig.Type, "the mqtt feed requires MQTT_ENABLED=true"))
	}

	return errors.Join(errs...)
}

func (C *WrapperImpl) GetAnchorsConfig() components.AnchorsConfigImpl         { return C.AnchorsConfig }
func (C *WrapperImpl) GetCalibrationConfig() components.CalibrationConfigImpl { return C.CalibrationConfig }
func (C *WrapperImpl) GetFeedConfig() components.FeedConfigImpl               { return C.FeedConfig }
func (C *WrapperImpl) GetMQTTConfig() components.MQTTConfigImpl               { return C.MQTTConfig }
func (C *WrapperImpl) GetPostgresConfig() components.PostgresConfigImpl       { return C.PostgresConfig }
func (C *WrapperImpl) GetInfluxConfig() components.InfluxConfigImpl           { return C.InfluxConfig }
func (C *WrapperImpl) GetLoggerConfig() components.LoggerConfigImpl           { return C.LoggerConfig }
func (C *WrapperImpl) GetServiceConfig() components.ServiceConfigImpl         { return C.ServiceConfig }
func (C *WrapperImpl) GetWebConfig() components.WebConfigImpl                 { return C.WebConfig }

var _ Wrapper = (*WrapperImpl)(nil)
