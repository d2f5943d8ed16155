package components

import (
	"ble-linepos/internal/config/shared"
	"ble-linepos/internal/interfaces"
	"fmt"
	"time"
)

type ServiceConfig interface {
	interfaces.Config
}

type ServiceConfigImpl struct {
	Name                string        `json:"name"`
	Version             string        `json:"version"`
	DiagnosticsInterval time.Duration `json:"diagnostics_interval"`
	ShutdownTimeout     time.Duration `json:"shutdown_timeout"`
}

func NewServiceConfig() ServiceConfigImpl {
	config := ServiceConfigImpl{}
	config.Load()
	config.SetDefaults()
	return config
}

func (S *ServiceConfigImpl) Load() {
	S.Name = shared.GetEnv("SERVICE_NAME")
	S.Version = shared.GetEnv("SERVICE_VERSION")
	S.DiagnosticsInterval = shared.GetEnvAsDuration("SERVICE_DIAGNOSTICS_INTERVAL")
	S.ShutdownTimeout = shared.GetEnvAsDuration("SERVICE_SHUTDOWN_TIMEOUT")
}

func (S *ServiceConfigImpl) SetDefaults() {
	if S.Name == "" {
		S.Name = "ble-linepos"
	}
	if S.Version == "" {
		S.Version = "1.0.0"
	}
	if S.DiagnosticsInterval <= 0 {
		S.DiagnosticsInterval = 10 * time.Second
	}
	if S.ShutdownTimeout <= 0 {
		S.ShutdownTimeout = 5 * time.Second
	}
}

func (S *ServiceConfigImpl) Validate() error {
	if S.Name == "" {
		return fmt.Errorf("Service name is required")
	}

	if S.Version == "" {
		return fmt.Errorf("Service version is required")
	}

	if S.DiagnosticsInterval <= 0 {
		return fmt.Errorf("SERVICE_DIAGNOSTICS_INTERVAL must be greater than 0")
	}

	if S.ShutdownTimeout <= 0 {
		return fmt.Errorf("SERVICE_SHUTDOWN_TIMEOUT must be greater than 0")
	}

	return nil
}

var _ ServiceConfig = (*ServiceConfigImpl)(nil)
