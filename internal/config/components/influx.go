package components

import (
	"ble-linepos/internal/config/shared"
	"ble-linepos/internal/interfaces"
	"fmt"
	"strings"
)

type InfluxConfig interface {
	interfaces.Config
	GetUrl() string
}

type InfluxConfigImpl struct {
	Enabled       bool   `json:"enabled"`
	URL           string `json:"url"`
	Token         string `json:"token"`
	Organization  string `json:"organization"`
	Bucket        string `json:"bucket"`
	BatchSize     int    `json:"batch_size"`
	FlushInterval int    `json:"flush_interval_seconds"`
}

func NewInfluxConfig() InfluxConfigImpl {
	config := InfluxConfigImpl{}
	config.Load()
	config.SetDefaults()
	return config
}

func (I *InfluxConfigImpl) Load() {
	I.Enabled = shared.GetEnvAsBool("INFLUXDB_ENABLED", false)
	I.URL = shared.GetEnv("INFLUXDB_URL")
	I.Token = shared.GetEnv("INFLUXDB_TOKEN")
	I.Organization = shared.GetEnv("INFLUXDB_ORG")
	I.Bucket = shared.GetEnv("INFLUXDB_BUCKET")
	I.BatchSize = shared.GetEnvAsInt("INFLUXDB_BATCH_SIZE")
	I.FlushInterval = shared.GetEnvAsInt("INFLUXDB_FLUSH_INTERVAL")
}

func (I *InfluxConfigImpl) SetDefaults() {
	if I.URL == "" {
		I.URL = "http://localhost:8086"
	}
	if I.Organization == "" {
		I.Organization = "ble_linepos"
	}
	if I.Bucket == "" {
		I.Bucket = "positions"
	}
	if I.BatchSize <= 0 {
		I.BatchSize = 100
	}
	if I.FlushInterval <= 0 {
		I.FlushInterval = 10
	}
}

func (I *InfluxConfigImpl) Validate() error {
	if !I.Enabled {
		return nil
	}
	if I.URL == "" {
		return fmt.Errorf("influxdb url is required")
	}
	if I.Token == "" {
		return fmt.Errorf("influxdb token is required")
	}
	if I.Organization == "" {
		return fmt.Errorf("influxdb organization is required")
	}
	if I.Bucket == "" {
		return fmt.Errorf("influxdb bucket is required")
	}
	if !strings.HasPrefix(I.URL, "http://") && !strings.HasPrefix(I.URL, "https://") {
		return fmt.Errorf("influxdb url must start with http:// or https://")
	}
	if I.BatchSize <= 0 {
		return fmt.Errorf("influxdb batch size must be greater than 0")
	}
	if I.FlushInterval < 1 || I.FlushInterval > 60 {
		return fmt.Errorf("influxdb flush interval must be between 1 and 60 seconds, got %d", I.FlushInterval)
	}

	return nil
}

func (I *InfluxConfigImpl) GetUrl() string {
	return I.URL
}

// FlushIntervalMs is the flush interval in the unit the write API expects.
func (I *InfluxConfigImpl) FlushIntervalMs() uint {
	return uint(I.FlushInterval) * 1000
}

var _ InfluxConfig = (*InfluxConfigImpl)(nil)
