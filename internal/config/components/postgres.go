package components

import (
	"ble-linepos/internal/config/shared"
	"ble-linepos/internal/interfaces"
	"fmt"
	"time"
)

type PostgresConfig interface {
	interfaces.Config
	GetDsn() string
}

type PostgresConfigImpl struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
	TimeZone string `json:"timezone"`

	ConnectTimeout time.Duration `json:"connect_timeout"`
}

func NewPostgresConfig() PostgresConfigImpl {
	config := PostgresConfigImpl{}
	config.Load()
	config.SetDefaults()
	return config
}

func (P *PostgresConfigImpl) Load() {
	P.Host = shared.GetEnv("POSTGRES_HOST")
	P.Port = shared.GetEnvAsInt("POSTGRES_PORT")
	P.User = shared.GetEnv("POSTGRES_USER")
	P.Password = shared.GetEnv("POSTGRES_PASSWORD")
	P.Database = shared.GetEnv("POSTGRES_DB")
	P.SSLMode = shared.GetEnv("POSTGRES_SSL_MODE")
	P.TimeZone = shared.GetEnv("TZ")
	P.ConnectTimeout = shared.GetEnvAsDuration("POSTGRES_CONNECT_TIMEOUT")
}

func (P *PostgresConfigImpl) SetDefaults() {
	if P.Host == "" {
		P.Host = "localhost"
	}
	if P.Port == 0 {
		P.Port = 5432
	}
	if P.User == "" {
		P.User = "postgres"
	}
	if P.Database == "" {
		P.Database = "ble_linepos"
	}
	if P.SSLMode == "" || P.SSLMode == "false" {
		P.SSLMode = "disable"
	}
	if P.TimeZone == "" {
		P.TimeZone = "UTC"
	}
	if P.ConnectTimeout <= 0 {
		P.ConnectTimeout = 10 * time.Second
	}
}

func (P *PostgresConfigImpl) Validate() error {
	if P.Host == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if P.Port <= 0 || P.Port > 65535 {
		return fmt.Errorf("POSTGRES_PORT must be between 1 and 65535, got %d", P.Port)
	}
	if P.User == "" {
		return fmt.Errorf("POSTGRES_USER is required")
	}
	if P.Database == "" {
		return fmt.Errorf("POSTGRES_DB is required")
	}
	switch P.SSLMode {
	case "disable", "require", "verify-ca", "verify-full":
	default:
		return shared.NewConfigError("postgres", "ssl_mode", P.SSLMode, "must be one of: disable, require, verify-ca, verify-full")
	}
	return nil
}

func (P *PostgresConfigImpl) GetDsn() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&TimeZone=%s", P.User, P.Password, P.Host, P.Port, P.Database, P.SSLMode, P.TimeZone)
}

var _ PostgresConfig = (*PostgresConfigImpl)(nil)
