package components

import (
	"ble-linepos/internal/config/shared"
	"ble-linepos/internal/interfaces"
	"fmt"
	"net"
)

type WebConfig interface {
	interfaces.Config
}

type WebConfigImpl struct {
	Enabled bool   `json:"enabled"`
	Listen  string `json:"listen"`
}

func NewWebConfig() WebConfigImpl {
	config := WebConfigImpl{}
	config.Load()
	config.SetDefaults()
	return config
}

func (W *WebConfigImpl) Load() {
	W.Enabled = shared.GetEnvAsBool("WEB_ENABLED", true)
	W.Listen = shared.GetEnv("WEB_LISTEN")
}

func (W *WebConfigImpl) SetDefaults() {
	if W.Listen == "" {
		W.Listen = ":8080"
	}
}

func (W *WebConfigImpl) Validate() error {
	if !W.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(W.Listen); err != nil {
		return fmt.Errorf("WEB_LISTEN must be host:port, got %q: %w", W.Listen, err)
	}
	return nil
}

var _ WebConfig = (*WebConfigImpl)(nil)
