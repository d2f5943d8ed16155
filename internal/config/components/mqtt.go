package components

import (
	"ble-linepos/internal/config/shared"
	"ble-linepos/internal/interfaces"
	"fmt"
	"strings"
	"time"
)

type MQTTConfig interface {
	interfaces.Config
	GetUrl() string
}

type MQTTConfigImpl struct {
	Enabled              bool          `json:"enabled"`
	Host                 string        `json:"host"`
	Port                 int           `json:"port"`
	Username             string        `json:"username"`
	Password             string        `json:"password"`
	ClientID             string        `json:"client_id"`
	BaseTopic            string        `json:"base_topic"`
	QoS                  byte          `json:"qos"`
	KeepAlive            time.Duration `json:"keep_alive"`
	AutoReconnect        bool          `json:"auto_reconnect"`
	MaxReconnectInterval time.Duration `json:"max_reconnect_interval"`
	CleanSession         bool          `json:"clean_session"`
	ConnectTimeout       time.Duration `json:"connect_timeout"`
}

func NewMQTTConfig() MQTTConfigImpl {
	config := MQTTConfigImpl{}
	config.Load()
	config.SetDefaults()
	return config
}

func (M *MQTTConfigImpl) Load() {
	M.Enabled = shared.GetEnvAsBool("MQTT_ENABLED", true)
	M.Host = shared.GetEnv("MQTT_HOST")
	M.Port = shared.GetEnvAsInt("MQTT_PORT")
	M.Username = shared.GetEnv("MQTT_USERNAME")
	M.Password = shared.GetEnv("MQTT_PASSWORD")
	M.ClientID = shared.GetEnv("MQTT_CLIENT_ID")
	M.BaseTopic = shared.GetEnv("MQTT_BASE_TOPIC")
	M.QoS = byte(shared.GetEnvAsInt("MQTT_QOS"))
	M.KeepAlive = shared.GetEnvAsDuration("MQTT_KEEP_ALIVE")
	M.AutoReconnect = shared.GetEnvAsBool("MQTT_AUTO_RECONNECT", true)
	M.MaxReconnectInterval = shared.GetEnvAsDuration("MQTT_MAX_RECONNECT_INTERVAL")
	M.CleanSession = shared.GetEnvAsBool("MQTT_CLEAN_SESSION", true)
	M.ConnectTimeout = shared.GetEnvAsDuration("MQTT_CONNECT_TIMEOUT")
}

func (M *MQTTConfigImpl) SetDefaults() {
	if M.Host == "" {
		M.Host = "localhost"
	}
	if M.Port == 0 {
		M.Port = 1883
	}
	if M.ClientID == "" {
		M.ClientID = "ble-linepos"
	}
	if M.BaseTopic == "" {
		M.BaseTopic = "ble-linepos"
	}
	if M.KeepAlive == 0 {
		M.KeepAlive = 60 * time.Second
	}
	if M.MaxReconnectInterval == 0 {
		M.MaxReconnectInterval = 10 * time.Second
	}
	if M.ConnectTimeout == 0 {
		M.ConnectTimeout = 30 * time.Second
	}

	M.BaseTopic = strings.TrimSuffix(M.BaseTopic, "/")
}

func (M *MQTTConfigImpl) Validate() error {
	if !M.Enabled {
		return nil
	}

	if M.Host == "" {
		return fmt.Errorf("MQTT host is required")
	}

	if M.Port <= 0 || M.Port > 65535 {
		return fmt.Errorf("MQTT port must be between 1 and 65535, got %d", M.Port)
	}

	if M.QoS > 2 {
		return fmt.Errorf("MQTT QoS must be 0, 1, or 2, got %d", M.QoS)
	}

	if M.KeepAlive < 0 {
		return fmt.Errorf("MQTT keep alive cannot be negative, got %s", M.KeepAlive)
	}

	if strings.ContainsAny(M.BaseTopic, "+#") {
		return fmt.Errorf("MQTT base topic must not contain wildcards, got %q", M.BaseTopic)
	}

	return nil
}

func (M *MQTTConfigImpl) GetUrl() string {
	return fmt.Sprintf("tcp://%s:%d", M.Host, M.Port)
}

var _ MQTTConfig = (*MQTTConfigImpl)(nil)
