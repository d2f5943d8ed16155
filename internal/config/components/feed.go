package components

import (
	"ble-linepos/internal/config/shared"
	"ble-linepos/internal/interfaces"
	"fmt"
	"strings"
	"time"
)

const (
	FeedTypeMQTT   = "mqtt"
	FeedTypeSerial = "serial"
	FeedTypeReplay = "replay"
)

type FeedConfig interface {
	interfaces.Config
}

type FeedConfigImpl struct {
	Type           string        `json:"type"`
	SerialPort     string        `json:"serial_port"`
	BaudRate       int           `json:"baud_rate"`
	DataBits       int           `json:"data_bits"`
	StopBits       int           `json:"stop_bits"`
	Parity         string        `json:"parity"`
	ReplayFile     string        `json:"replay_file"`
	ReplayInterval time.Duration `json:"replay_interval"`
	Buffer         int           `json:"buffer"`
}

func NewFeedConfig() FeedConfigImpl {
	config := FeedConfigImpl{}
	config.Load()
	config.SetDefaults()
	return config
}

func (F *FeedConfigImpl) Load() {
	F.Type = strings.ToLower(shared.GetEnv("FEED_TYPE"))
	F.SerialPort = shared.GetEnv("FEED_SERIAL_PORT")
	F.BaudRate = shared.GetEnvAsInt("FEED_SERIAL_BAUD")
	F.DataBits = shared.GetEnvAsInt("FEED_SERIAL_DATA_BITS")
	F.StopBits = shared.GetEnvAsInt("FEED_SERIAL_STOP_BITS")
	F.Parity = shared.GetEnv("FEED_SERIAL_PARITY")
	F.ReplayFile = shared.GetEnv("FEED_REPLAY_FILE")
	F.ReplayInterval = shared.GetEnvAsDuration("FEED_REPLAY_INTERVAL")
	F.Buffer = shared.GetEnvAsInt("FEED_BUFFER")
}

func (F *FeedConfigImpl) SetDefaults() {
	if F.Type == "" {
		F.Type = FeedTypeMQTT
	}
	if F.SerialPort == "" {
		F.SerialPort = "/dev/ttyUSB0"
	}
	if F.BaudRate <= 0 {
		F.BaudRate = 115200
	}
	if F.Buffer <= 0 {
		F.Buffer = 64
	}
}

func (F *FeedConfigImpl) Validate() error {
	switch F.Type {
	case FeedTypeMQTT:
	case FeedTypeSerial:
		if F.SerialPort == "" {
			return fmt.Errorf("FEED_SERIAL_PORT is required for the serial feed")
		}
	case FeedTypeReplay:
		if F.ReplayFile == "" {
			return fmt.Errorf("FEED_REPLAY_FILE is required for the replay feed")
		}
	default:
		return shared.NewConfigError("feed", "type", F.Type, "must be one of: mqtt, serial, replay")
	}

	if F.ReplayInterval < 0 {
		return fmt.Errorf("FEED_REPLAY_INTERVAL cannot be negative, got %s", F.ReplayInterval)
	}
	return nil
}

var _ FeedConfig = (*FeedConfigImpl)(nil)
