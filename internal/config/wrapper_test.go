package config

import (
	"ble-linepos/internal/config/components"
	"ble-linepos/internal/models"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ANCHOR_B_ID", "c4:4f:33:0a:11:02")
}

func TestNewWrapperDefaults(t *testing.T) {
	setBaseEnv(t)

	w := NewWrapper()
	require.NoError(t, w.Validate())

	anchors := w.GetAnchorsConfig()
	assert.Equal(t, components.AnchorSourceEnv, anchors.Source)
	assert.Equal(t, [2]models.AnchorID{"2D:7E:1A:02:3D:21", "C4:4F:33:0A:11:02"}, anchors.IDs())
	assert.Equal(t, 4.5, anchors.B.X)

	cal := w.GetCalibrationConfig().ToCalibration()
	assert.Equal(t, models.DefaultCalibration(), cal)

	assert.Equal(t, components.FeedTypeMQTT, w.GetFeedConfig().Type)
	assert.Equal(t, "tcp://localhost:1883", w.MQTTConfig.GetUrl())
	assert.Equal(t, "ble-linepos", w.MQTTConfig.BaseTopic)
	assert.False(t, w.GetInfluxConfig().Enabled)
	assert.Equal(t, ":8080", w.GetWebConfig().Listen)
	assert.Equal(t, 10*time.Second, w.GetServiceConfig().DiagnosticsInterval)
	assert.Equal(t, "info", w.GetLoggerConfig().Level)
}

func TestValidateMissingAnchorB(t *testing.T) {
	w := NewWrapper()

	err := w.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANCHOR_B_ID is required")
}

func TestValidateCoincidentAnchors(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ANCHOR_B_X", "0")

	w := NewWrapper()
	err := w.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestValidateSameAnchorIDs(t *testing.T) {
	t.Setenv("ANCHOR_B_ID", "2d:7e:1a:02:3d:21")

	w := NewWrapper()
	err := w.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestValidateCollectsEveryError(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("CALIBRATION_PATH_LOSS_EXPONENT", "0")
	t.Setenv("LOG_LEVEL", "chatty")
	t.Setenv("FEED_TYPE", "carrier-pigeon")

	w := NewWrapper()
	err := w.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "calibration config")
	assert.Contains(t, err.Error(), "logger config")
	assert.Contains(t, err.Error(), "feed config")
}

func TestValidateUnparsableFloat(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("CALIBRATION_REFERENCE_RSSI", "minus thirty four")

	w := NewWrapper()
	assert.Error(t, w.Validate())
}

func TestValidateReferenceRSSIOutOfRange(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("CALIBRATION_REFERENCE_RSSI", "1e300")
	t.Setenv("CALIBRATION_PATH_LOSS_EXPONENT", "1e-300")

	w := NewWrapper()
	err := w.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConfiguration))
	assert.Contains(t, err.Error(), "calibration config")
}

func TestValidateAnchorSeparationOverflows(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ANCHOR_A_X", "-1e308")
	t.Setenv("ANCHOR_B_X", "1e308")

	w := NewWrapper()
	err := w.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestValidateMQTTFeedNeedsBroker(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("MQTT_ENABLED", "false")

	w := NewWrapper()
	err := w.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MQTT_ENABLED")

	t.Setenv("FEED_TYPE", "serial")
	w = NewWrapper()
	assert.NoError(t, w.Validate())
}

func TestValidatePostgresSourceSkipsCoordinates(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ANCHOR_SOURCE", "postgres")
	t.Setenv("ANCHOR_B_X", "0")

	w := NewWrapper()
	assert.NoError(t, w.Validate())

	t.Setenv("POSTGRES_SSL_MODE", "sometimes")
	w = NewWrapper()
	assert.Error(t, w.Validate())
}

func TestInfluxValidatedOnlyWhenEnabled(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("INFLUXDB_ENABLED", "true")

	w := NewWrapper()
	err := w.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "influxdb token is required")

	t.Setenv("INFLUXDB_TOKEN", "secret")
	w = NewWrapper()
	assert.NoError(t, w.Validate())
	assert.Equal(t, uint(10000), w.InfluxConfig.FlushIntervalMs())
}

func TestMQTTBaseTopicTrimmed(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("MQTT_BASE_TOPIC", "lab/ble/")

	w := NewWrapper()
	require.NoError(t, w.Validate())
	assert.Equal(t, "lab/ble", w.MQTTConfig.BaseTopic)
}
