package logger

import (
	"ble-linepos/internal/config/components"
	"bytes"
	"encoding/json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestBuildJSONLevel(t *testing.T) {
	var buf bytes.Buffer
	l := build(components.LoggerConfigImpl{Level: "warn", Format: "json"}, &buf)

	l.Info().Msg("hidden")
	l.Warn().Str("anchor", "A").Msg("shown")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "A", entry["anchor"])
	assert.Equal(t, "warn", entry["level"])
}

func TestBuildUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := build(components.LoggerConfigImpl{Level: "", Format: "json"}, &buf)
	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())
}
