package mq

import (
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestTopicManagerTopics(t *testing.T) {
	t.Parallel()

	m := NewTopicManager("lab/ble/", zerolog.Nop())

	assert.Equal(t, "lab/ble", m.GetBaseTopic())
	assert.Equal(t, "lab/ble/v1/observations/+", m.GetObservationTopic())
	assert.Equal(t, "lab/ble/v1/positions/abc", m.GetPositionTopic("abc"))
}

func TestExtractAnchorId(t *testing.T) {
	t.Parallel()

	m := NewTopicManager("ble-linepos", zerolog.Nop())

	tests := []struct {
		name    string
		topic   string
		want    string
		wantErr bool
	}{
		{name: "address", topic: "ble-linepos/v1/observations/2D:7E:1A:02:3D:21", want: "2D:7E:1A:02:3D:21"},
		{name: "wrong base", topic: "other/v1/observations/A", wantErr: true},
		{name: "extra level", topic: "ble-linepos/v1/observations/A/B", wantErr: true},
		{name: "position topic", topic: "ble-linepos/v1/positions/A", wantErr: true},
		{name: "empty id", topic: "ble-linepos/v1/observations/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.ExtractAnchorId(tt.topic)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBaseTopicIsQuoted(t *testing.T) {
	m := NewTopicManager("a.b", zerolog.Nop())

	_, err := m.ExtractAnchorId("aXb/v1/observations/A")
	assert.Error(t, err)

	id, err := m.ExtractAnchorId("a.b/v1/observations/A")
	require.NoError(t, err)
	assert.Equal(t, "A", id)
}

func TestEncodeMessage(t *testing.T) {
	payload, err := encodeMessage(map[string]string{"x": "1.94"}, "ble-linepos")
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{"x":"1.94"},"source":"ble-linepos"}`, string(payload))
}
