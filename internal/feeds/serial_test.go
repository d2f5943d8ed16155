package feeds

import (
	"ble-linepos/internal/config/components"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
	"testing"
)

func TestPortOptionsNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      PortOptions
		want    PortOptions
		wantErr bool
	}{
		{name: "defaults", in: PortOptions{}, want: PortOptions{BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: "N"}},
		{name: "long parity", in: PortOptions{BaudRate: 9600, Parity: "even"}, want: PortOptions{BaudRate: 9600, DataBits: 8, StopBits: 1, Parity: "E"}},
		{name: "bad data bits", in: PortOptions{DataBits: 9}, wantErr: true},
		{name: "bad stop bits", in: PortOptions{StopBits: 3}, wantErr: true},
		{name: "bad parity", in: PortOptions{Parity: "mark"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Normalize()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSerialMode(t *testing.T) {
	t.Parallel()

	mode, err := PortOptions{StopBits: 2, Parity: "O"}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, &serial.Mode{BaudRate: 115200, DataBits: 8, StopBits: serial.TwoStopBits, Parity: serial.OddParity}, mode)
}

func TestPortOptionsFromConfig(t *testing.T) {
	opts := PortOptionsFromConfig(components.FeedConfigImpl{BaudRate: 57600, Parity: "N"})
	assert.Equal(t, 57600, opts.BaudRate)
}

func TestNewSerialFeedRejectsBadOptions(t *testing.T) {
	_, err := NewSerialFeed("/dev/null", PortOptions{DataBits: 4}, zerolog.Nop())
	assert.Error(t, err)

	feed, err := NewSerialFeed("/dev/ttyUSB9", PortOptions{}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "serial:/dev/ttyUSB9", feed.Name())
}
