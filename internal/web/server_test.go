package web

import (
	"ble-linepos/internal/config/components"
	"ble-linepos/internal/models"
	"context"
	"encoding/json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(components.WebConfigImpl{Enabled: true, Listen: "127.0.0.1:0"}, func() interface{} {
		return map[string]string{"session_id": "sess"}
	}, zerolog.Nop())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.close()
		ts.Close()
	})
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Len() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, h.Len())
		}
		time.Sleep(time.Millisecond)
	}
}

func estimate() models.PositionEstimate {
	return models.PositionEstimate{
		Point:     models.NewPoint(1.945, 0),
		T:         1.945 / 4.5,
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Anchors:   [2]models.AnchorID{"A", "B"},
		Ranges:    [2]decimal.Decimal{decimal.RequireFromString("1.65"), decimal.RequireFromString("2.26")},
	}
}

func TestStatusEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "sess", body["session_id"])

	post, err := http.Post(ts.URL+"/status", "application/json", nil)
	require.NoError(t, err)
	post.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, post.StatusCode)
}

func TestWebsocketReceivesEstimates(t *testing.T) {
	s, ts := newTestServer(t)
	conn := dial(t, ts)
	waitForClients(t, s.Hub, 1)

	require.NoError(t, s.HandleEstimate(context.Background(), "sess", estimate()))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var dto models.PositionDto
	require.NoError(t, conn.ReadJSON(&dto))
	assert.Equal(t, "1.94", dto.X)
	assert.Equal(t, "sess", dto.SessionID)
	assert.Equal(t, "2.26", dto.RangeB)
}

func TestLateClientGetsLatest(t *testing.T) {
	s, ts := newTestServer(t)
	require.NoError(t, s.HandleEstimate(context.Background(), "sess", estimate()))

	conn := dial(t, ts)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var dto models.PositionDto
	require.NoError(t, conn.ReadJSON(&dto))
	assert.Equal(t, "1.94", dto.X)
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	s, ts := newTestServer(t)
	conn := dial(t, ts)
	waitForClients(t, s.Hub, 1)

	s.Hub.Close()
	assert.Equal(t, 0, s.Hub.Len())

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	s.Hub.Broadcast([]byte("ignored"))
	assert.Equal(t, 0, s.Hub.Len())
}

func TestStartStopsOnCancel(t *testing.T) {
	s := NewServer(components.WebConfigImpl{Enabled: true, Listen: "127.0.0.1:0"}, func() interface{} { return nil }, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Start(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestStartListenError(t *testing.T) {
	s := NewServer(components.WebConfigImpl{Enabled: true, Listen: "256.0.0.1:99999"}, func() interface{} { return nil }, zerolog.Nop())
	assert.Error(t, s.Start(context.Background()))
}
