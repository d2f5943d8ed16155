package services

import (
	"ble-linepos/internal/config/components"
	"ble-linepos/internal/models"
	"ble-linepos/internal/mq"
	"context"
	"errors"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

type recordingSink struct {
	name     string
	err      error
	sessions []string
	got      []models.PositionEstimate
	obs      []models.Observation
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) HandleEstimate(ctx context.Context, sessionId string, estimate models.PositionEstimate) error {
	s.sessions = append(s.sessions, sessionId)
	s.got = append(s.got, estimate)
	return s.err
}

func (s *recordingSink) HandleObservation(ctx context.Context, o models.Observation) error {
	s.obs = append(s.obs, o)
	return s.err
}

func sampleEstimate() models.PositionEstimate {
	return models.PositionEstimate{
		Point:     models.NewPoint(1.945, 0),
		T:         1.945 / 4.5,
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Anchors:   [2]models.AnchorID{"A", "B"},
		Ranges:    [2]decimal.Decimal{decimal.RequireFromString("1.65"), decimal.RequireFromString("2.26")},
	}
}

func TestPositionServiceFansOut(t *testing.T) {
	s := NewPositionService(zerolog.Nop())
	ok := &recordingSink{name: "ok"}
	broken := &recordingSink{name: "broken", err: errors.New("offline")}
	last := &recordingSink{name: "last"}
	s.AddEstimateSink(ok)
	s.AddEstimateSink(broken)
	s.AddEstimateSink(last)

	err := s.HandleEstimate(context.Background(), "sess", sampleEstimate())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken: offline")

	assert.Len(t, ok.got, 1)
	assert.Len(t, last.got, 1)
	assert.Equal(t, []string{"sess"}, last.sessions)
	assert.Equal(t, uint64(1), s.Published())
	assert.Equal(t, uint64(1), s.Failures())
}

func TestPositionServiceObservations(t *testing.T) {
	s := NewPositionService(zerolog.Nop())
	sink := &recordingSink{name: "influx"}
	s.AddObservationSink(sink)

	o := models.Observation{AnchorID: "A", RSSI: -50, Timestamp: time.Now()}
	require.NoError(t, s.HandleObservation(context.Background(), o))
	assert.Equal(t, []models.Observation{o}, sink.obs)
}

type publishCall struct {
	topic string
	data  interface{}
}

type fakeMqClient struct {
	calls []publishCall
	err   error
}

func (c *fakeMqClient) PublishJson(topic string, data interface{}) error {
	c.calls = append(c.calls, publishCall{topic, data})
	return c.err
}
func (c *fakeMqClient) Subscribe(topic string, handler mqtt.MessageHandler) error { return nil }
func (c *fakeMqClient) Unsubscribe(topics ...string) error                        { return nil }
func (c *fakeMqClient) Disconnect(ctx context.Context)                            {}
func (c *fakeMqClient) Connect(ctx context.Context) error                         { return nil }
func (c *fakeMqClient) IsConnected() bool                                         { return true }

func TestPositionPublisher(t *testing.T) {
	client := &fakeMqClient{}
	p := NewPositionPublisher(client, mq.NewTopicManager("ble-linepos", zerolog.Nop()))

	require.NoError(t, p.HandleEstimate(context.Background(), "sess", sampleEstimate()))
	require.Len(t, client.calls, 1)
	assert.Equal(t, "ble-linepos/v1/positions/sess", client.calls[0].topic)

	dto, ok := client.calls[0].data.(models.PositionDto)
	require.True(t, ok)
	assert.Equal(t, "1.94", dto.X)
	assert.Equal(t, "0.00", dto.Y)
	assert.Equal(t, "1.65", dto.RangeA)

	client.err = errors.New("not connected")
	assert.Error(t, p.HandleEstimate(context.Background(), "sess", sampleEstimate()))
}

type fakeAnchorRepository struct {
	anchors  models.AnchorConfig
	err      error
	upserted []models.Anchor
}

func (r *fakeAnchorRepository) FindAnchors(ctx context.Context, ids [2]models.AnchorID) (models.AnchorConfig, error) {
	return r.anchors, r.err
}

func (r *fakeAnchorRepository) CreateOrUpdate(ctx context.Context, anchor models.Anchor) error {
	r.upserted = append(r.upserted, anchor)
	return r.err
}

func envAnchors() components.AnchorsConfigImpl {
	return components.AnchorsConfigImpl{
		Source: components.AnchorSourceEnv,
		A:      components.AnchorEntry{ID: "a", X: 0, Y: 0, Label: "A"},
		B:      components.AnchorEntry{ID: "b", X: 4.5, Y: 0, Label: "B"},
	}
}

func TestAnchorServiceResolveFromEnv(t *testing.T) {
	s := NewAnchorService(envAnchors(), nil, zerolog.Nop())

	anchors, err := s.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [2]models.AnchorID{"A", "B"}, anchors.IDs())
	assert.Equal(t, models.NewPoint(4.5, 0), anchors[1].Position)
}

func TestAnchorServiceResolveFromRepository(t *testing.T) {
	cfg := envAnchors()
	cfg.Source = components.AnchorSourcePostgres

	repo := &fakeAnchorRepository{anchors: models.AnchorConfig{
		{ID: "A", Position: models.NewPoint(1, 1)},
		{ID: "B", Position: models.NewPoint(1, 5)},
	}}
	anchors, err := NewAnchorService(cfg, repo, zerolog.Nop()).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.NewPoint(1, 5), anchors[1].Position)

	repo.anchors[1].Position = models.NewPoint(1, 1)
	_, err = NewAnchorService(cfg, repo, zerolog.Nop()).Resolve(context.Background())
	assert.ErrorIs(t, err, models.ErrConfiguration)

	_, err = NewAnchorService(cfg, nil, zerolog.Nop()).Resolve(context.Background())
	assert.Error(t, err)
}

func TestAnchorServiceRegister(t *testing.T) {
	repo := &fakeAnchorRepository{}
	require.NoError(t, NewAnchorService(envAnchors(), repo, zerolog.Nop()).Register(context.Background()))
	require.Len(t, repo.upserted, 2)
	assert.Equal(t, models.AnchorID("A"), repo.upserted[0].ID)

	assert.Error(t, NewAnchorService(envAnchors(), nil, zerolog.Nop()).Register(context.Background()))
}
