package session

import (
	"ble-linepos/internal/models"
	"ble-linepos/internal/pipeline"
	"ble-linepos/internal/store"
	"context"
	"errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
	"time"
)

const (
	anchorA models.AnchorID = "2D:7E:1A:02:3D:21"
	anchorB models.AnchorID = "C4:4F:33:0B:91:07"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// scriptedFeed emits its observations, then either returns endErr or blocks
// until stopped.
type scriptedFeed struct {
	observations []models.Observation
	endErr       error
	block        bool
	store        *store.ObservationStore

	mu              sync.Mutex
	stopCalls       int
	storeClosedStop bool
	stopped         chan struct{}
}

func newScriptedFeed(st *store.ObservationStore, obs ...models.Observation) *scriptedFeed {
	return &scriptedFeed{observations: obs, store: st, stopped: make(chan struct{})}
}

func (f *scriptedFeed) Name() string { return "scripted" }

func (f *scriptedFeed) Start(ctx context.Context, out chan<- models.Observation) error {
	for _, o := range f.observations {
		select {
		case out <- o:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if !f.block {
		return f.endErr
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.stopped:
		return nil
	}
}

func (f *scriptedFeed) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	f.storeClosedStop = f.store.Closed()
	if f.stopCalls == 1 {
		close(f.stopped)
	}
	return nil
}

type recordingSink struct {
	mu        sync.Mutex
	estimates []models.PositionEstimate
	sessions  []string
	obs       []models.Observation
	got       chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{got: make(chan struct{}, 16)}
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) HandleEstimate(ctx context.Context, sessionId string, estimate models.PositionEstimate) error {
	s.mu.Lock()
	s.estimates = append(s.estimates, estimate)
	s.sessions = append(s.sessions, sessionId)
	s.mu.Unlock()
	select {
	case s.got <- struct{}{}:
	default:
	}
	return nil
}

func (s *recordingSink) HandleObservation(ctx context.Context, o models.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.obs = append(s.obs, o)
	return nil
}

func (s *recordingSink) last() (models.PositionEstimate, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.estimates) == 0 {
		return models.PositionEstimate{}, 0
	}
	return s.estimates[len(s.estimates)-1], len(s.estimates)
}

func newTestSession(t *testing.T, feedFn func(*store.ObservationStore) *scriptedFeed) (*Session, *scriptedFeed, *store.ObservationStore, *pipeline.Pipeline, *recordingSink) {
	t.Helper()
	st := store.NewObservationStore()
	p, err := pipeline.New(models.AnchorConfig{
		{ID: anchorA, Position: models.NewPoint(0, 0), Label: "A"},
		{ID: anchorB, Position: models.NewPoint(4.5, 0), Label: "B"},
	}, models.DefaultCalibration(), st, zerolog.Nop())
	require.NoError(t, err)

	feed := feedFn(st)
	sink := newRecordingSink()
	s, err := New(Options{
		Feed:         feed,
		Store:        st,
		Pipeline:     p,
		Estimates:    sink,
		Observations: sink,
		Logger:       zerolog.Nop(),
	})
	require.NoError(t, err)
	return s, feed, st, p, sink
}

func TestRunFiniteFeedDeliversFinalEstimate(t *testing.T) {
	s, feed, st, _, sink := newTestSession(t, func(st *store.ObservationStore) *scriptedFeed {
		return newScriptedFeed(st,
			models.Observation{AnchorID: anchorA, RSSI: -50, Timestamp: t0},
			models.Observation{AnchorID: "AA:BB:CC:DD:EE:FF", RSSI: -70, Timestamp: t0},
			models.Observation{AnchorID: anchorB, RSSI: -60, Timestamp: t0.Add(time.Second)},
		)
	})

	require.NoError(t, s.Run(context.Background()))

	estimate, n := sink.last()
	require.GreaterOrEqual(t, n, 1)
	assert.Equal(t, "1.94", estimate.ToDto("").X)
	assert.Equal(t, "1.65", estimate.Ranges[0].StringFixed(2))
	assert.Equal(t, "2.26", estimate.Ranges[1].StringFixed(2))
	assert.True(t, t0.Add(time.Second).Equal(estimate.Timestamp))
	assert.Equal(t, s.ID(), sink.sessions[0])
	assert.Len(t, sink.obs, 3)

	assert.Equal(t, 1, feed.stopCalls)
	assert.False(t, feed.storeClosedStop, "store closed before feed was stopped")
	assert.True(t, st.Closed())
}

func TestRunCancelStopsFeedFirst(t *testing.T) {
	s, feed, st, p, sink := newTestSession(t, func(st *store.ObservationStore) *scriptedFeed {
		f := newScriptedFeed(st,
			models.Observation{AnchorID: anchorA, RSSI: -50, Timestamp: t0},
			models.Observation{AnchorID: anchorB, RSSI: -60, Timestamp: t0},
		)
		f.block = true
		return f
	})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()

	select {
	case <-sink.got:
	case <-time.After(2 * time.Second):
		t.Fatal("no estimate delivered")
	}

	status := s.Status()
	require.NotNil(t, status.Estimate)
	assert.Equal(t, "1.94", status.Estimate.X)
	assert.Equal(t, "scripted", status.Feed)

	cancel()
	require.NoError(t, <-errc)

	assert.Equal(t, 1, feed.stopCalls)
	assert.False(t, feed.storeClosedStop)
	assert.True(t, st.Closed())

	_, ch := p.Subscribe()
	_, open := <-ch
	assert.False(t, open, "pipeline should be closed")
}

func TestRunFeedErrorStillTearsDown(t *testing.T) {
	boom := errors.New("port vanished")
	s, feed, st, _, _ := newTestSession(t, func(st *store.ObservationStore) *scriptedFeed {
		f := newScriptedFeed(st, models.Observation{AnchorID: anchorA, RSSI: -50, Timestamp: t0})
		f.endErr = boom
		return f
	})

	err := s.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, 1, feed.stopCalls)
	assert.False(t, feed.storeClosedStop)
	assert.True(t, st.Closed())
}

func TestRunDiscardsInvalidObservations(t *testing.T) {
	s, _, _, _, sink := newTestSession(t, func(st *store.ObservationStore) *scriptedFeed {
		return newScriptedFeed(st,
			models.Observation{AnchorID: "", RSSI: -50, Timestamp: t0},
			models.Observation{AnchorID: anchorA, RSSI: -50},
		)
	})

	require.NoError(t, s.Run(context.Background()))
	assert.Empty(t, sink.obs)
	_, n := sink.last()
	assert.Zero(t, n)
}

func TestNewRequiresCollaborators(t *testing.T) {
	st := store.NewObservationStore()
	_, err := New(Options{Store: st})
	assert.Error(t, err)

	_, err = New(Options{Feed: newScriptedFeed(st), Store: st})
	assert.Error(t, err)

	_, err = New(Options{Feed: newScriptedFeed(st)})
	assert.Error(t, err)
}
