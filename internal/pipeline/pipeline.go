// Package pipeline turns the latest observations of the two required anchors
// into a position estimate on their baseline.
package pipeline

import (
	"ble-linepos/internal/models"
	"ble-linepos/internal/ranging"
	"ble-linepos/internal/store"
	"ble-linepos/internal/trilateration"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"sync"
)

// SubscriberBuffer is the number of pending estimates held per subscriber.
// When it is full the oldest pending estimate is replaced.
const SubscriberBuffer = 1

type Pipeline struct {
	anchors   models.AnchorConfig
	ids       [2]models.AnchorID
	estimator *ranging.Estimator
	line      *trilateration.Line
	store     *store.ObservationStore
	logger    zerolog.Logger

	// recomputeMu orders recomputation and delivery.
	recomputeMu sync.Mutex

	mu          sync.RWMutex
	current     *models.PositionEstimate
	subscribers map[string]chan models.PositionEstimate
	closed      bool
}

func New(anchors models.AnchorConfig, cal models.CalibrationConfig, st *store.ObservationStore, logger zerolog.Logger) (*Pipeline, error) {
	if err := anchors.Validate(); err != nil {
		return nil, err
	}
	if st == nil {
		return nil, models.NewConfigurationError("store", "observation store is required")
	}

	estimator, err := ranging.NewEstimator(cal)
	if err != nil {
		return nil, err
	}

	line, err := trilateration.NewLine(anchors[0].Position, anchors[1].Position)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		anchors:     append(models.AnchorConfig(nil), anchors...),
		ids:         anchors.IDs(),
		estimator:   estimator,
		line:        line,
		store:       st,
		logger:      logger,
		subscribers: make(map[string]chan models.PositionEstimate),
	}
	st.OnUpdate(p.handleUpdate)

	logger.Info().
		Str("anchor_a", string(p.ids[0])).
		Str("anchor_b", string(p.ids[1])).
		Float64("baseline", line.Length()).
		Float64("reference_rssi", cal.ReferenceRSSI).
		Float64("path_loss_exponent", cal.PathLossExponent).
		Msg("Position pipeline configured")

	return p, nil
}

func (p *Pipeline) Anchors() models.AnchorConfig {
	return append(models.AnchorConfig(nil), p.anchors...)
}

func (p *Pipeline) Calibration() models.CalibrationConfig {
	return p.estimator.Calibration()
}

func (p *Pipeline) handleUpdate(obs models.Observation) {
	if !p.anchors.Contains(obs.AnchorID) {
		return
	}
	p.Recompute()
}

// Recompute derives the estimate from the store. It publishes only when the
// derived estimate differs from the current one, so redundant calls are safe.
func (p *Pipeline) Recompute() (models.PositionEstimate, bool) {
	p.recomputeMu.Lock()
	defer p.recomputeMu.Unlock()

	pair, ok := p.store.SnapshotRequired(p.ids)
	if !ok {
		return models.PositionEstimate{}, false
	}
	est := p.compute(pair)

	p.mu.Lock()
	changed := p.current == nil || !p.current.Equal(est)
	if changed {
		p.current = &est
	}
	p.mu.Unlock()

	if changed {
		p.publish(est)
		p.logger.Debug().
			Int("rssi_a", pair[0].RSSI).
			Int("rssi_b", pair[1].RSSI).
			Str("range_a", est.Ranges[0].StringFixed(ranging.Places)).
			Str("range_b", est.Ranges[1].StringFixed(ranging.Places)).
			Float64("x", est.Point.X).
			Float64("y", est.Point.Y).
			Float64("t", est.T).
			Msg("Position estimate updated")
	}
	return est, true
}

func (p *Pipeline) compute(pair [2]models.Observation) models.PositionEstimate {
	d1 := p.estimator.Estimate(pair[0].RSSI)
	d2 := p.estimator.Estimate(pair[1].RSSI)
	point, t := p.line.Solve(d1, d2)

	ts := pair[0].Timestamp
	if pair[1].Timestamp.After(ts) {
		ts = pair[1].Timestamp
	}

	return models.PositionEstimate{
		Point:     point,
		T:         t,
		Timestamp: ts,
		Anchors:   p.ids,
		Ranges:    [2]decimal.Decimal{d1, d2},
	}
}

func (p *Pipeline) CurrentEstimate() (models.PositionEstimate, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return models.PositionEstimate{}, false
	}
	return *p.current, true
}

// Subscribe returns a channel that receives every new estimate. The channel
// is closed by Unsubscribe or Close.
func (p *Pipeline) Subscribe() (string, <-chan models.PositionEstimate) {
	id := uuid.NewString()
	ch := make(chan models.PositionEstimate, SubscriberBuffer)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		close(ch)
		return id, ch
	}
	p.subscribers[id] = ch
	return id, ch
}

func (p *Pipeline) Unsubscribe(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ch, ok := p.subscribers[id]; ok {
		close(ch)
		delete(p.subscribers, id)
	}
}

// Close unsubscribes everyone. The cached estimate stays readable.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for id, ch := range p.subscribers {
		close(ch)
		delete(p.subscribers, id)
	}
}

func (p *Pipeline) publish(est models.PositionEstimate) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, ch := range p.subscribers {
		offer(ch, est)
	}
}

// offer never blocks. Callers must hold recomputeMu so that only one
// goroutine sends on ch at a time.
func offer(ch chan models.PositionEstimate, est models.PositionEstimate) {
	for {
		select {
		case ch <- est:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
