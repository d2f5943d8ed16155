package services

import (
	"ble-linepos/internal/interfaces"
	"ble-linepos/internal/models"
	"context"
	"errors"
	"fmt"
	"github.com/rs/zerolog"
	"sync/atomic"
)

// PositionService fans estimates and raw observations out to every
// configured sink. A failing sink never blocks the others.
type PositionService struct {
	estimateSinks    []interfaces.IEstimateSink
	observationSinks []interfaces.IObservationSink
	logger           zerolog.Logger

	published atomic.Uint64
	failures  atomic.Uint64
}

func NewPositionService(logger zerolog.Logger) *PositionService {
	return &PositionService{logger: logger}
}

func (s *PositionService) AddEstimateSink(sink interfaces.IEstimateSink) {
	s.estimateSinks = append(s.estimateSinks, sink)
	s.logger.Info().Str("sink", sink.Name()).Msg("Registered estimate sink")
}

func (s *PositionService) AddObservationSink(sink interfaces.IObservationSink) {
	s.observationSinks = append(s.observationSinks, sink)
}

func (s *PositionService) HandleEstimate(ctx context.Context, sessionId string, estimate models.PositionEstimate) error {
	var errs []error
	for _, sink := range s.estimateSinks {
		if err := sink.HandleEstimate(ctx, sessionId, estimate); err != nil {
			s.failures.Add(1)
			s.logger.Error().Err(err).
				Str("sink", sink.Name()).
				Str("session_id", sessionId).
				Msg("Failed to deliver position estimate")
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	s.published.Add(1)

	dto := estimate.ToDto(sessionId)
	s.logger.Info().
		Str("x", dto.X).
		Str("y", dto.Y).
		Str("t", dto.T).
		Str("range_a", dto.RangeA).
		Str("range_b", dto.RangeB).
		Msg("Position estimate")

	return errors.Join(errs...)
}

func (s *PositionService) HandleObservation(ctx context.Context, observation models.Observation) error {
	var errs []error
	for _, sink := range s.observationSinks {
		if err := sink.HandleObservation(ctx, observation); err != nil {
			s.failures.Add(1)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *PositionService) Published() uint64 {
	return s.published.Load()
}

func (s *PositionService) Failures() uint64 {
	return s.failures.Load()
}

func (s *PositionService) Name() string {
	return "fanout"
}

var (
	_ interfaces.IEstimateSink    = (*PositionService)(nil)
	_ interfaces.IObservationSink = (*PositionService)(nil)
)
