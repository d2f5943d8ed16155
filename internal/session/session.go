// Package session runs one positioning session: observations flow from a
// feed into the store, the pipeline derives estimates, and estimates are
// handed to the configured sinks.
package session

import (
	"ble-linepos/internal/interfaces"
	"ble-linepos/internal/models"
	"ble-linepos/internal/pipeline"
	"ble-linepos/internal/store"
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"time"
)

const DefaultBuffer = 64

type Options struct {
	Feed         interfaces.IFeed
	Store        *store.ObservationStore
	Pipeline     *pipeline.Pipeline
	Estimates    interfaces.IEstimateSink
	Observations interfaces.IObservationSink

	DiagnosticsInterval time.Duration
	Buffer              int
	Logger              zerolog.Logger
}

type Session struct {
	id           string
	feed         interfaces.IFeed
	store        *store.ObservationStore
	pipeline     *pipeline.Pipeline
	estimates    interfaces.IEstimateSink
	observations interfaces.IObservationSink
	diagnostics  *Diagnostics
	interval     time.Duration
	buffer       int
	logger       zerolog.Logger
	startedAt    time.Time
}

func New(opts Options) (*Session, error) {
	if opts.Feed == nil {
		return nil, fmt.Errorf("session: feed is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("session: store is required")
	}
	if opts.Pipeline == nil {
		return nil, fmt.Errorf("session: pipeline is required")
	}
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}

	id := uuid.NewString()
	logger := opts.Logger.With().Str("session_id", id).Logger()

	return &Session{
		id:           id,
		feed:         opts.Feed,
		store:        opts.Store,
		pipeline:     opts.Pipeline,
		estimates:    opts.Estimates,
		observations: opts.Observations,
		diagnostics:  NewDiagnostics(opts.Store, opts.Pipeline.Anchors(), opts.Pipeline.Calibration()),
		interval:     opts.DiagnosticsInterval,
		buffer:       opts.Buffer,
		logger:       logger,
		startedAt:    time.Now(),
	}, nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Diagnostics() *Diagnostics {
	return s.diagnostics
}

// Run blocks until ctx is cancelled, the feed fails or the feed runs out of
// input. Cancellation of ctx is a clean exit and returns nil. The feed is
// always stopped before the pipeline and the store are closed.
func (s *Session) Run(ctx context.Context) error {
	subscription, estimates := s.pipeline.Subscribe()
	defer s.teardown(subscription)

	s.logger.Info().Str("feed", s.feed.Name()).Msg("Session started")

	g, gctx := errgroup.WithContext(ctx)
	workCtx, finish := context.WithCancel(gctx)
	defer finish()

	out := make(chan models.Observation, s.buffer)

	g.Go(func() error {
		defer close(out)
		if err := s.feed.Start(gctx, out); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("feed %s: %w", s.feed.Name(), err)
		}
		return nil
	})

	g.Go(func() error {
		defer finish()
		s.consume(gctx, out)
		return nil
	})

	g.Go(func() error {
		s.forward(workCtx, estimates)
		return nil
	})

	if s.interval > 0 {
		g.Go(func() error {
			s.diagnostics.Run(workCtx, s.interval, s.logger)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Msg("Session failed")
		return err
	}
	return nil
}

// consume applies observations to the store until out is closed.
func (s *Session) consume(ctx context.Context, out <-chan models.Observation) {
	for observation := range out {
		if err := observation.Validate(); err != nil {
			s.logger.Warn().Err(err).Msg("Discarding observation")
			continue
		}

		s.store.Update(observation.AnchorID, observation.RSSI, observation.Timestamp)

		if s.observations != nil {
			if err := s.observations.HandleObservation(ctx, observation); err != nil {
				s.logger.Debug().Err(err).Msg("Failed to record observation")
			}
		}
	}
}

// forward hands estimates to the sink. On exit it delivers an estimate that
// is still pending so the last position of a finite feed is not lost.
func (s *Session) forward(ctx context.Context, estimates <-chan models.PositionEstimate) {
	for {
		select {
		case estimate, ok := <-estimates:
			if !ok {
				return
			}
			s.deliver(ctx, estimate)
		case <-ctx.Done():
			select {
			case estimate, ok := <-estimates:
				if ok {
					s.deliver(context.Background(), estimate)
				}
			default:
			}
			return
		}
	}
}

func (s *Session) deliver(ctx context.Context, estimate models.PositionEstimate) {
	if s.estimates == nil {
		return
	}
	if err := s.estimates.HandleEstimate(ctx, s.id, estimate); err != nil {
		s.logger.Warn().Err(err).Msg("Estimate not fully delivered")
	}
}

func (s *Session) teardown(subscription string) {
	if err := s.feed.Stop(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to stop feed")
	}
	s.pipeline.Unsubscribe(subscription)
	s.pipeline.Close()
	s.store.Close()

	s.logger.Info().
		Dur("uptime", time.Since(s.startedAt)).
		Uint64("dropped_updates", s.store.Dropped()).
		Msg("Session stopped")
}

// Status is the document served on /status.
type Status struct {
	SessionID string              `json:"session_id"`
	Feed      string              `json:"feed"`
	StartedAt time.Time           `json:"started_at"`
	Anchors   []AnchorStatus      `json:"anchors"`
	Estimate  *models.PositionDto `json:"estimate,omitempty"`
}

func (s *Session) Status() Status {
	status := Status{
		SessionID: s.id,
		Feed:      s.feed.Name(),
		StartedAt: s.startedAt,
		Anchors:   s.diagnostics.Report(),
	}
	if estimate, ok := s.pipeline.CurrentEstimate(); ok {
		dto := estimate.ToDto(s.id)
		status.Estimate = &dto
	}
	return status
}
