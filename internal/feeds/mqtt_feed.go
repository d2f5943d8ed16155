package feeds

import (
	"ble-linepos/internal/interfaces"
	"ble-linepos/internal/models"
	"ble-linepos/internal/mq/handlers"
	"context"
	"errors"
	"fmt"
	"github.com/rs/zerolog"
	"sync"
)

var ErrFeedStopped = errors.New("feed stopped")

// MQTTFeed subscribes to the observation topic and forwards every decoded
// message.
type MQTTFeed struct {
	client       interfaces.IMqClient
	topicManager interfaces.ITopicManager
	logger       zerolog.Logger

	mu      sync.Mutex
	out     chan<- models.Observation
	ctx     context.Context
	stopped bool
	done    chan struct{}

	inflight sync.WaitGroup
}

func NewMQTTFeed(client interfaces.IMqClient, topicManager interfaces.ITopicManager, logger zerolog.Logger) *MQTTFeed {
	return &MQTTFeed{
		client:       client,
		topicManager: topicManager,
		logger:       logger.With().Str("feed", "mqtt").Logger(),
		done:         make(chan struct{}),
	}
}

func (f *MQTTFeed) Name() string {
	return "mqtt:" + f.topicManager.GetObservationTopic()
}

func (f *MQTTFeed) Start(ctx context.Context, out chan<- models.Observation) error {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return nil
	}
	f.out = out
	f.ctx = ctx
	f.mu.Unlock()

	handler := handlers.NewObservationHandler(f, f.logger, f.topicManager)
	topic := handler.Topic()

	if err := f.client.Subscribe(topic, handler.HandleMessage); err != nil {
		return fmt.Errorf("mqtt feed: %w", err)
	}
	f.logger.Info().Str("topic", topic).Msg("Feed started")

	// no handler may touch out once Start has returned
	defer func() {
		if err := f.client.Unsubscribe(topic); err != nil {
			f.logger.Warn().Err(err).Msg("Failed to unsubscribe")
		}
		_ = f.Stop()
		f.inflight.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.done:
		return nil
	}
}

// HandleObservation is called from the MQTT client goroutine.
func (f *MQTTFeed) HandleObservation(ctx context.Context, observation models.Observation) error {
	f.mu.Lock()
	if f.stopped || f.out == nil {
		f.mu.Unlock()
		return ErrFeedStopped
	}
	out, runCtx := f.out, f.ctx
	f.inflight.Add(1)
	f.mu.Unlock()
	defer f.inflight.Done()

	select {
	case out <- observation:
		return nil
	case <-f.done:
		return ErrFeedStopped
	case <-runCtx.Done():
		return runCtx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *MQTTFeed) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return nil
	}
	f.stopped = true
	close(f.done)
	return nil
}

var (
	_ interfaces.IFeed            = (*MQTTFeed)(nil)
	_ interfaces.IObservationSink = (*MQTTFeed)(nil)
)
