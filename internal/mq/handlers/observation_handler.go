package handlers

import (
	"ble-linepos/internal/interfaces"
	"ble-linepos/internal/models"
	"ble-linepos/internal/mq/messages"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"time"
)

type ObservationHandler struct {
	sink         interfaces.IObservationSink
	logger       zerolog.Logger
	handlerTopic string
	topicManager interfaces.ITopicManager
	now          func() time.Time
}

func NewObservationHandler(
	sink interfaces.IObservationSink,
	logger zerolog.Logger,
	topicManager interfaces.ITopicManager,
) *ObservationHandler {
	return &ObservationHandler{
		sink:         sink,
		logger:       logger,
		handlerTopic: topicManager.GetObservationTopic(),
		topicManager: topicManager,
		now:          time.Now,
	}
}

func (h *ObservationHandler) Topic() string {
	return h.handlerTopic
}

func (h *ObservationHandler) TransformMessage(msg mqtt.Message) (*models.Observation, error) {
	if msg == nil {
		return nil, fmt.Errorf("received nil message: %w", ErrMessageIsNil)
	}

	topic := msg.Topic()
	payload := msg.Payload()

	if len(payload) == 0 {
		return nil, ErrEmptyMessage
	}

	var observationMessage messages.ObservationMessage
	if err := json.Unmarshal(payload, &observationMessage); err != nil {
		return nil, fmt.Errorf("could not parse observation data: %v: %w", err, ErrInvalidMessage)
	}

	if observationMessage.Data.Address == "" {
		anchorID, err := h.topicManager.ExtractAnchorId(topic)
		if err != nil {
			return nil, fmt.Errorf("could not extract anchor address from topic %s: %w", topic, ErrInvalidMessage)
		}
		observationMessage.Data.Address = anchorID
	}

	if err := observationMessage.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidMessage)
	}

	if observationMessage.Data.Timestamp.IsZero() {
		observationMessage.Data.Timestamp = h.now()
	}

	observation := observationMessage.Data.ToModel()
	return &observation, nil
}

func (h *ObservationHandler) HandleMessage(client mqtt.Client, msg mqtt.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	topic := msg.Topic()

	observation, err := h.TransformMessage(msg)
	if err != nil {
		if errors.Is(err, ErrEmptyMessage) {
			return
		}

		h.logger.Error().Err(err).
			Str("message", string(msg.Payload())).
			Str("topic", topic).
			Msg("Failed to transform observation message")
		return
	}

	if err := h.sink.HandleObservation(ctx, *observation); err != nil {
		h.logger.Warn().Err(err).
			Str("topic", topic).
			Str("anchor_id", observation.AnchorID.String()).
			Msg("Failed to hand off observation")
		return
	}

	h.logger.Trace().
		Str("anchor_id", observation.AnchorID.String()).
		Int("rssi", observation.RSSI).
		Msg("Observation received")
}
