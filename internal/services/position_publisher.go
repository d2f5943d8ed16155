package services

import (
	"ble-linepos/internal/interfaces"
	"ble-linepos/internal/models"
	"context"
	"fmt"
)

// PositionPublisher publishes the display form of every estimate to
// <base>/v1/positions/<session>.
type PositionPublisher struct {
	client       interfaces.IMqClient
	topicManager interfaces.ITopicManager
}

func NewPositionPublisher(client interfaces.IMqClient, topicManager interfaces.ITopicManager) *PositionPublisher {
	return &PositionPublisher{
		client:       client,
		topicManager: topicManager,
	}
}

func (p *PositionPublisher) Name() string {
	return "mqtt"
}

func (p *PositionPublisher) HandleEstimate(ctx context.Context, sessionId string, estimate models.PositionEstimate) error {
	topic := p.topicManager.GetPositionTopic(sessionId)
	if err := p.client.PublishJson(topic, estimate.ToDto(sessionId)); err != nil {
		return fmt.Errorf("publishing estimate: %w", err)
	}
	return nil
}

var _ interfaces.IEstimateSink = (*PositionPublisher)(nil)
