package interfaces

import (
	"ble-linepos/internal/models"
	"context"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type IMqClient interface {
	PublishJson(topic string, data interface{}) error
	Subscribe(topic string, handler mqtt.MessageHandler) error
	Unsubscribe(topics ...string) error
	Disconnect(ctx context.Context)
	Connect(ctx context.Context) error
	IsConnected() bool
}

type ITopicManager interface {
	GetBaseTopic() string
	GetObservationTopic() string
	GetPositionTopic(sessionId string) string
	ExtractIdFromTopic(topic, template string) (string, error)
	ExtractAnchorId(topic string) (string, error)
}

// IFeed produces observations until ctx is cancelled or Stop is called.
// Start blocks for the lifetime of the feed.
type IFeed interface {
	Name() string
	Start(ctx context.Context, out chan<- models.Observation) error
	Stop() error
}

// IEstimateSink receives every published position estimate.
type IEstimateSink interface {
	Name() string
	HandleEstimate(ctx context.Context, sessionId string, estimate models.PositionEstimate) error
}

type IObservationSink interface {
	HandleObservation(ctx context.Context, observation models.Observation) error
}
