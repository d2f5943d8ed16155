package mq

import (
	"ble-linepos/internal/config/components"
	"ble-linepos/internal/interfaces"
	"context"
	"encoding/json"
	"fmt"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"sync"
	"sync/atomic"
)

type Client struct {
	client    mqtt.Client
	config    components.MQTTConfigImpl
	logger    zerolog.Logger
	options   *MessageOptions
	connected atomic.Bool

	mu            sync.Mutex
	subscriptions map[string]mqtt.MessageHandler
}

func NewClient(cfg components.MQTTConfigImpl, logger zerolog.Logger) *Client {
	opts := mqtt.NewClientOptions()

	opts.AddBroker(cfg.GetUrl())
	opts.SetClientID(fmt.Sprintf("%s-%s", cfg.ClientID, uuid.NewString()[:8]))

	if cfg.Username != "" && cfg.Password != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetKeepAlive(cfg.KeepAlive)
	opts.SetAutoReconnect(cfg.AutoReconnect)
	opts.SetMaxReconnectInterval(cfg.MaxReconnectInterval)
	opts.SetCleanSession(cfg.CleanSession)
	opts.SetConnectTimeout(cfg.ConnectTimeout)

	options := DefaultMessageOptions()
	options.Qos = cfg.QoS
	options.Source = cfg.ClientID

	mqttClient := &Client{
		config:        cfg,
		logger:        logger,
		options:       options,
		subscriptions: make(map[string]mqtt.MessageHandler),
	}

	opts.SetOnConnectHandler(mqttClient.onConnect)
	opts.SetConnectionLostHandler(mqttClient.onConnectionLost)

	mqttClient.client = mqtt.NewClient(opts)

	return mqttClient
}

func (c *Client) Connect(ctx context.Context) error {
	token := c.client.Connect()

	select {
	case <-token.Done():
		if token.Error() != nil {
			return fmt.Errorf("error connecting to MQTT broker %s: %w", c.config.GetUrl(), token.Error())
		}
		c.connected.Store(true)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("connection to MQTT broker timed out: %w", ctx.Err())
	}
}

func (c *Client) Disconnect(ctx context.Context) {
	if !c.IsConnected() {
		c.logger.Warn().Msg("MQTT client is not connected, nothing to disconnect")
		return
	}

	c.client.Disconnect(250)
	c.connected.Store(false)

	select {
	case <-ctx.Done():
		c.logger.Warn().Msg("MQTT client disconnect timed out")
	default:
		c.logger.Info().Msg("MQTT client disconnected successfully")
	}
}

func (c *Client) Subscribe(topic string, handler mqtt.MessageHandler) error {
	if !c.client.IsConnected() {
		return fmt.Errorf("MQTT client is not connected, cannot subscribe to topic %s", topic)
	}

	token := c.client.Subscribe(topic, c.config.QoS, handler)
	token.Wait()

	if token.Error() != nil {
		return fmt.Errorf("error subscribing to topic %s: %w", topic, token.Error())
	}

	c.mu.Lock()
	c.subscriptions[topic] = handler
	c.mu.Unlock()

	c.logger.Info().Str("topic", topic).Msg("Added topic subscription")

	return nil
}

func (c *Client) Unsubscribe(topics ...string) error {
	c.mu.Lock()
	for _, topic := range topics {
		delete(c.subscriptions, topic)
	}
	c.mu.Unlock()

	if !c.client.IsConnected() {
		return nil
	}

	token := c.client.Unsubscribe(topics...)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("error unsubscribing from %v: %w", topics, token.Error())
	}

	c.logger.Info().Strs("topics", topics).Msg("Removed topic subscriptions")
	return nil
}

func (c *Client) PublishWithOptions(topic string, payload []byte, options *MessageOptions) error {
	if !c.IsConnected() {
		return fmt.Errorf("MQTT client is not connected")
	}

	token := c.client.Publish(topic, options.Qos, options.Retained, payload)
	token.WaitTimeout(options.Timeout)

	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}

	c.logger.Debug().
		Str("topic", topic).
		Int("payload_size", len(payload)).
		Msg("successfully published message")

	return nil
}

func (c *Client) PublishJson(topic string, data interface{}) error {
	payload, err := encodeMessage(data, c.options.Source)
	if err != nil {
		return err
	}

	return c.PublishWithOptions(topic, payload, c.options)
}

func encodeMessage(data interface{}, source string) ([]byte, error) {
	payload, err := json.Marshal(Message{Data: data, Source: source})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return payload, nil
}

func (c *Client) IsConnected() bool {
	return c.connected.Load() && c.client.IsConnected()
}

func (c *Client) onConnect(client mqtt.Client) {
	c.connected.Store(true)

	c.logger.Info().
		Str("broker", c.config.GetUrl()).
		Msg("Successfully connected to broker")

	if !c.config.CleanSession {
		return
	}

	// a clean session drops subscriptions on reconnect
	c.mu.Lock()
	defer c.mu.Unlock()
	for topic, handler := range c.subscriptions {
		if token := client.Subscribe(topic, c.config.QoS, handler); token.Wait() && token.Error() != nil {
			c.logger.Error().Err(token.Error()).Str("topic", topic).Msg("Failed to restore subscription")
		}
	}
}

func (c *Client) onConnectionLost(client mqtt.Client, err error) {
	c.connected.Store(false)
	c.logger.Warn().Err(err).Msg("lost connection to broker")
}

var _ interfaces.IMqClient = (*Client)(nil)
