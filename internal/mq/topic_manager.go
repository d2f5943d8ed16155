package mq

import (
	"ble-linepos/internal/interfaces"
	"fmt"
	"github.com/rs/zerolog"
	"regexp"
	"strings"
)

type TopicManager struct {
	BaseTopic string
	logger    zerolog.Logger
}

func NewTopicManager(baseTopic string, logger zerolog.Logger) *TopicManager {
	return &TopicManager{
		BaseTopic: strings.TrimSuffix(baseTopic, "/"),
		logger:    logger,
	}
}

const (
	ObservationTopicTemplate = "%s/v1/observations/+"
	PositionTopicTemplate    = "%s/v1/positions/%s"
)

func (m *TopicManager) GetObservationTopic() string {
	return fmt.Sprintf(ObservationTopicTemplate, m.BaseTopic)
}

func (m *TopicManager) GetPositionTopic(sessionId string) string {
	return fmt.Sprintf(PositionTopicTemplate, m.BaseTopic, sessionId)
}

func (m *TopicManager) buildTopicRegex(template string) *regexp.Regexp {
	pattern := strings.Replace(template, "%s", regexp.QuoteMeta(m.BaseTopic), 1)
	pattern = strings.ReplaceAll(pattern, "+", "([^/]+)")
	pattern = strings.ReplaceAll(pattern, "%s", "([^/]+)")
	pattern = "^" + pattern + "$"

	return regexp.MustCompile(pattern)
}

func (m *TopicManager) ExtractIdFromTopic(topic, template string) (string, error) {
	regex := m.buildTopicRegex(template)
	matches := regex.FindStringSubmatch(topic)

	if len(matches) < 2 {
		return "", fmt.Errorf("could not extract ID from topic: %s", topic)
	}

	return matches[1], nil
}

// ExtractAnchorId returns the last level of an observation topic. Anchor
// addresses are published with ':' kept, e.g. base/v1/observations/2D:7E:1A:02:3D:21.
func (m *TopicManager) ExtractAnchorId(topic string) (string, error) {
	return m.ExtractIdFromTopic(topic, ObservationTopicTemplate)
}

func (m *TopicManager) GetBaseTopic() string {
	return m.BaseTopic
}

var _ interfaces.ITopicManager = (*TopicManager)(nil)
