package mq

import "time"

// Message is the envelope for every payload published on the broker.
type Message struct {
	Data   interface{} `json:"data"`
	Source string      `json:"source"`
}

type MessageOptions struct {
	Qos      byte          `json:"qos"`
	Retained bool          `json:"retained"`
	Timeout  time.Duration `json:"timeout"`
	Source   string        `json:"source"`
}

func DefaultMessageOptions() *MessageOptions {
	return &MessageOptions{
		Qos:      0,
		Retained: true,
		Timeout:  5 * time.Second,
		Source:   "LINEPOS",
	}
}
