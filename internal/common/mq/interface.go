package mq

import (
	"context"
	"time"
)

// Producer publishes messages to a topic. Publish blocks until the broker
// acknowledges unless the implementation is configured as async.
type Producer interface {
	Publish(ctx context.Context, topic string, message *Message) error
	Close() error
}

// Message is one event; verdict events use the attempt id as ID and the
// question id as Key so a question's history stays on one partition.
type Message struct {
	ID        string            `json:"id"`
	Key       string            `json:"key"` // partition key; falls back to ID
	Body      []byte            `json:"body"`
	Headers   map[string]string `json:"headers"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewMessage creates a new message with the given body
func NewMessage(body []byte) *Message {
	return &Message{
		Body:      body,
		Headers:   make(map[string]string),
		Timestamp: time.Now(),
	}
}

// SetHeader sets a header value
func (m *Message) SetHeader(key, value string) {
	if m.Headers == nil {
		m.Headers = make(map[string]string)
	}
	m.Headers[key] = value
}
