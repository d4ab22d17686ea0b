package mq

import (
	"testing"
	"time"
)

func TestToKafkaMessageHeadersAndKey(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	msg := &Message{ID: "m-1", Body: []byte("{}"), Timestamp: ts}
	msg.SetHeader("event", "verdict")

	km := toKafkaMessage("validator.verdict", msg)
	if km.Topic != "validator.verdict" {
		t.Fatalf("unexpected topic %s", km.Topic)
	}
	if string(km.Key) != "m-1" {
		t.Fatalf("expected key to fall back to id, got %s", km.Key)
	}
	headers := map[string]string{}
	for _, h := range km.Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers["event"] != "verdict" || headers[headerID] != "m-1" {
		t.Fatalf("unexpected headers %+v", headers)
	}
	if headers[headerTimestamp] != ts.Format(time.RFC3339Nano) {
		t.Fatalf("unexpected timestamp header %s", headers[headerTimestamp])
	}

	msg.Key = "question-7"
	if km := toKafkaMessage("t", msg); string(km.Key) != "question-7" {
		t.Fatalf("expected explicit key, got %s", km.Key)
	}
}

func TestNewKafkaProducerRequiresBrokers(t *testing.T) {
	if _, err := NewKafkaProducer(KafkaConfig{}); err == nil {
		t.Fatalf("expected error without brokers")
	}
}
