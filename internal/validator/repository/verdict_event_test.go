package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"debugoj/internal/common/mq"
	"debugoj/internal/validator/model"
	appErr "debugoj/pkg/errors"
)

type fakeProducer struct {
	topic    string
	messages []*mq.Message
	err      error
}

func (f *fakeProducer) Publish(ctx context.Context, topic string, message *mq.Message) error {
	if f.err != nil {
		return f.err
	}
	f.topic = topic
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeProducer) Close() error { return nil }

func TestMQVerdictPublisher(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		verdict    model.Verdict
		wantStatus string
	}{
		{name: "correct", verdict: model.Verdict{IsCorrect: true, Method: model.MethodOutputMatch}, wantStatus: StatusSolved},
		{name: "wrong", verdict: model.Verdict{Method: model.MethodOutputMismatch}, wantStatus: StatusInProgress},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			producer := &fakeProducer{}
			pub := NewMQVerdictPublisher(producer, "")
			err := pub.PublishVerdict(context.Background(), VerdictEvent{
				QuestionID:       "py-1",
				Language:         model.LanguagePython,
				AttemptID:        "attempt-1",
				TimeSpentSeconds: 42,
				Verdict:          tt.verdict,
			})
			if err != nil {
				t.Fatalf("publish: %v", err)
			}
			if producer.topic != DefaultVerdictTopic {
				t.Fatalf("expected default topic, got %q", producer.topic)
			}
			if len(producer.messages) != 1 {
				t.Fatalf("expected one message, got %d", len(producer.messages))
			}
			msg := producer.messages[0]
			if msg.Key != "py-1" || msg.ID != "attempt-1" || msg.Headers["status"] != tt.wantStatus {
				t.Fatalf("unexpected message metadata %+v", msg)
			}
			var event VerdictEvent
			if err := json.Unmarshal(msg.Body, &event); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if event.Status != tt.wantStatus || event.TimeSpentSeconds != 42 || event.CreatedAt.IsZero() {
				t.Fatalf("unexpected event %+v", event)
			}
		})
	}
}

func TestMQVerdictPublisherErrors(t *testing.T) {
	t.Parallel()
	pub := NewMQVerdictPublisher(&fakeProducer{}, "custom")
	if err := pub.PublishVerdict(context.Background(), VerdictEvent{}); !appErr.Is(err, appErr.ValidationFailed) {
		t.Fatalf("expected validation error, got %v", err)
	}

	failing := NewMQVerdictPublisher(&fakeProducer{err: errors.New("broker down")}, "custom")
	if err := failing.PublishVerdict(context.Background(), VerdictEvent{QuestionID: "q"}); !appErr.Is(err, appErr.QueueError) {
		t.Fatalf("expected queue error, got %v", err)
	}

	if err := (NoopPublisher{}).PublishVerdict(context.Background(), VerdictEvent{}); err != nil {
		t.Fatalf("noop publisher returned %v", err)
	}
}
