// Package repository publishes verdict events for the progress tracker.
package repository

import (
	"context"
	"encoding/json"
	"time"

	"debugoj/internal/common/mq"
	"debugoj/internal/validator/model"
	appErr "debugoj/pkg/errors"
)

// DefaultVerdictTopic carries one event per graded attempt.
const DefaultVerdictTopic = "validator.verdict"

const (
	StatusSolved     = "solved"
	StatusInProgress = "in_progress"
)

// VerdictEvent is the progress update derived from one verdict.
type VerdictEvent struct {
	QuestionID       string         `json:"question_id"`
	Language         model.Language `json:"language"`
	Status           string         `json:"status"`
	AttemptID        string         `json:"attempt_id"`
	UserID           string         `json:"user_id,omitempty"`
	TimeSpentSeconds int            `json:"time_spent_seconds"`
	Verdict          model.Verdict  `json:"verdict"`
	CreatedAt        time.Time      `json:"created_at"`
}

// StatusFor maps a verdict to the progress status it implies.
func StatusFor(v model.Verdict) string {
	if v.IsCorrect {
		return StatusSolved
	}
	return StatusInProgress
}

// VerdictPublisher emits verdict events.
type VerdictPublisher interface {
	PublishVerdict(ctx context.Context, event VerdictEvent) error
}

// MQVerdictPublisher writes events to a message queue keyed by question id.
type MQVerdictPublisher struct {
	producer mq.Producer
	topic    string
}

func NewMQVerdictPublisher(producer mq.Producer, topic string) *MQVerdictPublisher {
	if topic == "" {
		topic = DefaultVerdictTopic
	}
	return &MQVerdictPublisher{producer: producer, topic: topic}
}

func (p *MQVerdictPublisher) PublishVerdict(ctx context.Context, event VerdictEvent) error {
	if p == nil || p.producer == nil {
		return nil
	}
	if event.QuestionID == "" {
		return appErr.ValidationError("question_id", "required")
	}
	if event.Status == "" {
		event.Status = StatusFor(event.Verdict)
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return appErr.Wrapf(err, appErr.QueueError, "encode verdict event failed")
	}
	msg := mq.NewMessage(body)
	msg.ID = event.AttemptID
	msg.Key = event.QuestionID
	msg.SetHeader("status", event.Status)
	if err := p.producer.Publish(ctx, p.topic, msg); err != nil {
		return appErr.Wrapf(err, appErr.QueueError, "publish verdict event failed")
	}
	return nil
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) PublishVerdict(context.Context, VerdictEvent) error { return nil }
