// Package events publishes domain events. Publishing is best effort: callers
// log failures and carry on, the write that triggered the event is already
// durable.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// AssessmentSubmittedType is the event type of AssessmentSubmitted.
const AssessmentSubmittedType = "assessment.submitted"

// AssessmentSubmitted is emitted after a submission has been stored. It
// carries identifiers and the score only, no patient demographics.
type AssessmentSubmitted struct {
	Type         string    `json:"type"`
	AssessmentID string    `json:"assessment_id"`
	PatientID    string    `json:"patient_id"`
	HospitalID   string    `json:"hospital_id,omitempty"`
	RiskScore    int       `json:"risk_score"`
	RiskLevel    string    `json:"risk_level"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// Publisher sends events.
type Publisher interface {
	PublishAssessmentSubmitted(ctx context.Context, evt AssessmentSubmitted) error
	Close() error
}

// messageWriter is the subset of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic keyed by patient id, so the
// events of one patient stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher creates a publisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}}
}

func (p *KafkaPublisher) PublishAssessmentSubmitted(ctx context.Context, evt AssessmentSubmitted) error {
	evt.Type = AssessmentSubmittedType
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", evt.Type, err)
	}
	msg := kafka.Message{
		Key:   []byte(evt.PatientID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(evt.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event: %w", evt.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event. It is used when KAFKA_BROKERS is unset.
type NopPublisher struct{}

func (NopPublisher) PublishAssessmentSubmitted(context.Context, AssessmentSubmitted) error {
	return nil
}

func (NopPublisher) Close() error { return nil }
