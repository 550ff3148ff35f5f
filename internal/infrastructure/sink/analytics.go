package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/99minutos/geofence-system/internal/core/domain"
)

const defaultTopic = "geofence.transitions"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AnalyticsSink publishes every transition to a Kafka topic, keyed by the
// tracking key so one entity's events land on one partition in order.
type AnalyticsSink struct {
	writer messageWriter
	topic  string
}

// NewAnalyticsSink returns a sink that is disabled when brokers is empty.
// Call Close when shutting down.
func NewAnalyticsSink(brokers []string, topic string) *AnalyticsSink {
	if topic == "" {
		topic = defaultTopic
	}
	s := &AnalyticsSink{topic: topic}
	if len(brokers) == 0 {
		return s
	}
	s.writer = &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return s
}

func (s *AnalyticsSink) Name() string  { return "analytics" }
func (s *AnalyticsSink) Enabled() bool { return s.writer != nil }

func (s *AnalyticsSink) OnEnter(ctx context.Context, e domain.TransitionEvent) error {
	return s.publish(ctx, e)
}

func (s *AnalyticsSink) OnExit(ctx context.Context, e domain.TransitionEvent) error {
	return s.publish(ctx, e)
}

func (s *AnalyticsSink) publish(ctx context.Context, e domain.TransitionEvent) error {
	if s.writer == nil {
		return nil
	}
	payload, err := json.Marshal(newEventPayload(e))
	if err != nil {
		return fmt.Errorf("analytics: encode event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(e.Key.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Kind)},
			{Key: "namespace", Value: []byte(e.Key.Namespace)},
		},
		Time: e.Timestamp,
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("analytics: write %s: %w", s.topic, err)
	}
	return nil
}

// Close flushes and closes the Kafka writer. Safe to call on a disabled sink.
func (s *AnalyticsSink) Close() error {
	if s.writer == nil {
		return nil
	}
	return s.writer.Close()
}
