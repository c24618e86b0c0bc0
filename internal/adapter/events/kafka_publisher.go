// Package events publishes verification log events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"github.com/V4T54L/kyb-watch/internal/domain"
)

const eventLogCreated = "log_created"

// messageWriter is the subset of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// LogCreatedEvent is the message value written for every new record.
type LogCreatedEvent struct {
	Event       string           `json:"event"`
	PublishedAt time.Time        `json:"published_at"`
	Log         domain.LogRecord `json:"log"`
}

// KafkaPublisher writes log events to a topic, keyed by business URL so all
// events for one business stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
	logger *slog.Logger
	now    func() time.Time
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return newKafkaPublisher(w, logger)
}

func newKafkaPublisher(w messageWriter, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: w,
		logger: logger.With("component", "kafka_publisher"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// PublishLogCreated writes one log_created event for rec.
func (p *KafkaPublisher) PublishLogCreated(ctx context.Context, rec domain.LogRecord) error {
	ctx, span := otel.Tracer("log-events").Start(ctx, "PublishLogCreated")
	defer span.End()

	value, err := json.Marshal(LogCreatedEvent{
		Event:       eventLogCreated,
		PublishedAt: p.now(),
		Log:         rec,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal log event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(rec.BusinessURL),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(eventLogCreated)},
			{Key: "log_type", Value: []byte(rec.LogType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish log event: %w", err)
	}
	p.logger.Debug("published log event", "log_id", rec.ID, "event", eventLogCreated)
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
