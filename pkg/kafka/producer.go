package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/config"
)

// Producer writes option change events to the options-changed topic, where
// every running options service picks them up and drops its index.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewProducer creates a Producer for topic. Writes wait for a single broker
// ack: a lost change event only delays a rebuild until the next one.
func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            3,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &Producer{
		writer: w,
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

// Publish writes value as JSON under key. Events sharing a key, such as
// those from one origin, land on the same partition in order.
func (p *Producer) Publish(ctx context.Context, key string, value any) error {
	msg, err := encodeMessage(key, value, time.Now())
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish change event", "key", key, "error", err)
		return fmt.Errorf("publishing to kafka: %w", err)
	}
	p.logger.Debug("change event published", "key", key, "value_size", len(msg.Value))
	return nil
}

func encodeMessage(key string, value any, at time.Time) (kafka.Message, error) {
	body, err := json.Marshal(value)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encoding change event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: body,
		Time:  at,
	}, nil
}

// Close flushes pending writes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
