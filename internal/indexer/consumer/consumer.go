// Package consumer listens for "options changed" signals from Kafka, Redis
// pub/sub and the catalog file, and invalidates the index engine on each.
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/kafka"
)

// Invalidator is the part of the index engine the listeners drive.
type Invalidator interface {
	Invalidate(source string)
}

// ChangeEvent is the payload published on the change topic and channel.
type ChangeEvent struct {
	Origin string    `json:"origin"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

// Encode marshals the event for the wire.
func (e ChangeEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// InvalidationConsumer wraps a Kafka consumer on the change topic.
type InvalidationConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates an InvalidationConsumer backed by the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *InvalidationConsumer {
	return &InvalidationConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "invalidation-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (ic *InvalidationConsumer) Start(ctx context.Context) error {
	ic.logger.Info("invalidation consumer starting")
	return ic.consumer.Start(ctx)
}

// HandleMessage returns a Kafka MessageHandler that invalidates inv for every
// message. Any message on the topic signals a change, so undecodable values
// still invalidate.
func HandleMessage(inv Invalidator) kafka.MessageHandler {
	logger := slog.Default().With("component", "invalidation-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ChangeEvent](value)
		if err != nil {
			logger.Warn("undecodable change event",
				"error", err,
				"key", string(key),
			)
		}
		logger.Debug("change event received",
			"origin", event.Origin,
			"reason", event.Reason,
		)
		inv.Invalidate("kafka")
		return nil
	}
}
