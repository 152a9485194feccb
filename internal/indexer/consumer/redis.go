package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
)

// RedisListener invalidates on every message of a subscribed channel.
type RedisListener struct {
	messages <-chan *goredis.Message
	inv      Invalidator
	logger   *slog.Logger
}

func NewRedisListener(messages <-chan *goredis.Message, inv Invalidator) *RedisListener {
	return &RedisListener{
		messages: messages,
		inv:      inv,
		logger:   slog.Default().With("component", "redis-listener"),
	}
}

// Start blocks until ctx is cancelled or the subscription closes.
func (l *RedisListener) Start(ctx context.Context) error {
	l.logger.Info("redis listener started")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("redis listener stopping", "reason", ctx.Err())
			return nil
		case msg, ok := <-l.messages:
			if !ok {
				l.logger.Warn("subscription closed")
				return nil
			}
			var event ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				l.logger.Warn("undecodable change event", "channel", msg.Channel, "error", err)
			}
			l.logger.Debug("change event received",
				"channel", msg.Channel,
				"origin", event.Origin,
				"reason", event.Reason,
			)
			l.inv.Invalidate("redis")
		}
	}
}
