package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisPublisher publishes messages on a Redis channel so every instance's relay can deliver them.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher constructs a publisher bound to channel.
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

// Publish encodes msg as JSON and publishes it.
func (p *RedisPublisher) Publish(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal realtime message: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.channel, err)
	}
	return nil
}

// Relay subscribes to channel and forwards every message into the local hub until ctx is done.
func Relay(ctx context.Context, client *redis.Client, channel string, hub *Hub, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	pubsub := client.Subscribe(ctx, channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", channel, err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-ch:
			if !ok {
				return nil
			}
			msg, err := DecodeMessage([]byte(raw.Payload))
			if err != nil {
				logger.Warn("discarding malformed realtime message", zap.String("channel", channel), zap.Error(err))
				continue
			}
			if err := hub.Publish(ctx, msg); err != nil {
				return err
			}
		}
	}
}

// DecodeMessage parses a message published by RedisPublisher.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, fmt.Errorf("decode realtime message: %w", err)
	}
	if msg.Event == "" {
		return Message{}, fmt.Errorf("decode realtime message: missing event")
	}
	return msg, nil
}
