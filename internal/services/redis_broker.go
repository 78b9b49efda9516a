package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"promptmatch-backend/internal/models"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	chatChannelPrefix  = "chat:match:"
	chatChannelPattern = chatChannelPrefix + "*"
)

// RedisBroker fans chat messages out across instances through Redis pub/sub. Messages
// received from Redis are relayed to the listeners of the local hub.
type RedisBroker struct {
	*Hub
	client *goredis.Client
	pubsub *goredis.PubSub
}

// NewRedisBroker creates a new Redis broker relaying into hub
func NewRedisBroker(client *goredis.Client, hub *Hub) *RedisBroker {
	return &RedisBroker{Hub: hub, client: client}
}

// Publish sends msg to every instance, this one included
func (b *RedisBroker) Publish(ctx context.Context, msg *models.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := b.client.Publish(ctx, chatChannelPrefix+msg.MatchID, data).Err(); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Subscribe subscribes to every match channel and returns once Redis confirmed it
func (b *RedisBroker) Subscribe(ctx context.Context) error {
	pubsub := b.client.PSubscribe(ctx, chatChannelPattern)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to chat channels: %w", err)
	}
	b.pubsub = pubsub
	return nil
}

// Relay forwards messages from Redis to the local hub until ctx is done. Subscribe must
// have succeeded first.
func (b *RedisBroker) Relay(ctx context.Context) error {
	if b.pubsub == nil {
		return fmt.Errorf("redis broker is not subscribed")
	}
	defer b.pubsub.Close()

	ch := b.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return fmt.Errorf("chat subscription closed")
			}

			var msg models.Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				log.Warn().Err(err).Str("channel", m.Channel).Msg("Dropping malformed chat message")
				continue
			}
			if msg.MatchID != strings.TrimPrefix(m.Channel, chatChannelPrefix) {
				log.Warn().Str("channel", m.Channel).Str("match_id", msg.MatchID).Msg("Dropping chat message for another channel")
				continue
			}
			_ = b.Hub.Publish(ctx, &msg)
		}
	}
}

// Ping checks the Redis connection
func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}
