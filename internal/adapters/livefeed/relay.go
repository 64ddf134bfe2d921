package livefeed

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
)

// DefaultChannel is the Redis pub/sub channel shared by API replicas.
const DefaultChannel = "rsvp:activity"

// RedisRelay publishes activity to a Redis channel and forwards everything received on
// that channel to the local hub, so dashboards see events recorded by any replica.
type RedisRelay struct {
	rdb     redis.UniversalClient
	channel string
	hub     *Hub
	log     zerolog.Logger
}

func NewRedisRelay(rdb redis.UniversalClient, channel string, hub *Hub, l zerolog.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisRelay{rdb: rdb, channel: channel, hub: hub, log: l.With().Str("component", "livefeed.relay").Logger()}
}

// Publish implements activityfeed.Publisher. Redis failures fall back to the local hub.
func (r *RedisRelay) Publish(e domain.ActivityEvent) {
	b, err := json.Marshal(messageFromEvent(e))
	if err != nil {
		r.log.Error().Err(err).Msg("marshal activity")
		return
	}
	if err := r.rdb.Publish(context.Background(), r.channel, b).Err(); err != nil {
		r.log.Warn().Err(err).Msg("redis publish failed; delivering locally")
		r.hub.broadcast(b)
	}
}

// Run forwards channel messages to the hub until ctx is done. ready, if non-nil, is closed
// once the subscription is confirmed.
func (r *RedisRelay) Run(ctx context.Context, ready chan<- struct{}) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	if ready != nil {
		close(ready)
	}
	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			r.hub.broadcast([]byte(m.Payload))
		}
	}
}
