package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cursolab/campus-backend/internal/config"
	"github.com/cursolab/campus-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const publishTimeout = 2 * time.Second

// RedisBus shares changes between server instances through a Redis Pub/Sub
// channel. Subscribers run on the goroutine started by Start, so delivery is
// asynchronous with respect to Publish.
type RedisBus struct {
	rdb     *redis.Client
	channel string
	local   *LocalBus
	log     zerolog.Logger
}

// NewRedisBus creates a bus on the shared changes channel.
func NewRedisBus(rdb *redis.Client, log zerolog.Logger) *RedisBus {
	return &RedisBus{
		rdb:     rdb,
		channel: config.ChannelKey.ChangesChannel(),
		local:   NewLocalBus(),
		log:     log.With().Str("component", "redis_bus").Logger(),
	}
}

// Publish sends the change to Redis. If Redis refuses it the change is still
// delivered to this instance's subscribers.
func (b *RedisBus) Publish(ctx context.Context, change model.Change) {
	data, err := json.Marshal(change)
	if err != nil {
		b.log.Error().Err(err).Msg("Failed to encode change")
		b.local.dispatch(change)
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := b.rdb.Publish(pubCtx, b.channel, data).Err(); err != nil {
		b.log.Warn().Err(err).
			Str("entity", string(change.Entity)).
			Msg("Redis publish failed, delivering locally")
		b.local.dispatch(change)
	}
}

func (b *RedisBus) Subscribe(h Handler) func() {
	return b.local.Subscribe(h)
}

// Start listens on the channel until ctx is cancelled.
func (b *RedisBus) Start(ctx context.Context) {
	pubsub := b.rdb.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	b.log.Info().Str("channel", b.channel).Msg("Listening for changes")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.log.Info().Msg("Change listener stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var change model.Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				b.log.Error().Err(err).Str("data", msg.Payload).Msg("Discarding malformed change")
				continue
			}
			b.local.dispatch(change)
		}
	}
}
