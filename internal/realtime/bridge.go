package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const eventsChannel = "gharkhoj:events"

// Publisher is what handlers depend on to emit change events. The Redis
// bridge is the production implementation; tests use an in-process fake.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Bridge fans events out through Redis pub/sub. Every instance publishes
// to one channel and every instance subscribes to it, so a message sent
// through any server reaches subscribers connected to all of them. Local
// delivery also goes through Redis: the sender's own thread view receives
// the insert as the realtime echo, same as everyone else.
type Bridge struct {
	rdb    *redis.Client
	hub    *Hub
	logger *zap.Logger
}

func NewBridge(redisURL string, hub *Hub, logger *zap.Logger) (*Bridge, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Bridge{rdb: rdb, hub: hub, logger: logger}, nil
}

func (b *Bridge) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.rdb.Publish(ctx, eventsChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Run consumes the Redis channel and delivers each event to the local
// hub's topics. Blocks until ctx is cancelled; run it in its own
// goroutine from main.
func (b *Bridge) Run(ctx context.Context) error {
	pubsub := b.rdb.Subscribe(ctx, eventsChannel)
	defer pubsub.Close()

	// Wait for the subscription to be live before reporting ready.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	ch := pubsub.Channel()
	b.logger.Info("realtime bridge running", zap.String("channel", eventsChannel))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.logger.Warn("dropping malformed event", zap.Error(err))
				continue
			}
			for _, topic := range ev.Topics {
				b.hub.Publish(topic, ev)
			}
		}
	}
}

func (b *Bridge) Close() error {
	return b.rdb.Close()
}
