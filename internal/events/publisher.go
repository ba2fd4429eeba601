package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"coderoom/internal/models"
)

// Publisher emits room lifecycle notifications for external observers.
type Publisher interface {
	Publish(ctx context.Context, event models.RoomEvent) error
	Close() error
}

type nopPublisher struct{}

// NewNopPublisher is used when no Redis address is configured.
func NewNopPublisher() Publisher { return nopPublisher{} }

func (nopPublisher) Publish(context.Context, models.RoomEvent) error { return nil }
func (nopPublisher) Close() error { return nil }

type RedisPublisher struct {
	rdb     *redis.Client
	channel string
	now     func() time.Time
}

func NewRedisPublisher(redisAddr, channel string) *RedisPublisher {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})
	return &RedisPublisher{rdb: rdb, channel: channel, now: time.Now}
}

// Ping verifies connectivity at start-up.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	if err := p.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("events: redis ping: %w", err)
	}
	return nil
}

func (p *RedisPublisher) Publish(ctx context.Context, event models.RoomEvent) error {
	if event.At.IsZero() {
		event.At = p.now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", event.Type, err)
	}
	if err := p.rdb.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("events: publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *RedisPublisher) Close() error { return p.rdb.Close() }
