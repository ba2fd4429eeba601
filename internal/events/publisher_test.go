package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coderoom/internal/models"
)

func setupPublisher(t *testing.T) (*RedisPublisher, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	pub := NewRedisPublisher(mr.Addr(), "coderoom:events")
	t.Cleanup(func() { _ = pub.Close() })
	return pub, mr
}

func TestRedisPublisherPublishes(t *testing.T) {
	pub, mr := setupPublisher(t)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	pub.now = func() time.Time { return fixed }

	sub := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer sub.Close()
	ps := sub.Subscribe(context.Background(), "coderoom:events")
	defer ps.Close()
	_, err := ps.Receive(context.Background())
	require.NoError(t, err)

	require.NoError(t, pub.Ping(context.Background()))
	require.NoError(t, pub.Publish(context.Background(), models.RoomEvent{
		Type:      models.UserJoined,
		RoomID:    "room1",
		Username:  "alice",
		UserCount: 1,
	}))

	select {
	case msg := <-ps.Channel():
		var got models.RoomEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, models.UserJoined, got.Type)
		assert.Equal(t, "room1", got.RoomID)
		assert.Equal(t, "alice", got.Username)
		assert.True(t, got.At.Equal(fixed))
	case <-time.After(2 * time.Second):
		t.Fatal("expected published event")
	}
}

func TestRedisPublisherErrorsWhenUnavailable(t *testing.T) {
	pub, mr := setupPublisher(t)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, pub.Ping(ctx))
	assert.Error(t, pub.Publish(ctx, models.RoomEvent{Type: models.RoomClosed, RoomID: "r"}))
}

func TestNopPublisher(t *testing.T) {
	pub := NewNopPublisher()
	assert.NoError(t, pub.Publish(context.Background(), models.RoomEvent{Type: models.RoomCreated}))
	assert.NoError(t, pub.Close())
}
