package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"campusbook/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	syncEventCleared = "cleared"
)

type syncEvent struct {
	Type   string    `json:"type"`
	Source string    `json:"source"`
	At     time.Time `json:"at"`
}

// RedisSync propagates session clears between agents that share a Redis
// session store. Each instance ignores its own events.
type RedisSync struct {
	client     *redis.Client
	channel    string
	instanceID string
	log        *logger.Logger
}

func NewRedisSync(client *redis.Client, channel string, log *logger.Logger) *RedisSync {
	return &RedisSync{
		client:     client,
		channel:    channel,
		instanceID: uuid.NewString(),
		log:        log,
	}
}

func (s *RedisSync) InstanceID() string {
	return s.instanceID
}

func (s *RedisSync) BroadcastClear(ctx context.Context) error {
	data, err := json.Marshal(syncEvent{
		Type:   syncEventCleared,
		Source: s.instanceID,
		At:     time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode sync event: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish sync event: %w", err)
	}
	return nil
}

// Watch blocks until ctx is done, calling onCleared for every clear
// published by another instance.
func (s *RedisSync) Watch(ctx context.Context, onCleared func(ctx context.Context) error) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}
	s.log.Info("Session sync listening", "channel", s.channel, "instance_id", s.instanceID)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.dispatch(ctx, msg.Payload, onCleared)
		}
	}
}

func (s *RedisSync) dispatch(ctx context.Context, payload string, onCleared func(ctx context.Context) error) {
	var event syncEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		s.log.Warn("Ignoring malformed sync event", "error", err)
		return
	}
	if event.Source == s.instanceID || event.Type != syncEventCleared {
		return
	}
	if err := onCleared(ctx); err != nil && !isSessionEnd(err) {
		s.log.Error("Failed to apply external session clear", "error", err, "source", event.Source)
	}
}
