// Package events publishes report status changes to subscribers outside
// the server.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/citizenwatch/roadwatch-server/internal/models"
)

// StatusChannel is the Redis channel status changes are published on.
const StatusChannel = "reports:status"

//go:generate mockgen -source=events.go -destination=mocks/mock_events.go -package=mocks

// Publisher announces applied status changes.
type Publisher interface {
	PublishStatusChanged(ctx context.Context, change models.StatusChange) error
	Close() error
}

// RedisPublisher publishes status changes as JSON on StatusChannel.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher connects to redisURL and verifies the connection.
func NewRedisPublisher(ctx context.Context, redisURL string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisPublisher{client: client}, nil
}

func (p *RedisPublisher) PublishStatusChanged(ctx context.Context, change models.StatusChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.client.Publish(ctx, StatusChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis: %w", err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Nop discards every event. It is used when no Redis URL is configured.
type Nop struct{}

func (Nop) PublishStatusChanged(context.Context, models.StatusChange) error { return nil }

func (Nop) Close() error { return nil }
