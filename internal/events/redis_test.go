//go:build integration

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/citizenwatch/roadwatch-server/internal/models"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestRedisPublisher_PublishStatusChanged(t *testing.T) {
	url := startRedis(t)
	ctx := context.Background()

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	sub := redis.NewClient(opts)
	defer sub.Close()

	pubsub := sub.Subscribe(ctx, StatusChannel)
	defer pubsub.Close()
	_, err = pubsub.Receive(ctx)
	require.NoError(t, err)

	pub, err := NewRedisPublisher(ctx, url)
	require.NoError(t, err)
	defer pub.Close()

	change := models.StatusChange{
		ReportID:  "r1",
		From:      models.StatusReported,
		To:        models.StatusInProgress,
		ChangedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, pub.PublishStatusChanged(ctx, change))

	select {
	case msg := <-pubsub.Channel():
		var got models.StatusChange
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, change, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}
}

func TestNewRedisPublisher_BadURL(t *testing.T) {
	_, err := NewRedisPublisher(context.Background(), "not a url")
	assert.Error(t, err)
}
