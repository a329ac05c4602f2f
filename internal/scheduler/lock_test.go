package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rentpay/rentpay/internal/logger"
	redisClient "github.com/rentpay/rentpay/internal/redis"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redisClient.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	opts := &redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())}
	rdb := redis.NewClient(opts)
	t.Cleanup(func() { _ = rdb.Close() })
	return redisClient.NewClientFromRedis(rdb, opts, logger.NewNopLogger())
}

func TestRedisRunLock(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis run lock test in short mode")
	}
	client := startRedis(t)
	lock := NewRedisRunLock(client, logger.NewNopLogger())
	ctx := context.Background()

	release, acquired, err := lock.Acquire(ctx, "test:run", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	_, acquired, err = lock.Acquire(ctx, "test:run", time.Minute)
	require.NoError(t, err)
	require.False(t, acquired, "second holder must be refused")

	release(ctx)

	release2, acquired, err := lock.Acquire(ctx, "test:run", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	// a stale release must not drop the new holder's key
	release(ctx)
	_, acquired, err = lock.Acquire(ctx, "test:run", time.Minute)
	require.NoError(t, err)
	require.False(t, acquired)

	release2(ctx)
}

func TestRedisRunLock_Expires(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis run lock test in short mode")
	}
	lock := NewRedisRunLock(startRedis(t), logger.NewNopLogger())
	ctx := context.Background()

	_, acquired, err := lock.Acquire(ctx, "test:ttl", 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, acquired)

	require.Eventually(t, func() bool {
		_, ok, err := lock.Acquire(ctx, "test:ttl", time.Minute)
		return err == nil && ok
	}, 5*time.Second, 100*time.Millisecond)
}

func TestNewRedisRunLock_NilClient(t *testing.T) {
	require.Nil(t, NewRedisRunLock(nil, logger.NewNopLogger()))
}
