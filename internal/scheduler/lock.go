package scheduler

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/logger"
	redisClient "github.com/rentpay/rentpay/internal/redis"
	"github.com/rentpay/rentpay/internal/types"
)

// RunLock keeps the daily run to one instance across replicas.
type RunLock interface {
	// Acquire takes key for ttl. When acquired is false another holder has it.
	// release must be called once the run ends.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context), acquired bool, err error)
}

// only the holder's token may delete the key
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisRunLock struct {
	client *redis.Client
	logger *logger.Logger
}

// NewRedisRunLock returns a RunLock backed by SET NX. It returns nil when no
// redis client is configured.
func NewRedisRunLock(client *redisClient.Client, log *logger.Logger) RunLock {
	if client == nil {
		return nil
	}
	return &redisRunLock{client: client.GetClient(), logger: log}
}

func (l *redisRunLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context), bool, error) {
	token := types.GenerateUUID()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, ierr.WithError(err).
			WithHint("Failed to acquire the run lock").
			WithReportableDetails(map[string]interface{}{"key": key}).
			Mark(ierr.ErrSystem)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			// the ttl frees the key eventually
			l.logger.Warnw("failed to release run lock", "key", key, "error", err)
		}
	}
	return release, true, nil
}
