package cache

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/logger"
	redisClient "github.com/rentpay/rentpay/internal/redis"
)

// DeleteRetryDelay specifies how long to wait before retrying a failed delete
const DeleteRetryDelay = 100 * time.Millisecond

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RedisCache implements Cache on Redis so every replica shares it.
type RedisCache struct {
	client *redis.Client
	log    *logger.Logger
}

func NewRedisCache(client *redisClient.Client, log *logger.Logger) *RedisCache {
	return &RedisCache{client: client.GetClient(), log: log}
}

func (c *RedisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	span := StartCacheSpan(ctx, "redis", "get", map[string]interface{}{"key": key})
	defer FinishSpan(span)

	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			SetSpanSuccess(span)
			return nil, false
		}
		SetSpanError(span, err)
		c.log.Errorw("redis GET error", "key", key, "error", err)
		return nil, false
	}
	SetSpanSuccess(span)
	return value, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) {
	strValue, ok := c.encode(key, value)
	if !ok {
		return
	}
	if err := c.client.Set(ctx, key, strValue, c.expiry(expiration)).Err(); err != nil {
		c.log.Errorw("redis SET error", "key", key, "error", err)
	}
}

func (c *RedisCache) SetIfAbsent(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	span := StartCacheSpan(ctx, "redis", "set_nx", map[string]interface{}{"key": key})
	defer FinishSpan(span)

	strValue, ok := c.encode(key, value)
	if !ok {
		return false, ierr.NewError("cache value not serializable").
			WithHint("Failed to encode cache value").
			Mark(ierr.ErrInternal)
	}
	stored, err := c.client.SetNX(ctx, key, strValue, c.expiry(expiration)).Result()
	if err != nil {
		SetSpanError(span, err)
		return false, ierr.WithError(err).
			WithHint("Cache is unavailable").
			Mark(ierr.ErrSystem)
	}
	SetSpanSuccess(span)
	return stored, nil
}

// Delete removes a key, retrying once on failure.
func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.Warnw("redis DELETE failed, retrying", "key", key, "error", err)

		retryCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		time.Sleep(DeleteRetryDelay)

		if retryErr := c.client.Del(retryCtx, key).Err(); retryErr != nil {
			c.log.Errorw("redis DELETE retry failed", "key", key, "error", retryErr)
		}
	}
}

func (c *RedisCache) Flush(ctx context.Context) {
	if err := c.client.FlushDB(ctx).Err(); err != nil {
		c.log.Errorw("redis FLUSHDB error", "error", err)
	}
}

func (c *RedisCache) expiry(expiration time.Duration) time.Duration {
	if expiration == 0 {
		return ExpiryDefaultRedis
	}
	return expiration
}

func (c *RedisCache) encode(key string, value interface{}) (string, bool) {
	if s, ok := value.(string); ok {
		return s, true
	}
	b, err := json.Marshal(value)
	if err != nil {
		c.log.Errorw("failed to marshal cache value", "key", key, "error", err)
		return "", false
	}
	return string(b), true
}
