package cache

import (
	"github.com/rentpay/rentpay/internal/config"
	"github.com/rentpay/rentpay/internal/logger"
	redisClient "github.com/rentpay/rentpay/internal/redis"
)

// CacheType represents the type of cache to use
type CacheType string

const (
	CacheTypeInMemory CacheType = "inmemory"
	CacheTypeRedis    CacheType = "redis"
)

// NewCache picks the backend from config. Redis is used only when a client
// is available; otherwise the cache falls back to memory.
func NewCache(cfg *config.Configuration, log *logger.Logger, client *redisClient.Client) Cache {
	if CacheType(cfg.Cache.Type) == CacheTypeRedis {
		if client != nil {
			log.Infow("cache initialized", "type", CacheTypeRedis)
			return NewRedisCache(client, log)
		}
		log.Warnw("redis cache requested without a redis client, using memory")
	}
	log.Infow("cache initialized", "type", CacheTypeInMemory)
	return NewInMemoryCache()
}
