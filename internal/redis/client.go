package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rentpay/rentpay/internal/config"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/logger"
)

// Client wraps Redis client functionality
type Client struct {
	rdb  *redis.Client
	log  *logger.Logger
	opts *redis.Options
}

// Options builds go-redis options from the redis config section.
func Options(cfg config.RedisConfig) *redis.Options {
	opts := &redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		PoolSize:     cfg.PoolSize,
	}
	if cfg.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

// NewClient creates a new Redis client and checks the connection.
func NewClient(cfg *config.Configuration, log *logger.Logger) (*Client, error) {
	opts := Options(cfg.Redis)
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, ierr.WithError(err).
			WithHint("Failed to connect to Redis").
			WithReportableDetails(map[string]interface{}{"addr": opts.Addr}).
			Mark(ierr.ErrSystem)
	}

	log.Infow("connected to redis", "addr", opts.Addr, "db", opts.DB)

	return NewClientFromRedis(rdb, opts, log), nil
}

// NewClientFromRedis wraps an existing go-redis client.
func NewClientFromRedis(rdb *redis.Client, opts *redis.Options, log *logger.Logger) *Client {
	return &Client{rdb: rdb, log: log, opts: opts}
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis client connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the connection and reconnects once when it is broken.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.rdb.Ping(ctx).Result(); err != nil {
		c.log.Warnw("redis ping failed, reconnecting", "error", err)
		return c.reconnect(ctx)
	}
	return nil
}

func (c *Client) reconnect(ctx context.Context) error {
	if err := c.rdb.Close(); err != nil {
		c.log.Errorw("failed to close existing redis connection", "error", err)
	}

	c.rdb = redis.NewClient(c.opts)

	if _, err := c.rdb.Ping(ctx).Result(); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to reconnect to Redis").
			Mark(ierr.ErrSystem)
	}

	c.log.Infow("reconnected to redis")
	return nil
}
