// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"freeplaces-workers/internal/common/config"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 3 * time.Second

// RedisClient owns the connection backing the run journal.
type RedisClient struct {
	Client *redis.Client
}

// NewRedis accepts either host:port or a redis:// (rediss://) URL. An
// explicit password or DB in cfg wins over the URL.
func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	// one writer per job plus the odd batch-runner read
	opts.PoolSize = 4
	opts.MinIdleConns = 1

	return &RedisClient{Client: redis.NewClient(opts)}, nil
}

func redisOptions(cfg config.RedisConfig) (*redis.Options, error) {
	addr := strings.TrimSpace(cfg.Address)
	if addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if !strings.Contains(addr, "://") {
		return &redis.Options{Addr: addr, Password: cfg.Password, DB: cfg.DB}, nil
	}

	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	return opts, nil
}

// Ping fails fast even when ctx carries no deadline.
func (c *RedisClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", c.Client.Options().Addr, err)
	}
	return nil
}

// Journal builds the run journal on this connection.
func (c *RedisClient) Journal(cfg config.JournalConfig) *Journal {
	return NewJournal(c.Client, cfg.KeyPrefix, cfg.MaxEntries, time.Duration(cfg.TTL)*time.Second)
}

func (c *RedisClient) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}
