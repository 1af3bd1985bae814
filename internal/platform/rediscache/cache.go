package rediscache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/coursechat-backend/internal/platform/logger"
)

// Cache stores extracted text keyed by blob name.
type Cache interface {
	Get(ctx context.Context, blobName string) (string, bool, error)
	Set(ctx context.Context, blobName, text string) error
	Delete(ctx context.Context, blobNames ...string) error
}

type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

type redisCache struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// Dial connects and pings. The caller owns the returned client.
func Dial(ctx context.Context, cfg Config) (*goredis.Client, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func New(log *logger.Logger, rdb goredis.UniversalClient, cfg Config) Cache {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "coursechat:ctx:"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisCache{log: log.With("service", "ContextCache"), rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *redisCache) key(blobName string) string { return c.prefix + blobName }

func (c *redisCache) Get(ctx context.Context, blobName string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, c.key(blobName)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

func (c *redisCache) Set(ctx context.Context, blobName, text string) error {
	if err := c.rdb.Set(ctx, c.key(blobName), text, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, blobNames ...string) error {
	if len(blobNames) == 0 {
		return nil
	}
	keys := make([]string, 0, len(blobNames))
	for _, n := range blobNames {
		keys = append(keys, c.key(n))
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Noop never hits. Used when no redis address is configured.
type Noop struct{}

func (Noop) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (Noop) Set(context.Context, string, string) error         { return nil }
func (Noop) Delete(context.Context, ...string) error           { return nil }
