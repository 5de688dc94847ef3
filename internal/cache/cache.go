package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"tvcatalog/internal/observability"
)

const (
	keyPrefix = "catalog"
	// loadTimeout bounds a shared load, which outlives any single caller.
	loadTimeout = 30 * time.Second
)

// Connect dials redis from either a redis:// URL or a bare host:port.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts := &redis.Options{Addr: url}
	if strings.Contains(url, "://") {
		parsed, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("cache: parse url: %w", err)
		}
		opts = parsed
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}
	return client, nil
}

// Cache keeps JSON responses in redis for a short TTL. A nil Cache, or one
// without a client, always calls through to the loader.
type Cache struct {
	client  *redis.Client
	ttl     time.Duration
	group   singleflight.Group
	metrics *observability.Metrics
	logger  *slog.Logger
}

func New(client *redis.Client, ttl time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{client: client, ttl: ttl, metrics: metrics, logger: logger}
}

// Key derives a stable key for one operation and its canonical arguments.
func Key(op, args string) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(op+"?"+args))
	return keyPrefix + ":" + op + ":" + id.String()
}

// FetchJSON fills dest from the cached value at key, or from loader on a
// miss. Concurrent misses for one key share a single loader call, which
// runs detached from any one caller's cancellation. Redis failures degrade
// to calling the loader; loader errors are never cached.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		return roundTrip(value, dest)
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		c.metrics.CacheResult(true)
		return json.Unmarshal(payload, dest)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("cache read failed", slog.String("key", key), slog.Any("error", err))
	}
	c.metrics.CacheResult(false)

	ch := c.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		value, err := loader(loadCtx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("cache: encode: %w", err)
		}
		if err := c.client.Set(loadCtx, key, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("cache write failed", slog.String("key", key), slog.Any("error", err))
		}
		return raw, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.([]byte), dest)
	}
}

func roundTrip(value, dest any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode: %w", err)
	}
	return json.Unmarshal(raw, dest)
}
