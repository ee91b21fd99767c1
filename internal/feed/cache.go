package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/allattain/opsdash/internal/models"
)

const snapshotKey = "opsdash:feed:snapshot"

// Cache is a time-boxed redis cache for feed snapshots. It is optional: no
// address, or an unreachable redis, means the loader fetches through.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func NewCache(addr string, ttl time.Duration, log *slog.Logger) *Cache {
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, feed cache disabled", slog.String("addr", addr), slog.String("err", err.Error()))
		rdb.Close()
		return nil
	}
	return &Cache{rdb: rdb, ttl: ttl, log: log}
}

func (c *Cache) Get(ctx context.Context, key string) (models.Snapshot, bool) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("cache get failed", slog.String("err", err.Error()))
		}
		return models.Snapshot{}, false
	}
	var snap models.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return models.Snapshot{}, false
	}
	return snap, true
}

func (c *Cache) Set(ctx context.Context, key string, snap models.Snapshot) {
	b, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		c.log.Warn("cache set failed", slog.String("err", err.Error()))
	}
}

func (c *Cache) Close() error { return c.rdb.Close() }
