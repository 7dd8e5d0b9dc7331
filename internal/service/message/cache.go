package message

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"socialapi/internal/models"
	"socialapi/internal/redis"
)

// DefaultCacheTTL applies when no positive TTL is configured.
const DefaultCacheTTL = 10 * time.Minute

// Cache holds single messages by id. Misses and cache errors are indistinguishable
// to callers; the store stays authoritative.
type Cache interface {
	Get(ctx context.Context, id int64) (*models.Message, bool)
	Put(ctx context.Context, msg *models.Message)
	Invalidate(ctx context.Context, id int64)
}

// noopCache is used when caching is disabled.
type noopCache struct{}

func (noopCache) Get(context.Context, int64) (*models.Message, bool) { return nil, false }
func (noopCache) Put(context.Context, *models.Message)               {}
func (noopCache) Invalidate(context.Context, int64)                  {}

// RedisCache stores messages as JSON under message:<id>.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    logrus.FieldLogger
}

// NewRedisCache wraps client. A non-positive ttl falls back to DefaultCacheTTL.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger logrus.FieldLogger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl, log: logger.WithField("component", "message_cache")}
}

func cacheKey(id int64) string {
	return fmt.Sprintf("message:%d", id)
}

// Get reports a miss on absent keys, redis errors and undecodable values.
func (c *RedisCache) Get(ctx context.Context, id int64) (*models.Message, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, cacheKey(id))
	if err != nil {
		if !redis.IsMiss(err) {
			c.log.WithError(err).WithField("message_id", id).Warn("cache get failed")
		}
		return nil, false
	}
	var msg models.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.log.WithError(err).WithField("message_id", id).Warn("cache decode failed")
		return nil, false
	}
	return &msg, true
}

// Put stores msg for the configured TTL. Failures are logged and dropped.
func (c *RedisCache) Put(ctx context.Context, msg *models.Message) {
	if c == nil || c.client == nil || msg == nil || msg.ID <= 0 {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.WithError(err).Warn("cache encode failed")
		return
	}
	if err := c.client.Set(ctx, cacheKey(msg.ID), data, c.ttl); err != nil {
		c.log.WithError(err).WithField("message_id", msg.ID).Warn("cache set failed")
	}
}

// Invalidate deletes the entry for id.
func (c *RedisCache) Invalidate(ctx context.Context, id int64) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, cacheKey(id)); err != nil {
		c.log.WithError(err).WithField("message_id", id).Warn("cache invalidate failed")
	}
}
