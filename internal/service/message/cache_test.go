package message

import (
	"context"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	"socialapi/internal/config"
	"socialapi/internal/logging"
	"socialapi/internal/models"
	"socialapi/internal/redis"
)

func TestRedisCachePutGetInvalidate(t *testing.T) {
	cache, cleanup := newRedisCache(t)
	defer cleanup()
	ctx := context.Background()

	msg := &models.Message{ID: 7, PostedBy: 3, Text: "cached text", TimePostedEpoch: 1669947792}
	if _, ok := cache.Get(ctx, msg.ID); ok {
		t.Fatalf("expected miss before put")
	}
	cache.Put(ctx, msg)
	got, ok := cache.Get(ctx, msg.ID)
	if !ok || *got != *msg {
		t.Fatalf("want %+v got %+v (ok=%v)", msg, got, ok)
	}
	cache.Invalidate(ctx, msg.ID)
	if _, ok := cache.Get(ctx, msg.ID); ok {
		t.Fatalf("expected miss after invalidate")
	}
}

func TestNilRedisCacheIsInert(t *testing.T) {
	var cache *RedisCache
	ctx := context.Background()
	cache.Put(ctx, &models.Message{ID: 1})
	cache.Invalidate(ctx, 1)
	if _, ok := cache.Get(ctx, 1); ok {
		t.Fatalf("nil cache returned a hit")
	}
}

func newRedisCache(t *testing.T) (*RedisCache, func()) {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis-backed cache tests")
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("atoi port: %v", err)
	}
	db := 0
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			db = parsed
		}
	}
	client, err := redis.NewRedisClient(config.RedisConfig{Host: host, Port: port, DB: db})
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if raw := client.Raw(); raw != nil {
		if err := raw.FlushDB(ctx).Err(); err != nil {
			t.Fatalf("flush db: %v", err)
		}
	}
	cleanup := func() {
		client.Close()
	}
	return NewRedisCache(client, time.Minute, logging.Discard()), cleanup
}
