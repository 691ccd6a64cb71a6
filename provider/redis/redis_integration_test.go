package redis_test

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/streamcache"
	"github.com/unkn0wn-root/streamcache/cachetest"
	"github.com/unkn0wn-root/streamcache/genstore"
	"github.com/unkn0wn-root/streamcache/provider/redis"
)

func redisClient(t *testing.T) *goredis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping Redis integration test")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("cannot reach Redis at %s: %v", addr, err)
	}
	return rdb
}

func TestNilClient(t *testing.T) {
	if _, err := redis.New(redis.Config{}); err != redis.ErrNilClient {
		t.Fatalf("expected ErrNilClient, got %v", err)
	}
}

func TestProviderSetGetDel(t *testing.T) {
	rdb := redisClient(t)
	ctx := context.Background()
	p, err := redis.New(redis.Config{Client: rdb, KeyPrefix: "test:" + t.Name() + ":"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, ok, err := p.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}
	if ok, err := p.Set(ctx, "k", []byte("v"), 1, time.Minute); !ok || err != nil {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	b, ok, err := p.Get(ctx, "k")
	if err != nil || !ok || string(b) != "v" {
		t.Fatalf("Get: %q ok=%v err=%v", b, ok, err)
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatalf("Del of missing key: %v", err)
	}
}

// TestStoreConformance runs the cache contract over Redis for both blobs and
// generations, as a multi-replica deployment would.
func TestStoreConformance(t *testing.T) {
	rdb := redisClient(t)
	cachetest.RunWithOptions(t, func(t *testing.T) streamcache.Cache {
		ns := t.Name() + ":" + time.Now().Format(time.RFC3339Nano)
		p, err := redis.New(redis.Config{Client: rdb, KeyPrefix: "test:"})
		if err != nil {
			t.Fatalf("redis.New: %v", err)
		}
		gs, err := genstore.NewRedis(genstore.RedisConfig{Client: rdb, Namespace: ns, TTL: time.Hour})
		if err != nil {
			t.Fatalf("genstore.NewRedis: %v", err)
		}
		s, err := streamcache.New(streamcache.Options{
			Namespace:   ns,
			Provider:    p,
			GenStore:    gs,
			Compression: streamcache.CompressionZstd,
		})
		if err != nil {
			t.Fatalf("streamcache.New: %v", err)
		}
		return s
	}, cachetest.Options{DeleteMissingIsNoop: true})
}
