package genstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNilClient = errors.New("genstore: nil redis client")

// Redis shares per-key generations across processes and survives restarts.
// With a TTL, generation keys expire after TTL of inactivity; readers then
// observe gen=0, so TTL must outlive the blobs it guards.
type Redis struct {
	rdb         redis.UniversalClient
	ns          string
	ttl         time.Duration
	closeClient bool
}

var _ GenStore = (*Redis)(nil)

type RedisConfig struct {
	Client      redis.UniversalClient
	Namespace   string        // should match the Store namespace
	TTL         time.Duration // 0 disables expiry
	CloseClient bool          // set true only if the store exclusively owns the client
}

func NewRedis(cfg RedisConfig) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{rdb: cfg.Client, ns: cfg.Namespace, ttl: cfg.TTL, closeClient: cfg.CloseClient}, nil
}

func (s *Redis) key(k string) string { return "gen:" + s.ns + ":" + k }

// Snapshot returns the current generation. Missing keys are generation 0.
func (s *Redis) Snapshot(ctx context.Context, storageKey string) (uint64, error) {
	res, err := s.rdb.Get(ctx, s.key(storageKey)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	u, err := strconv.ParseUint(res, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("genstore: redis gen parse %q: %w", storageKey, err)
	}
	return u, nil
}

// Bump increments the generation. With a TTL, INCR and EXPIRE go out in one
// pipelined round-trip.
func (s *Redis) Bump(ctx context.Context, storageKey string) (uint64, error) {
	k := s.key(storageKey)
	if s.ttl <= 0 {
		return s.rdb.Incr(ctx, k).Uint64()
	}

	var incr *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.Expire(ctx, k, s.ttl)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Uint64()
}

// Touch stretches the gen key's TTL to cover a blob living until until,
// or drops the TTL when until is zero. The blob just committed replaces any
// earlier one, so its lifetime alone decides. Without a TTL it is a no-op.
func (s *Redis) Touch(ctx context.Context, storageKey string, until time.Time) error {
	if s.ttl <= 0 {
		return nil
	}
	k := s.key(storageKey)
	if until.IsZero() {
		return s.rdb.Persist(ctx, k).Err()
	}
	return s.rdb.Expire(ctx, k, max(time.Until(until), s.ttl)).Err()
}

// Cleanup is a no-op; Redis handles expiry when TTL is set.
func (s *Redis) Cleanup(time.Duration) {}

// Close releases the client only when this store owns it.
func (s *Redis) Close(context.Context) error {
	if !s.closeClient {
		return nil
	}
	if err := s.rdb.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
