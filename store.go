package streamcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"

	gen "github.com/unkn0wn-root/streamcache/genstore"
	"github.com/unkn0wn-root/streamcache/internal/wire"
	pr "github.com/unkn0wn-root/streamcache/provider"
)

// Store is a Cache over any provider.Provider.
//
// Policies:
//   - Commits are single provider Sets of a framed blob, so a reader sees
//     either the previous blob or the new one.
//   - Readers get snapshot isolation: a handle reads the bytes fetched at open.
//   - Expiry hints become the provider TTL and are also checked lazily on
//     read; an expired blob is invisible and deleted.
//   - Delete of a missing key is a no-op.
type Store struct {
	ns             string
	provider       pr.Provider
	gen            gen.GenStore
	log            Logger
	hooks          Hooks
	enabled        bool
	defaultTTL     time.Duration
	maxBlobSize    int64
	minCompress    int
	computeSetCost SetCostFunc

	enc *zstd.Encoder // nil => compression off
	dec *zstd.Decoder

	now func() time.Time

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

var (
	_ Cache     = (*Store)(nil)
	_ Committer = (*Store)(nil)
)

func New(opts Options) (*Store, error) {
	if opts.Provider == nil {
		return nil, errors.New("streamcache: provider is required")
	}
	if opts.Namespace == "" {
		return nil, errors.New("streamcache: namespace is required")
	}
	if opts.MaxBlobSize < 0 {
		return nil, errors.New("streamcache: MaxBlobSize must be >= 0")
	}

	s := &Store{
		ns:          opts.Namespace,
		provider:    opts.Provider,
		enabled:     !opts.Disabled,
		defaultTTL:  opts.DefaultTTL,
		maxBlobSize: opts.MaxBlobSize,
		now:         time.Now,
	}

	// defaults
	s.log = coalesce[Logger](opts.Logger, NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	s.minCompress = coalesce(opts.MinCompressSize, defaultMinCompressSize)
	s.computeSetCost = opts.ComputeSetCost
	if s.computeSetCost == nil {
		s.computeSetCost = func(_ string, raw []byte) int64 { return int64(len(raw)) }
	}

	decOpts := []zstd.DOption{zstd.WithDecoderConcurrency(0)}
	if s.maxBlobSize > 0 {
		// the decoder never accepts a window below MinWindowSize
		decOpts = append(decOpts, zstd.WithDecoderMaxMemory(max(uint64(s.maxBlobSize), zstd.MinWindowSize)))
	}
	dec, err := zstd.NewReader(nil, decOpts...)
	if err != nil {
		return nil, fmt.Errorf("streamcache: zstd decoder: %w", err)
	}
	s.dec = dec

	switch opts.Compression {
	case CompressionNone:
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			dec.Close()
			return nil, fmt.Errorf("streamcache: zstd encoder: %w", err)
		}
		s.enc = enc
	default:
		dec.Close()
		return nil, fmt.Errorf("streamcache: unknown compression %d", opts.Compression)
	}

	if opts.GenStore != nil {
		s.gen = opts.GenStore
	} else {
		// default to in-process generations with periodic cleanup
		s.gen = gen.NewLocal(
			coalesce(opts.CleanupInterval, defaultSweep),
			coalesce(opts.GenRetention, defaultGenRetention),
		)
	}
	return s, nil
}

func (s *Store) Enabled() bool { return s.enabled }

// OpenRead fetches the framed blob once and serves it from memory.
// Corrupt, stale, expired or undecodable entries are deleted and reported as
// ErrNotFound. Provider and gen store failures are returned as-is.
func (s *Store) OpenRead(ctx context.Context, key string) (ReadHandle, error) {
	if s.closed.Load() {
		return nil, closedErr("open read")
	}
	if !s.enabled {
		return nil, notFound("open read", key)
	}
	k := s.storageKey(key)
	raw, ok, err := s.provider.Get(ctx, k)
	if err != nil {
		return nil, fmt.Errorf("streamcache: open read %q: %w", key, err)
	}
	if !ok {
		return nil, notFound("open read", key)
	}

	h, payload, err := wire.Decode(raw)
	if err != nil {
		s.selfHeal(ctx, k, ReasonCorrupt)
		return nil, notFound("open read", key)
	}
	cur, err := s.gen.Snapshot(ctx, k)
	if err != nil {
		s.hooks.GenSnapshotError(k, err)
		s.log.Warn("gen snapshot error", Fields{"key": k, "err": err})
		return nil, fmt.Errorf("streamcache: open read %q: %w", key, err)
	}
	if h.Gen != cur {
		s.selfHeal(ctx, k, ReasonGenMismatch)
		return nil, notFound("open read", key)
	}
	if h.Expired(s.now()) {
		s.selfHeal(ctx, k, ReasonExpired)
		return nil, notFound("open read", key)
	}
	if h.Flags&wire.FlagZstd != 0 {
		payload, err = s.dec.DecodeAll(payload, nil)
		if err != nil {
			if s.closed.Load() {
				return nil, closedErr("open read")
			}
			s.selfHeal(ctx, k, ReasonDecompress)
			return nil, notFound("open read", key)
		}
	}
	return NewBytesReader(payload), nil
}

// OpenWrite buffers the blob in memory; ctx also bounds the commit made by
// the handle's Close.
func (s *Store) OpenWrite(ctx context.Context, key string, opts ...WriteOption) (WriteHandle, error) {
	if s.closed.Load() {
		return nil, closedErr("open write")
	}
	return NewBufferWriter(ctx, s, key, NewWriteOptions(opts...), s.maxBlobSize), nil
}

// Commit frames blob with the key's current generation and expiry and
// stores it with one provider Set. On failure the provider is left as it was.
func (s *Store) Commit(ctx context.Context, key string, blob []byte, opts WriteOptions) error {
	if s.closed.Load() {
		return closedErr("commit")
	}
	if !s.enabled {
		return nil
	}
	k := s.storageKey(key)
	now := s.now()

	exp := opts.ExpiresAt
	if exp.IsZero() && s.defaultTTL > 0 {
		exp = now.Add(s.defaultTTL)
	}
	var ttl time.Duration
	if !exp.IsZero() {
		ttl = exp.Sub(now)
		if ttl <= 0 {
			// born expired: it replaces the old blob but is never visible
			if err := s.provider.Del(ctx, k); err != nil {
				s.hooks.CommitFailed(k, err)
				return fmt.Errorf("streamcache: commit %q: %w", key, err)
			}
			s.log.Debug("commit of expired blob dropped", Fields{"key": key})
			return nil
		}
	}

	g, err := s.gen.Snapshot(ctx, k)
	if err != nil {
		s.hooks.GenSnapshotError(k, err)
		s.hooks.CommitFailed(k, err)
		return fmt.Errorf("streamcache: commit %q: %w", key, err)
	}
	if g > 0 {
		// keep the generation around for as long as the blob framed with it
		if err := s.gen.Touch(ctx, k, exp); err != nil {
			s.hooks.CommitFailed(k, err)
			s.log.Warn("gen touch error", Fields{"key": k, "err": err})
			return fmt.Errorf("streamcache: commit %q: %w", key, err)
		}
	}

	payload, flags := s.compress(blob)
	raw := wire.Encode(wire.Header{Flags: flags, Gen: g, ExpiresAt: exp}, payload)

	ok, err := s.provider.Set(ctx, k, raw, s.computeSetCost(k, raw), ttl)
	if err != nil {
		s.hooks.CommitFailed(k, err)
		s.log.Warn("commit failed", Fields{"key": key, "err": err})
		return fmt.Errorf("streamcache: commit %q: %w", key, err)
	}
	if !ok {
		s.hooks.ProviderSetRejected(k, len(raw))
		s.log.Debug("commit rejected by provider (pressure)", Fields{"key": key, "size": len(raw)})
		return fmt.Errorf("streamcache: commit %q: %w", key, ErrRejected)
	}
	return nil
}

// Delete bumps the key's generation, then removes the provider entry.
// Either step alone is enough to hide the blob; a *DeleteError reports
// whichever failed.
func (s *Store) Delete(ctx context.Context, key string) error {
	if s.closed.Load() {
		return closedErr("delete")
	}
	if !s.enabled {
		return nil
	}
	k := s.storageKey(key)

	newGen, bumpErr := s.gen.Bump(ctx, k)
	if bumpErr != nil {
		s.hooks.GenBumpError(k, bumpErr)
		s.log.Error("gen bump error", Fields{"key": k, "err": bumpErr})
	}
	delErr := s.provider.Del(ctx, k)

	switch {
	case bumpErr == nil && delErr == nil:
		s.log.Debug("deleted key (bumped gen + cleared blob)", Fields{"key": key, "newGen": newGen})
		return nil
	case bumpErr != nil && delErr != nil:
		s.hooks.DeleteOutage(key, bumpErr, delErr)
		s.log.Error("delete outage", Fields{"key": key, "bumpErr": bumpErr, "delErr": delErr})
	default:
		s.log.Warn("delete partially failed", Fields{"key": key, "bumpErr": bumpErr, "delErr": delErr})
	}
	return &DeleteError{Key: key, BumpErr: bumpErr, DelErr: delErr}
}

// Close closes the gen store, then the provider. Later calls return the
// first call's result.
func (s *Store) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		var errs []error
		if err := s.gen.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("gen store: %w", err))
		}
		if err := s.provider.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("provider: %w", err))
		}
		if s.enc != nil {
			if err := s.enc.Close(); err != nil {
				errs = append(errs, fmt.Errorf("zstd: %w", err))
			}
		}
		s.dec.Close()
		if err := errors.Join(errs...); err != nil {
			s.closeErr = fmt.Errorf("streamcache: close: %w", err)
		}
	})
	return s.closeErr
}

func (s *Store) compress(b []byte) ([]byte, byte) {
	if s.enc == nil || len(b) < s.minCompress {
		return b, 0
	}
	out := s.enc.EncodeAll(b, make([]byte, 0, len(b)/2))
	if len(out) >= len(b) {
		return b, 0
	}
	return out, wire.FlagZstd
}

func (s *Store) selfHeal(ctx context.Context, storageKey, reason string) {
	_ = s.provider.Del(ctx, storageKey) // best effort; the read already misses
	s.hooks.SelfHeal(storageKey, reason)
	s.log.Debug("dropped blob on read", Fields{"key": storageKey, "reason": reason})
}

func (s *Store) storageKey(userKey string) string {
	// isolate by namespace
	return "blob:" + s.ns + ":" + userKey
}
