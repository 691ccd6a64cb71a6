// Package memory is the reference streamcache backend: an owned map from key
// to an immutable byte slice. It exists to demonstrate and test the contract.
//
// Policies:
//   - Delete of a missing key returns ErrNotFound.
//   - The expiry hint is recorded (see Expiry) but never hides a blob.
//   - Readers get snapshot isolation: a handle keeps reading the slice it
//     was opened on even if a newer blob is committed or the key is deleted.
//   - The mutex only keeps the map consistent; writers are not coordinated
//     and the last committer wins.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/unkn0wn-root/streamcache"
)

type entry struct {
	blob      []byte
	expiresAt time.Time
}

type Cache struct {
	mu      sync.RWMutex
	data    map[string]entry
	closed  bool
	maxSize int64
}

var (
	_ streamcache.Cache     = (*Cache)(nil)
	_ streamcache.Committer = (*Cache)(nil)
)

type Option func(*Cache)

// WithMaxBlobSize caps each blob; Write beyond it fails with ErrTooLarge.
func WithMaxBlobSize(n int64) Option {
	return func(c *Cache) { c.maxSize = n }
}

func New(opts ...Option) *Cache {
	c := &Cache{data: make(map[string]entry)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) OpenRead(_ context.Context, key string) (streamcache.ReadHandle, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, fmt.Errorf("open read: %w", streamcache.ErrClosed)
	}
	e, ok := c.data[key]
	if !ok {
		return nil, fmt.Errorf("open read %q: %w", key, streamcache.ErrNotFound)
	}
	return streamcache.NewBytesReader(e.blob), nil
}

func (c *Cache) OpenWrite(ctx context.Context, key string, opts ...streamcache.WriteOption) (streamcache.WriteHandle, error) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("open write: %w", streamcache.ErrClosed)
	}
	return streamcache.NewBufferWriter(ctx, c, key, streamcache.NewWriteOptions(opts...), c.maxSize), nil
}

// Commit installs blob under key with a single map assignment.
// Called by the WriteHandle's Close.
func (c *Cache) Commit(_ context.Context, key string, blob []byte, opts streamcache.WriteOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("commit %q: %w", key, streamcache.ErrClosed)
	}
	if blob == nil {
		blob = []byte{}
	}
	c.data[key] = entry{blob: blob, expiresAt: opts.ExpiresAt}
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("delete: %w", streamcache.ErrClosed)
	}
	if _, ok := c.data[key]; !ok {
		return fmt.Errorf("delete %q: %w", key, streamcache.ErrNotFound)
	}
	delete(c.data, key)
	return nil
}

// Expiry returns the hint recorded with the committed blob.
// After Close it always reports false.
func (c *Cache) Expiry(key string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.data[key]
	return e.expiresAt, ok
}

// Len is the number of committed blobs; 0 after Close.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

func (c *Cache) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.data = nil
	return nil
}
