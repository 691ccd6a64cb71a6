// Package disk is a streaming filesystem backend for streamcache.
//
// Each blob is one file: a wire header (expiry, length) followed by the raw
// bytes. Writers stream into a temp file and commit with an atomic rename;
// readers stream from an open file descriptor, so neither side holds a whole
// payload in memory.
//
// Policies:
//   - Delete of a missing key returns ErrNotFound.
//   - Expiry hints are enforced lazily: OpenRead treats an expired file as
//     missing and removes it. Prune sweeps expired files eagerly.
//   - Snapshot isolation on POSIX filesystems: an open reader keeps the inode
//     it opened across overwrites and deletes.
//   - Writers are not coordinated; the last rename wins.
package disk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/unkn0wn-root/streamcache"
	"github.com/unkn0wn-root/streamcache/internal/util"
	"github.com/unkn0wn-root/streamcache/internal/wire"
)

const (
	defaultShardPrefixLen = 2
	defaultDirPerm        = 0o700
	tmpDirName            = "tmp"
)

type Cache struct {
	dir            string
	tmpDir         string
	shardPrefixLen int
	dirPerm        os.FileMode
	maxSize        int64
	removeOnClose  bool
	log            streamcache.Logger
	hooks          streamcache.Hooks
	now            func() time.Time

	mu      sync.Mutex
	closed  bool
	writers map[*writer]struct{}
}

var _ streamcache.Cache = (*Cache)(nil)

// Option configures a disk cache.
type Option func(*Cache)

// WithShardPrefixLen sets the number of hex characters used for sharding.
// Use 0 to disable sharding. Defaults to 2.
func WithShardPrefixLen(n int) Option {
	return func(c *Cache) { c.shardPrefixLen = n }
}

// WithDirPerm sets the directory permissions used for cache directories.
func WithDirPerm(mode os.FileMode) Option {
	return func(c *Cache) { c.dirPerm = mode }
}

// WithMaxBlobSize caps each blob; Write beyond it fails with ErrTooLarge.
func WithMaxBlobSize(n int64) Option {
	return func(c *Cache) { c.maxSize = n }
}

// WithRemoveOnClose deletes the whole cache directory on Close.
// Use it for scratch caches rooted in a temp dir.
func WithRemoveOnClose() Option {
	return func(c *Cache) { c.removeOnClose = true }
}

func WithLogger(l streamcache.Logger) Option {
	return func(c *Cache) { c.log = l }
}

func WithHooks(h streamcache.Hooks) Option {
	return func(c *Cache) { c.hooks = h }
}

// New creates a disk-backed cache rooted at dir.
func New(dir string, opts ...Option) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("disk: cache dir is empty")
	}
	c := &Cache{
		dir:            dir,
		tmpDir:         filepath.Join(dir, tmpDirName),
		shardPrefixLen: defaultShardPrefixLen,
		dirPerm:        defaultDirPerm,
		log:            streamcache.NopLogger{},
		hooks:          streamcache.NopHooks{},
		now:            time.Now,
		writers:        make(map[*writer]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.shardPrefixLen < 0 {
		return nil, errors.New("disk: shard prefix length must be >= 0")
	}
	if c.maxSize < 0 {
		return nil, errors.New("disk: max blob size must be >= 0")
	}
	if err := os.MkdirAll(c.tmpDir, c.dirPerm); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cache) path(key string) string {
	return util.ShardedPath(c.dir, key, c.shardPrefixLen)
}

func (c *Cache) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Cache) OpenRead(_ context.Context, key string) (streamcache.ReadHandle, error) {
	if c.isClosed() {
		return nil, fmt.Errorf("open read: %w", streamcache.ErrClosed)
	}
	path := c.path(key)
	f, err := os.Open(path) //nolint:gosec // path is derived from a key hash
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("open read %q: %w", key, streamcache.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("disk: open read %q: %w", key, err)
	}

	h, reason, err := c.validate(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("disk: open read %q: %w", key, err)
	}
	if reason != "" {
		c.selfHeal(f, path, reason)
		f.Close()
		return nil, fmt.Errorf("open read %q: %w", key, streamcache.ErrNotFound)
	}
	return &reader{f: f, size: int64(h.Len)}, nil
}

// validate reads the header and leaves f positioned at the payload.
// A non-empty reason means the file must be treated as missing.
func (c *Cache) validate(f *os.File) (wire.Header, string, error) {
	var hdr [wire.HeaderSize]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return wire.Header{}, streamcache.ReasonCorrupt, nil
		}
		return wire.Header{}, "", err
	}
	h, err := wire.DecodeHeader(hdr[:])
	if err != nil {
		return wire.Header{}, streamcache.ReasonCorrupt, nil
	}
	fi, err := f.Stat()
	if err != nil {
		return wire.Header{}, "", err
	}
	if uint64(fi.Size()) != wire.HeaderSize+h.Len {
		return wire.Header{}, streamcache.ReasonCorrupt, nil
	}
	if h.Expired(c.now()) {
		return h, streamcache.ReasonExpired, nil
	}
	return h, "", nil
}

// selfHeal removes path only if it still names the file we inspected, so a
// commit that raced in is left alone.
func (c *Cache) selfHeal(f *os.File, path, reason string) bool {
	opened, err := f.Stat()
	if err != nil {
		return false
	}
	current, err := os.Stat(path)
	if err != nil || !os.SameFile(opened, current) {
		return false
	}
	if err := os.Remove(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.log.Warn("disk: self-heal remove failed", streamcache.Fields{"path": path, "err": err})
		}
		return false
	}
	c.hooks.SelfHeal(path, reason)
	c.log.Debug("disk: dropped blob", streamcache.Fields{"path": path, "reason": reason})
	return true
}

func (c *Cache) OpenWrite(_ context.Context, key string, opts ...streamcache.WriteOption) (streamcache.WriteHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("open write: %w", streamcache.ErrClosed)
	}

	tmp, err := os.CreateTemp(c.tmpDir, "w-*")
	if err != nil {
		return nil, fmt.Errorf("disk: open write %q: %w", key, exhausted(err))
	}
	// placeholder; the real header is written at commit time
	if _, err := tmp.Write(make([]byte, wire.HeaderSize)); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("disk: open write %q: %w", key, exhausted(err))
	}
	w := &writer{
		c:       c,
		key:     key,
		final:   c.path(key),
		f:       tmp,
		tmpPath: tmp.Name(),
		opts:    streamcache.NewWriteOptions(opts...),
	}
	c.writers[w] = struct{}{}
	return w, nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	if c.isClosed() {
		return fmt.Errorf("delete: %w", streamcache.ErrClosed)
	}
	err := os.Remove(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %q: %w", key, streamcache.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("disk: delete %q: %w", key, err)
	}
	return nil
}

// Prune removes every expired or corrupt blob and returns how many were removed.
// Files that are not laid out like blobs are left alone.
func (c *Cache) Prune(ctx context.Context) (int, error) {
	if c.isClosed() {
		return 0, fmt.Errorf("prune: %w", streamcache.ErrClosed)
	}
	removed := 0
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if path == c.tmpDir {
				return filepath.SkipDir
			}
			return ctx.Err()
		}
		if !c.owns(path, d.Name()) {
			return nil
		}
		f, err := os.Open(path) //nolint:gosec // walking our own directory
		if err != nil {
			return nil // raced with a delete
		}
		_, reason, verr := c.validate(f)
		if verr == nil && reason != "" && c.selfHeal(f, path, reason) {
			removed++
		}
		f.Close()
		return nil
	})
	return removed, err
}

// owns reports whether path is where this cache would store a blob named name.
func (c *Cache) owns(path, name string) bool {
	if !util.IsHashKey(name) {
		return false
	}
	if c.shardPrefixLen <= 0 {
		return filepath.Dir(path) == filepath.Clean(c.dir)
	}
	return filepath.Dir(path) == filepath.Join(c.dir, name[:min(c.shardPrefixLen, len(name))])
}

// Close aborts in-flight writers (their Close then returns ErrClosed) and,
// with WithRemoveOnClose, deletes the cache directory. Open readers keep
// working until they are closed.
func (c *Cache) Close(context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	pending := make([]*writer, 0, len(c.writers))
	for w := range c.writers {
		pending = append(pending, w)
	}
	c.writers = nil
	c.mu.Unlock()

	var errs []error
	for _, w := range pending {
		if err := w.abort(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.removeOnClose {
		if err := os.RemoveAll(c.dir); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("disk: close: %w", err)
	}
	return nil
}

// unregister reports false when the cache was closed first.
func (c *Cache) unregister(w *writer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	delete(c.writers, w)
	return true
}

func exhausted(err error) error {
	if errors.Is(err, syscall.ENOSPC) {
		return fmt.Errorf("%w: %w", streamcache.ErrExhausted, err)
	}
	return err
}
