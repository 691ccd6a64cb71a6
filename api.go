package streamcache

import (
	"context"
	"io"
	"time"
)

// Cache is the storage contract consumed by a caching policy layer.
// Blobs are opaque byte sequences addressed by an opaque string key.
//
// Writes are invisible until the WriteHandle returned by OpenWrite is closed;
// Close is the single commit point. Readers never observe a partial blob.
type Cache interface {
	// OpenRead returns a handle positioned at the start of the blob committed
	// under key. Returns an error matching ErrNotFound when nothing is committed.
	OpenRead(ctx context.Context, key string) (ReadHandle, error)

	// OpenWrite returns a handle that buffers a new blob for key. Nothing
	// becomes visible until the handle's Close commits it. Concurrent writers
	// to the same key are not coordinated: the last committer wins.
	OpenWrite(ctx context.Context, key string, opts ...WriteOption) (WriteHandle, error)

	// Delete removes the committed blob for key. Whether deleting a missing
	// key returns ErrNotFound is documented per backend.
	Delete(ctx context.Context, key string) error

	// Close releases store-wide resources. Safe to call more than once;
	// every other method fails with ErrClosed afterwards.
	Close(ctx context.Context) error
}

// ReadHandle is a sequential byte source bound to one committed blob.
//
// Read follows io.Reader: it returns up to len(p) bytes and advances the
// handle's own cursor. (0, io.EOF) is the only end-of-stream signal.
// Read after Close fails with ErrClosed.
type ReadHandle interface {
	io.ReadCloser

	// Size is the total length of the blob the handle was opened on.
	Size() int64
}

// WriteHandle is a sequential byte sink for a new blob.
//
// Close commits: the buffered bytes atomically replace whatever is stored
// under the key. A second Close returns ErrClosed and never re-commits.
// A handle that is never closed commits nothing.
type WriteHandle interface {
	io.WriteCloser

	// Discard abandons the write and releases buffered data.
	// After a successful commit it is a no-op, so `defer w.Discard()` is safe.
	Discard() error
}

// WriteOptions carries per-write hints for the backend.
type WriteOptions struct {
	// ExpiresAt is the expiry hint; zero means none. How a backend interprets
	// it is documented per backend.
	ExpiresAt time.Time
}

type WriteOption func(*WriteOptions)

// WithExpiresAt sets an absolute expiry hint.
func WithExpiresAt(t time.Time) WriteOption {
	return func(o *WriteOptions) { o.ExpiresAt = t }
}

// WithTTL sets the expiry hint relative to now. d <= 0 clears it.
func WithTTL(d time.Duration) WriteOption {
	return func(o *WriteOptions) {
		if d <= 0 {
			o.ExpiresAt = time.Time{}
			return
		}
		o.ExpiresAt = time.Now().Add(d)
	}
}

// NewWriteOptions folds opts into a WriteOptions value. Backends call this
// from OpenWrite.
func NewWriteOptions(opts ...WriteOption) WriteOptions {
	var o WriteOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Expired reports whether the hint is set and lies at or before now.
func (o WriteOptions) Expired(now time.Time) bool {
	return !o.ExpiresAt.IsZero() && !now.Before(o.ExpiresAt)
}
