package streamcache

import (
	"context"
	"errors"
	"io"

	"golang.org/x/sync/singleflight"
)

// FillFunc streams the origin value for key into w. Returning an error
// abandons the write.
type FillFunc func(ctx context.Context, key string, w io.Writer) error

// Loader is a read-through front for a Cache. Concurrent misses for the same
// key share one fill; the fill runs with the first caller's ctx.
type Loader struct {
	c     Cache
	fill  FillFunc
	opts  []WriteOption
	group singleflight.Group
}

// NewLoader wraps c. opts apply to every write the loader makes.
func NewLoader(c Cache, fill FillFunc, opts ...WriteOption) *Loader {
	return &Loader{c: c, fill: fill, opts: opts}
}

// Open returns a handle on the cached blob for key, filling it first on a
// miss. The blob may still be invisible afterwards (born expired, or a
// disabled Store); Open then returns ErrNotFound.
func (l *Loader) Open(ctx context.Context, key string) (ReadHandle, error) {
	r, err := l.c.OpenRead(ctx, key)
	if !errors.Is(err, ErrNotFound) {
		return r, err
	}

	_, err, _ = l.group.Do(key, func() (any, error) {
		// another caller may have filled it since our miss
		if r, err := l.c.OpenRead(ctx, key); err == nil {
			return nil, r.Close()
		}
		w, err := l.c.OpenWrite(ctx, key, l.opts...)
		if err != nil {
			return nil, err
		}
		defer w.Discard() //nolint:errcheck // no-op after commit

		if err := l.fill(ctx, key, w); err != nil {
			return nil, err
		}
		return nil, w.Close()
	})
	if err != nil {
		return nil, err
	}
	return l.c.OpenRead(ctx, key)
}

// Forget makes the next miss for key start a new fill even if one is in flight.
func (l *Loader) Forget(key string) { l.group.Forget(key) }
