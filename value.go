package streamcache

import (
	"context"
	"fmt"

	"github.com/unkn0wn-root/streamcache/codec"
)

// PutValue streams v through cd into a new blob under key and commits it.
// Nothing is committed if encoding fails.
func PutValue[V any](ctx context.Context, c Cache, key string, v V, cd codec.Codec[V], opts ...WriteOption) error {
	w, err := c.OpenWrite(ctx, key, opts...)
	if err != nil {
		return err
	}
	defer w.Discard() //nolint:errcheck // no-op after commit

	if err := cd.Encode(w, v); err != nil {
		return fmt.Errorf("streamcache: encode %q: %w", key, err)
	}
	return w.Close()
}

// GetValue decodes the blob under key with cd. A miss returns ErrNotFound.
func GetValue[V any](ctx context.Context, c Cache, key string, cd codec.Codec[V]) (V, error) {
	var zero V
	r, err := c.OpenRead(ctx, key)
	if err != nil {
		return zero, err
	}
	defer r.Close()

	v, err := cd.Decode(r)
	if err != nil {
		return zero, fmt.Errorf("streamcache: decode %q: %w", key, err)
	}
	return v, nil
}
