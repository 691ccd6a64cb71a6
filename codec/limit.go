package codec

import (
	"errors"
	"fmt"
	"io"
)

var ErrPayloadTooLarge = errors.New("codec: payload too large")

// Limit wraps another codec and refuses to decode more than MaxDecode bytes.
// Encode is forwarded unchanged. MaxDecode <= 0 disables the limit.
//
// Typical use: protect against oversized inputs from a shared cache.
type Limit[V any] struct {
	Inner     Codec[V]
	MaxDecode int64
}

func (c Limit[V]) Encode(w io.Writer, v V) error { return c.Inner.Encode(w, v) }

func (c Limit[V]) Decode(r io.Reader) (V, error) {
	if c.MaxDecode <= 0 {
		return c.Inner.Decode(r)
	}
	return c.Inner.Decode(&capReader{r: r, left: c.MaxDecode, max: c.MaxDecode})
}

// capReader fails once more than max bytes are available.
type capReader struct {
	r    io.Reader
	left int64
	max  int64
}

func (c *capReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if c.left <= 0 {
		var one [1]byte
		n, err := c.r.Read(one[:])
		if n > 0 {
			return 0, fmt.Errorf("%w: > %d bytes", ErrPayloadTooLarge, c.max)
		}
		return 0, err
	}
	if int64(len(p)) > c.left {
		p = p[:c.left]
	}
	n, err := c.r.Read(p)
	c.left -= int64(n)
	return n, err
}
