package codec

import (
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack streams values using vmihailenco/msgpack/v5. The zero value is ready to use.
// Use `msgpack:"name"` tags for explicit field control; JSON tags are not consulted
// unless UseJSONTag is set.
type Msgpack[V any] struct {
	UseJSONTag bool
}

var _ Codec[struct{}] = Msgpack[struct{}]{}

func (c Msgpack[V]) Encode(w io.Writer, v V) error {
	enc := msgpack.NewEncoder(w)
	if c.UseJSONTag {
		enc.SetCustomStructTag("json")
	}
	return enc.Encode(v)
}

func (c Msgpack[V]) Decode(r io.Reader) (V, error) {
	var v V
	dec := msgpack.NewDecoder(r)
	if c.UseJSONTag {
		dec.SetCustomStructTag("json")
	}
	err := dec.Decode(&v)
	return v, err
}
