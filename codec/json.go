package codec

import (
	"encoding/json"
	"io"
)

// JSON streams values with encoding/json. The zero value is ready to use.
type JSON[V any] struct{}

var _ Codec[struct{}] = JSON[struct{}]{}

func (JSON[V]) Encode(w io.Writer, v V) error { return json.NewEncoder(w).Encode(v) }

func (JSON[V]) Decode(r io.Reader) (V, error) {
	var v V
	err := json.NewDecoder(r).Decode(&v)
	return v, err
}
