// Package codec streams typed values into and out of blob handles.
package codec

import "io"

// Codec encodes V onto a writer and decodes it back from a reader.
// Encode must not close w; Decode must not close r.
type Codec[V any] interface {
	Encode(w io.Writer, v V) error
	Decode(r io.Reader) (V, error)
}
