package codec

import (
	"io"

	"google.golang.org/protobuf/proto"
)

// Protobuf encodes a single message per blob. Protobuf has no framing, so
// Decode reads the reader to EOF.
type Protobuf[T proto.Message] struct {
	new func() T // e.g. func() *mypb.User { return &mypb.User{} }
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Encode(w io.Writer, v T) error {
	b, err := proto.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func (c Protobuf[T]) Decode(r io.Reader) (T, error) {
	m := c.new()
	b, err := io.ReadAll(r)
	if err != nil {
		return m, err
	}
	err = proto.Unmarshal(b, m)
	return m, err
}
