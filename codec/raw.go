package codec

import "io"

// Bytes is an identity codec for []byte values.
type Bytes struct{}

func (Bytes) Encode(w io.Writer, b []byte) error {
	_, err := w.Write(b)
	return err
}
func (Bytes) Decode(r io.Reader) ([]byte, error) { return io.ReadAll(r) }

// String stores Go strings as their bytes. No UTF-8 validation.
type String struct{}

func (String) Encode(w io.Writer, s string) error {
	_, err := io.WriteString(w, s)
	return err
}
func (String) Decode(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	return string(b), err
}
