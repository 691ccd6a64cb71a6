// Package wire frames stored blobs with the metadata backends need to
// validate them on read.
//
//	magic(4) | ver(1) | flags(1) | gen(u64 be) | expires(i64 be, unix nanos; 0 = none) | vlen(u64 be) | payload(vlen)
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const (
	version byte = 1

	// HeaderSize is the fixed length of the frame header.
	HeaderSize = 4 + 1 + 1 + 8 + 8 + 8
)

// Flag bits.
const (
	FlagZstd byte = 1 << 0
)

var (
	ErrCorrupt = errors.New("streamcache: corrupt entry")
	magic4     = [...]byte{'S', 'C', 'B', 'L'}
)

type Header struct {
	Flags     byte
	Gen       uint64
	ExpiresAt time.Time // zero => no expiry
	Len       uint64
}

// Expired reports whether the header carries an expiry at or before now.
func (h Header) Expired(now time.Time) bool {
	return !h.ExpiresAt.IsZero() && !now.Before(h.ExpiresAt)
}

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// AppendHeader appends the encoded header to dst.
func AppendHeader(dst []byte, h Header) []byte {
	dst = append(dst, magic4[:]...)
	dst = append(dst, version, h.Flags)
	dst = binary.BigEndian.AppendUint64(dst, h.Gen)
	var exp int64
	if !h.ExpiresAt.IsZero() {
		exp = h.ExpiresAt.UnixNano()
	}
	dst = binary.BigEndian.AppendUint64(dst, uint64(exp))
	dst = binary.BigEndian.AppendUint64(dst, h.Len)
	return dst
}

// DecodeHeader parses the first HeaderSize bytes of b.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize || !hasMagic(b) || b[4] != version {
		return Header{}, ErrCorrupt
	}
	h := Header{Flags: b[5]}
	off := 6

	h.Gen = binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	if exp := int64(binary.BigEndian.Uint64(b[off : off+8])); exp != 0 {
		h.ExpiresAt = time.Unix(0, exp)
	}
	off += 8

	h.Len = binary.BigEndian.Uint64(b[off : off+8])
	return h, nil
}

// Encode frames payload; h.Len is overwritten with len(payload).
func Encode(h Header, payload []byte) []byte {
	h.Len = uint64(len(payload))
	out := make([]byte, 0, HeaderSize+len(payload))
	out = AppendHeader(out, h)
	return append(out, payload...)
}

// Decode validates a frame and returns its header and payload.
// The payload aliases b. Trailing bytes are rejected.
func Decode(b []byte) (Header, []byte, error) {
	h, err := DecodeHeader(b)
	if err != nil {
		return Header{}, nil, err
	}
	rest := b[HeaderSize:]
	if h.Len != uint64(len(rest)) {
		return Header{}, nil, ErrCorrupt
	}
	return h, rest, nil
}
