package codec

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"google.golang.org/protobuf/types/known/wrapperspb"
)

type user struct {
	ID      string    `json:"id" msgpack:"id" cbor:"id"`
	Name    string    `json:"name" msgpack:"name" cbor:"name"`
	Created time.Time `json:"created" msgpack:"created" cbor:"created"`
}

func roundTrip[V any](t *testing.T, c Codec[V], v V) V {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Encode(&buf, v); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := c.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return got
}

func TestStructCodecs(t *testing.T) {
	in := user{ID: "1", Name: "Ada", Created: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	codecs := map[string]Codec[user]{
		"json":          JSON[user]{},
		"cbor":          MustCBOR[user](false),
		"cbor-det":      MustCBOR[user](true),
		"msgpack":       Msgpack[user]{},
		"msgpack-jsont": Msgpack[user]{UseJSONTag: true},
	}
	for name, c := range codecs {
		t.Run(name, func(t *testing.T) {
			got := roundTrip(t, c, in)
			if got.ID != in.ID || got.Name != in.Name || !got.Created.Equal(in.Created) {
				t.Fatalf("got %+v want %+v", got, in)
			}
		})
	}
}

func TestCBORDeterministicIsStable(t *testing.T) {
	c := MustCBOR[map[string]int](true)
	m := map[string]int{"b": 2, "a": 1, "c": 3}
	var first bytes.Buffer
	if err := c.Encode(&first, m); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		var again bytes.Buffer
		if err := c.Encode(&again, m); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(first.Bytes(), again.Bytes()) {
			t.Fatalf("deterministic CBOR produced different bytes")
		}
	}
}

func TestProtobuf(t *testing.T) {
	c := NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	got := roundTrip[*wrapperspb.StringValue](t, c, wrapperspb.String("hello"))
	if got.GetValue() != "hello" {
		t.Fatalf("got %q", got.GetValue())
	}
}

func TestRawCodecs(t *testing.T) {
	if got := roundTrip[[]byte](t, Bytes{}, []byte{0, 1, 2}); !bytes.Equal(got, []byte{0, 1, 2}) {
		t.Fatalf("Bytes: got %v", got)
	}
	if got := roundTrip[string](t, String{}, "héllo"); got != "héllo" {
		t.Fatalf("String: got %q", got)
	}
}

func TestLimitRejectsOversized(t *testing.T) {
	c := Limit[string]{Inner: String{}, MaxDecode: 4}

	if _, err := c.Decode(strings.NewReader("12345")); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
	got, err := c.Decode(strings.NewReader("1234"))
	if err != nil || got != "1234" {
		t.Fatalf("at limit: got %q err=%v", got, err)
	}

	unlimited := Limit[string]{Inner: String{}}
	if got, err := unlimited.Decode(strings.NewReader(strings.Repeat("x", 100))); err != nil || len(got) != 100 {
		t.Fatalf("unlimited: len=%d err=%v", len(got), err)
	}
}
