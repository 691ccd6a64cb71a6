package streamcache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

type recordingCommitter struct {
	calls int
	key   string
	blob  []byte
	opts  WriteOptions
	err   error
}

func (r *recordingCommitter) Commit(_ context.Context, key string, blob []byte, opts WriteOptions) error {
	r.calls++
	r.key, r.blob, r.opts = key, blob, opts
	return r.err
}

func TestBufferWriterCommitsOnce(t *testing.T) {
	rc := &recordingCommitter{}
	w := NewBufferWriter(context.Background(), rc, "k", WriteOptions{}, 0)

	for _, s := range []string{"hello", " ", "world"} {
		if n, err := w.Write([]byte(s)); err != nil || n != len(s) {
			t.Fatalf("Write(%q): n=%d err=%v", s, n, err)
		}
	}
	if w.Len() != 11 {
		t.Fatalf("Len: %d", w.Len())
	}
	if rc.calls != 0 {
		t.Fatalf("committed before Close")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); !errors.Is(err, ErrClosed) {
		t.Fatalf("second Close: %v", err)
	}
	if rc.calls != 1 || rc.key != "k" || string(rc.blob) != "hello world" {
		t.Fatalf("commit: calls=%d key=%q blob=%q", rc.calls, rc.key, rc.blob)
	}
	if _, err := w.Write([]byte("x")); !errors.Is(err, ErrClosed) {
		t.Fatalf("Write after Close: %v", err)
	}
}

func TestBufferWriterCommitErrorSurfaces(t *testing.T) {
	boom := errors.New("boom")
	rc := &recordingCommitter{err: boom}
	w := NewBufferWriter(context.Background(), rc, "k", WriteOptions{}, 0)
	_, _ = w.Write([]byte("x"))
	if err := w.Close(); !errors.Is(err, boom) {
		t.Fatalf("Close: expected boom, got %v", err)
	}
	if err := w.Discard(); err != nil {
		t.Fatalf("Discard after failed commit: %v", err)
	}
	if rc.calls != 1 {
		t.Fatalf("calls: %d", rc.calls)
	}
}

func TestBufferWriterLimitPoisons(t *testing.T) {
	rc := &recordingCommitter{}
	w := NewBufferWriter(context.Background(), rc, "k", WriteOptions{}, 3)
	n, err := w.Write([]byte("abcd"))
	if n != 3 || !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Write: n=%d err=%v", n, err)
	}
	if _, err := w.Write([]byte("z")); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Write after limit: %v", err)
	}
	if err := w.Close(); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Close: %v", err)
	}
	if rc.calls != 0 {
		t.Fatalf("poisoned handle committed")
	}
}

func TestBufferWriterDiscard(t *testing.T) {
	rc := &recordingCommitter{}
	w := NewBufferWriter(context.Background(), rc, "k", WriteOptions{}, 0)
	_, _ = w.Write([]byte("x"))
	if err := w.Discard(); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if err := w.Discard(); !errors.Is(err, ErrClosed) {
		t.Fatalf("second Discard: %v", err)
	}
	if err := w.Close(); !errors.Is(err, ErrClosed) {
		t.Fatalf("Close after Discard: %v", err)
	}
	if rc.calls != 0 {
		t.Fatalf("discarded handle committed")
	}
}

func TestBytesReader(t *testing.T) {
	src := []byte("0123456789")
	r := NewBytesReader(src)
	if r.Size() != 10 {
		t.Fatalf("Size: %d", r.Size())
	}
	p := make([]byte, 4)
	if n, err := r.Read(p); n != 4 || err != nil || string(p) != "0123" {
		t.Fatalf("Read: n=%d err=%v p=%q", n, err, p)
	}
	var rest bytes.Buffer
	if _, err := io.Copy(&rest, r); err != nil || rest.String() != "456789" {
		t.Fatalf("Copy: %q err=%v", rest.String(), err)
	}
	if n, err := r.Read(p); n != 0 || err != io.EOF {
		t.Fatalf("EOF: n=%d err=%v", n, err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := r.Read(p); !errors.Is(err, ErrClosed) {
		t.Fatalf("Read after Close: %v", err)
	}
	if _, err := r.WriteTo(io.Discard); !errors.Is(err, ErrClosed) {
		t.Fatalf("WriteTo after Close: %v", err)
	}
}
