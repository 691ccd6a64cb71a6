// Package cachetest is a conformance suite for streamcache.Cache backends.
//
//	func TestConformance(t *testing.T) {
//	    cachetest.Run(t, func(t *testing.T) streamcache.Cache { return mybackend.New(...) })
//	}
package cachetest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/unkn0wn-root/streamcache"
)

// Factory returns a fresh, empty cache. Run closes it when each subtest ends.
type Factory func(t *testing.T) streamcache.Cache

// Options relax checks for backends whose documented policy differs.
type Options struct {
	// DeleteMissingIsNoop: Delete of an absent key returns nil instead of ErrNotFound.
	DeleteMissingIsNoop bool
}

func Run(t *testing.T, newCache Factory) {
	RunWithOptions(t, newCache, Options{})
}

func RunWithOptions(t *testing.T, newCache Factory, o Options) {
	tests := []struct {
		name string
		fn   func(t *testing.T, c streamcache.Cache)
	}{
		{"RoundTrip", testRoundTrip},
		{"EmptyBlob", testEmptyBlob},
		{"InvisibleBeforeCommit", testInvisibleBeforeCommit},
		{"OverwriteInvisibleUntilCommit", testOverwriteInvisibleUntilCommit},
		{"DiscardLeavesStoreUnchanged", testDiscard},
		{"DeleteRemovesVisibility", testDelete},
		{"DeleteMissing", func(t *testing.T, c streamcache.Cache) { testDeleteMissing(t, c, o) }},
		{"IndependentCursors", testIndependentCursors},
		{"PartialReadsCompose", testPartialReads},
		{"ReadAfterClose", testReadAfterClose},
		{"DoubleCommit", testDoubleCommit},
		{"LastCommitterWins", testLastCommitterWins},
		{"ExampleScenario", testExampleScenario},
		{"UseAfterCacheClose", testUseAfterCacheClose},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newCache(t)
			t.Cleanup(func() { _ = c.Close(context.Background()) })
			tc.fn(t, c)
		})
	}
}

// Put writes blob under key in several Write calls and commits it.
func Put(t *testing.T, c streamcache.Cache, key string, blob []byte, opts ...streamcache.WriteOption) {
	t.Helper()
	w, err := c.OpenWrite(context.Background(), key, opts...)
	if err != nil {
		t.Fatalf("OpenWrite(%q): %v", key, err)
	}
	for len(blob) > 0 {
		n := min(len(blob), 7)
		written, err := w.Write(blob[:n])
		if err != nil {
			t.Fatalf("Write(%q): %v", key, err)
		}
		blob = blob[written:]
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close(%q): %v", key, err)
	}
}

// Get reads the whole blob under key.
func Get(t *testing.T, c streamcache.Cache, key string) []byte {
	t.Helper()
	r, err := c.OpenRead(context.Background(), key)
	if err != nil {
		t.Fatalf("OpenRead(%q): %v", key, err)
	}
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll(%q): %v", key, err)
	}
	return b
}

// RequireNotFound asserts OpenRead fails with ErrNotFound and returns no handle.
func RequireNotFound(t *testing.T, c streamcache.Cache, key string) {
	t.Helper()
	r, err := c.OpenRead(context.Background(), key)
	if !errors.Is(err, streamcache.ErrNotFound) {
		t.Fatalf("OpenRead(%q): expected ErrNotFound, got %v", key, err)
	}
	if r != nil {
		t.Fatalf("OpenRead(%q): returned a handle alongside ErrNotFound", key)
	}
}

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*31 + 7)
	}
	return b
}

func testRoundTrip(t *testing.T, c streamcache.Cache) {
	for _, n := range []int{1, 5, 4096, 1 << 16} {
		blob := payload(n)
		Put(t, c, "k", blob)
		if got := Get(t, c, "k"); !bytes.Equal(got, blob) {
			t.Fatalf("round trip of %d bytes mismatched (got %d bytes)", n, len(got))
		}
	}
}

func testEmptyBlob(t *testing.T, c streamcache.Cache) {
	Put(t, c, "empty", nil)
	r, err := c.OpenRead(context.Background(), "empty")
	if err != nil {
		t.Fatalf("empty blob must be readable: %v", err)
	}
	defer r.Close()
	if r.Size() != 0 {
		t.Fatalf("Size: got %d want 0", r.Size())
	}
	n, err := r.Read(make([]byte, 8))
	if n != 0 || err != io.EOF {
		t.Fatalf("Read on empty blob: n=%d err=%v, want 0, io.EOF", n, err)
	}
}

func testInvisibleBeforeCommit(t *testing.T, c streamcache.Cache) {
	w, err := c.OpenWrite(context.Background(), "pending")
	if err != nil {
		t.Fatalf("OpenWrite: %v", err)
	}
	defer w.Discard()
	if _, err := w.Write([]byte("not yet")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	RequireNotFound(t, c, "pending")
}

func testOverwriteInvisibleUntilCommit(t *testing.T, c streamcache.Cache) {
	Put(t, c, "k", []byte("old"))

	w, err := c.OpenWrite(context.Background(), "k")
	if err != nil {
		t.Fatalf("OpenWrite: %v", err)
	}
	if _, err := w.Write([]byte("new!")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := Get(t, c, "k"); string(got) != "old" {
		t.Fatalf("before commit: got %q want old", got)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := Get(t, c, "k"); string(got) != "new!" {
		t.Fatalf("after commit: got %q want new!", got)
	}
}

func testDiscard(t *testing.T, c streamcache.Cache) {
	Put(t, c, "k", []byte("keep"))

	w, err := c.OpenWrite(context.Background(), "k")
	if err != nil {
		t.Fatalf("OpenWrite: %v", err)
	}
	if _, err := w.Write([]byte("drop")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Discard(); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if err := w.Close(); !errors.Is(err, streamcache.ErrClosed) {
		t.Fatalf("Close after Discard: expected ErrClosed, got %v", err)
	}
	if _, err := w.Write([]byte("x")); !errors.Is(err, streamcache.ErrClosed) {
		t.Fatalf("Write after Discard: expected ErrClosed, got %v", err)
	}
	if got := Get(t, c, "k"); string(got) != "keep" {
		t.Fatalf("discarded write leaked: got %q", got)
	}
}

func testDelete(t *testing.T, c streamcache.Cache) {
	Put(t, c, "k", []byte("v"))
	if err := c.Delete(context.Background(), "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	RequireNotFound(t, c, "k")

	// the key is reusable
	Put(t, c, "k", []byte("v2"))
	if got := Get(t, c, "k"); string(got) != "v2" {
		t.Fatalf("after re-put: got %q", got)
	}
}

func testDeleteMissing(t *testing.T, c streamcache.Cache, o Options) {
	err := c.Delete(context.Background(), "never-written")
	if o.DeleteMissingIsNoop {
		if err != nil {
			t.Fatalf("Delete missing: expected nil, got %v", err)
		}
	} else if !errors.Is(err, streamcache.ErrNotFound) {
		t.Fatalf("Delete missing: expected ErrNotFound, got %v", err)
	}
	// state intact
	Put(t, c, "other", []byte("x"))
	if got := Get(t, c, "other"); string(got) != "x" {
		t.Fatalf("state corrupted after Delete missing: %q", got)
	}
}

func testIndependentCursors(t *testing.T, c streamcache.Cache) {
	blob := payload(100)
	Put(t, c, "k", blob)

	ctx := context.Background()
	r1, err := c.OpenRead(ctx, "k")
	if err != nil {
		t.Fatalf("OpenRead 1: %v", err)
	}
	defer r1.Close()
	r2, err := c.OpenRead(ctx, "k")
	if err != nil {
		t.Fatalf("OpenRead 2: %v", err)
	}
	defer r2.Close()

	head := make([]byte, 40)
	if _, err := io.ReadFull(r1, head); err != nil {
		t.Fatalf("read r1: %v", err)
	}
	all2, err := io.ReadAll(r2)
	if err != nil {
		t.Fatalf("read r2: %v", err)
	}
	if !bytes.Equal(all2, blob) {
		t.Fatalf("r2 did not start at offset zero")
	}
	rest1, err := io.ReadAll(r1)
	if err != nil {
		t.Fatalf("read r1 rest: %v", err)
	}
	if !bytes.Equal(append(head, rest1...), blob) {
		t.Fatalf("r1 cursor disturbed by r2")
	}
}

func testPartialReads(t *testing.T, c streamcache.Cache) {
	blob := payload(1000)
	Put(t, c, "k", blob)

	for _, a := range []int{0, 1, 333, 999, 1000} {
		r, err := c.OpenRead(context.Background(), "k")
		if err != nil {
			t.Fatalf("OpenRead: %v", err)
		}
		if r.Size() != int64(len(blob)) {
			t.Fatalf("Size: got %d want %d", r.Size(), len(blob))
		}
		first := make([]byte, a)
		if _, err := io.ReadFull(r, first); err != nil {
			t.Fatalf("first read of %d: %v", a, err)
		}
		second := make([]byte, len(blob)-a)
		if _, err := io.ReadFull(r, second); err != nil {
			t.Fatalf("second read of %d: %v", len(blob)-a, err)
		}
		if !bytes.Equal(append(first, second...), blob) {
			t.Fatalf("split at %d does not compose", a)
		}
		if n, err := r.Read(make([]byte, 1)); n != 0 || err != io.EOF {
			t.Fatalf("after full read: n=%d err=%v, want 0, io.EOF", n, err)
		}
		_ = r.Close()
	}
}

func testReadAfterClose(t *testing.T, c streamcache.Cache) {
	Put(t, c, "k", []byte("v"))
	r, err := c.OpenRead(context.Background(), "k")
	if err != nil {
		t.Fatalf("OpenRead: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := r.Read(make([]byte, 1)); !errors.Is(err, streamcache.ErrClosed) {
		t.Fatalf("Read after Close: expected ErrClosed, got %v", err)
	}
	if err := r.Close(); !errors.Is(err, streamcache.ErrClosed) {
		t.Fatalf("second Close: expected ErrClosed, got %v", err)
	}
}

func testDoubleCommit(t *testing.T, c streamcache.Cache) {
	ctx := context.Background()
	w, err := c.OpenWrite(ctx, "k")
	if err != nil {
		t.Fatalf("OpenWrite: %v", err)
	}
	if _, err := w.Write([]byte("first")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// A newer commit must survive the stale handle being closed again.
	Put(t, c, "k", []byte("second"))
	if err := w.Close(); !errors.Is(err, streamcache.ErrClosed) {
		t.Fatalf("second Close: expected ErrClosed, got %v", err)
	}
	if err := w.Discard(); err != nil {
		t.Fatalf("Discard after commit should be a no-op, got %v", err)
	}
	if got := Get(t, c, "k"); string(got) != "second" {
		t.Fatalf("double Close re-applied a commit: got %q", got)
	}
}

func testLastCommitterWins(t *testing.T, c streamcache.Cache) {
	ctx := context.Background()
	w1, err := c.OpenWrite(ctx, "k")
	if err != nil {
		t.Fatalf("OpenWrite 1: %v", err)
	}
	w2, err := c.OpenWrite(ctx, "k")
	if err != nil {
		t.Fatalf("OpenWrite 2: %v", err)
	}
	_, _ = w1.Write([]byte("one"))
	_, _ = w2.Write([]byte("two"))
	if err := w2.Close(); err != nil {
		t.Fatalf("Close 2: %v", err)
	}
	if err := w1.Close(); err != nil {
		t.Fatalf("Close 1: %v", err)
	}
	if got := Get(t, c, "k"); string(got) != "one" {
		t.Fatalf("last committer should win: got %q", got)
	}
}

func testExampleScenario(t *testing.T, c streamcache.Cache) {
	ctx := context.Background()
	w, err := c.OpenWrite(ctx, "a")
	if err != nil {
		t.Fatalf("OpenWrite: %v", err)
	}
	if n, err := w.Write([]byte("hello")); err != nil || n != 5 {
		t.Fatalf("Write hello: n=%d err=%v", n, err)
	}
	if n, err := w.Write([]byte(" world")); err != nil || n != 6 {
		t.Fatalf("Write world: n=%d err=%v", n, err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := Get(t, c, "a"); string(got) != "hello world" {
		t.Fatalf("got %q want %q", got, "hello world")
	}
	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	RequireNotFound(t, c, "a")
}

func testUseAfterCacheClose(t *testing.T, c streamcache.Cache) {
	ctx := context.Background()
	Put(t, c, "k", []byte("v"))

	pending, err := c.OpenWrite(ctx, "late")
	if err != nil {
		t.Fatalf("OpenWrite: %v", err)
	}
	_, _ = pending.Write([]byte("x"))

	if err := c.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(ctx); err != nil {
		t.Fatalf("second Close should be a no-op, got %v", err)
	}
	if _, err := c.OpenRead(ctx, "k"); !errors.Is(err, streamcache.ErrClosed) {
		t.Fatalf("OpenRead after Close: expected ErrClosed, got %v", err)
	}
	if _, err := c.OpenWrite(ctx, "k"); !errors.Is(err, streamcache.ErrClosed) {
		t.Fatalf("OpenWrite after Close: expected ErrClosed, got %v", err)
	}
	if err := c.Delete(ctx, "k"); !errors.Is(err, streamcache.ErrClosed) {
		t.Fatalf("Delete after Close: expected ErrClosed, got %v", err)
	}
	if err := pending.Close(); !errors.Is(err, streamcache.ErrClosed) {
		t.Fatalf("commit after cache Close: expected ErrClosed, got %v", err)
	}
}
