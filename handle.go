package streamcache

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

// BytesReader is a ReadHandle over an immutable in-memory snapshot.
// Each BytesReader has its own cursor; many may share one backing slice.
// The slice must not be mutated while any reader holds it.
type BytesReader struct {
	r      bytes.Reader
	size   int64
	closed bool
}

var _ ReadHandle = (*BytesReader)(nil)

func NewBytesReader(b []byte) *BytesReader {
	br := &BytesReader{size: int64(len(b))}
	br.r.Reset(b)
	return br
}

func (r *BytesReader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, closedErr("read")
	}
	return r.r.Read(p)
}

// WriteTo lets io.Copy drain the snapshot without an intermediate buffer.
func (r *BytesReader) WriteTo(w io.Writer) (int64, error) {
	if r.closed {
		return 0, closedErr("read")
	}
	return r.r.WriteTo(w)
}

func (r *BytesReader) Size() int64 { return r.size }

func (r *BytesReader) Close() error {
	if r.closed {
		return closedErr("close reader")
	}
	r.closed = true
	r.r.Reset(nil)
	return nil
}

// Committer installs a finished blob. BufferWriter calls Commit at most once.
type Committer interface {
	Commit(ctx context.Context, key string, blob []byte, opts WriteOptions) error
}

type writeState uint8

const (
	writeOpen writeState = iota
	writeCommitted
	writeDiscarded
	writeFailed
)

// BufferWriter is a WriteHandle that accumulates bytes in a private buffer
// and hands them to a Committer from Close, exactly once.
//
// The ctx passed at construction governs the commit, the way OpenWrite's ctx
// scopes the whole write session.
type BufferWriter struct {
	ctx     context.Context
	key     string
	opts    WriteOptions
	c       Committer
	maxSize int64 // 0 => unlimited

	buf   bytes.Buffer
	state writeState
	err   error // sticky write error; Close will not commit
}

var _ WriteHandle = (*BufferWriter)(nil)

// NewBufferWriter returns an open handle for key. maxSize <= 0 disables the
// size limit.
func NewBufferWriter(ctx context.Context, c Committer, key string, opts WriteOptions, maxSize int64) *BufferWriter {
	return &BufferWriter{ctx: ctx, key: key, opts: opts, c: c, maxSize: maxSize}
}

// Write appends p to the pending blob. When the size limit is hit it accepts
// what fits, returns ErrTooLarge and poisons the handle.
func (w *BufferWriter) Write(p []byte) (int, error) {
	if w.state != writeOpen {
		return 0, closedErr("write")
	}
	if w.err != nil {
		return 0, w.err
	}
	if w.maxSize > 0 && int64(w.buf.Len())+int64(len(p)) > w.maxSize {
		room := w.maxSize - int64(w.buf.Len())
		n, _ := w.buf.Write(p[:room])
		w.err = fmt.Errorf("write %q: %w (limit %d bytes)", w.key, ErrTooLarge, w.maxSize)
		return n, w.err
	}
	return w.buf.Write(p)
}

// Len is the number of bytes buffered so far.
func (w *BufferWriter) Len() int { return w.buf.Len() }

// Close commits the buffered blob. On any failure the store is left as it
// was before the write started.
func (w *BufferWriter) Close() error {
	if w.state != writeOpen {
		return closedErr("close writer")
	}
	if w.err != nil {
		w.state = writeFailed
		w.release()
		return w.err
	}
	w.state = writeCommitted
	err := w.c.Commit(w.ctx, w.key, w.buf.Bytes(), w.opts)
	w.release()
	if err != nil {
		w.state = writeFailed
	}
	return err
}

func (w *BufferWriter) Discard() error {
	switch w.state {
	case writeCommitted, writeFailed:
		return nil
	case writeOpen:
		w.state = writeDiscarded
		w.release()
		return nil
	default:
		return closedErr("discard writer")
	}
}

func (w *BufferWriter) release() {
	// Committers may retain the committed slice; drop our reference instead
	// of resetting so it is never overwritten.
	w.buf = bytes.Buffer{}
}
