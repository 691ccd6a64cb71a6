package disk

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/unkn0wn-root/streamcache"
	"github.com/unkn0wn-root/streamcache/internal/wire"
)

type reader struct {
	f      *os.File
	size   int64
	closed bool
}

func (r *reader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, fmt.Errorf("read: %w", streamcache.ErrClosed)
	}
	return r.f.Read(p)
}

// WriteTo lets io.Copy use sendfile/copy_file_range when the target allows it.
func (r *reader) WriteTo(w io.Writer) (int64, error) {
	if r.closed {
		return 0, fmt.Errorf("read: %w", streamcache.ErrClosed)
	}
	return io.Copy(w, r.f)
}

func (r *reader) Size() int64 { return r.size }

func (r *reader) Close() error {
	if r.closed {
		return fmt.Errorf("close reader: %w", streamcache.ErrClosed)
	}
	r.closed = true
	return r.f.Close()
}

type writeState uint8

const (
	writeOpen writeState = iota
	writeCommitted
	writeDiscarded
	writeFailed
)

// writer streams into a temp file and renames it into place on Close.
// mu guards against Cache.Close aborting it from another goroutine.
type writer struct {
	c       *Cache
	key     string
	final   string
	tmpPath string
	opts    streamcache.WriteOptions

	mu    sync.Mutex
	f     *os.File
	n     int64
	state writeState
	err   error
}

func (w *writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != writeOpen {
		return 0, fmt.Errorf("write: %w", streamcache.ErrClosed)
	}
	if w.err != nil {
		return 0, w.err
	}

	var tooLarge bool
	if limit := w.c.maxSize; limit > 0 && w.n+int64(len(p)) > limit {
		p = p[:limit-w.n]
		tooLarge = true
	}
	n, err := w.f.Write(p)
	w.n += int64(n)
	if err != nil {
		w.err = exhausted(err)
		return n, w.err
	}
	if tooLarge {
		w.err = fmt.Errorf("write %q: %w", w.key, streamcache.ErrTooLarge)
		return n, w.err
	}
	return n, nil
}

// Close commits the blob. A second Close, or a Close after Discard or after
// the cache was closed, returns ErrClosed.
func (w *writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.state {
	case writeOpen:
	case writeFailed:
		if errors.Is(w.err, streamcache.ErrClosed) {
			return w.err
		}
		return fmt.Errorf("close writer: %w", streamcache.ErrClosed)
	default:
		return fmt.Errorf("close writer: %w", streamcache.ErrClosed)
	}

	if !w.c.unregister(w) {
		w.fail(fmt.Errorf("commit %q: %w", w.key, streamcache.ErrClosed))
		return w.err
	}
	if w.err != nil {
		err := w.err
		w.fail(err)
		return err
	}
	if err := w.commit(); err != nil {
		w.c.hooks.CommitFailed(w.final, err)
		w.c.log.Warn("disk: commit failed", streamcache.Fields{"key": w.key, "err": err})
		w.fail(fmt.Errorf("disk: commit %q: %w", w.key, exhausted(err)))
		return w.err
	}
	w.state = writeCommitted
	w.f = nil
	return nil
}

func (w *writer) commit() error {
	hdr := wire.AppendHeader(make([]byte, 0, wire.HeaderSize), wire.Header{
		ExpiresAt: w.opts.ExpiresAt,
		Len:       uint64(w.n),
	})
	if _, err := w.f.WriteAt(hdr, 0); err != nil {
		return err
	}
	if err := w.f.Close(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(w.final), w.c.dirPerm); err != nil {
		return err
	}
	return os.Rename(w.tmpPath, w.final)
}

// Discard drops the pending blob. It is a no-op once the handle has
// committed or failed.
func (w *writer) Discard() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.state {
	case writeCommitted, writeFailed:
		return nil
	case writeDiscarded:
		return fmt.Errorf("discard: %w", streamcache.ErrClosed)
	}
	w.c.unregister(w)
	w.cleanup()
	w.state = writeDiscarded
	return nil
}

// abort is called by Cache.Close for writers still open.
func (w *writer) abort() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != writeOpen {
		return nil
	}
	err := w.cleanup()
	w.err = fmt.Errorf("commit %q: %w", w.key, streamcache.ErrClosed)
	w.state = writeFailed
	return err
}

func (w *writer) fail(err error) {
	w.cleanup()
	w.err = err
	w.state = writeFailed
}

func (w *writer) cleanup() error {
	var errs []error
	if w.f != nil {
		// already closed by a failed commit is fine
		if err := w.f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
		w.f = nil
	}
	if err := os.Remove(w.tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
