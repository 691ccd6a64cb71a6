package genstore

import (
	"context"
	"sync"
	"time"
)

type localEntry struct {
	gen       uint64
	touched   time.Time
	keepUntil time.Time // live blob framed with gen expires then
	pinned    bool      // live blob framed with gen never expires
}

// Local keeps generations in-process.
//
// An entry is pruned once it is older than retention and no live blob is
// framed with its generation (see Touch). Pruned keys fall back to
// generation 0, so retention must outlive any blob the provider might still
// hold for a deleted key.
type Local struct {
	mu   sync.RWMutex
	gens map[string]localEntry

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ GenStore = (*Local)(nil)

// NewLocal starts a cleanup loop when both cleanupInterval and retention are > 0.
func NewLocal(cleanupInterval, retention time.Duration) *Local {
	s := &Local{gens: make(map[string]localEntry)}
	if cleanupInterval <= 0 || retention <= 0 {
		return s
	}
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.sweep(cleanupInterval, retention)
	return s
}

func (s *Local) sweep(every, retention time.Duration) {
	defer s.wg.Done()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.Cleanup(retention)
		case <-s.stop:
			return
		}
	}
}

func (s *Local) Snapshot(_ context.Context, k string) (uint64, error) {
	s.mu.RLock()
	e := s.gens[k]
	s.mu.RUnlock()
	return e.gen, nil
}

func (s *Local) Bump(_ context.Context, k string) (uint64, error) {
	now := time.Now()
	s.mu.Lock()
	e := s.gens[k]
	e.gen++
	e.touched = now
	// blobs framed with the old gen are dead now
	e.keepUntil, e.pinned = time.Time{}, false
	s.gens[k] = e
	s.mu.Unlock()
	return e.gen, nil
}

// Touch records that a blob framed with the key's current generation lives
// until until (zero: forever). Missing keys are generation 0 and need no entry.
func (s *Local) Touch(_ context.Context, k string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.gens[k]
	if !ok {
		return nil
	}
	if until.IsZero() {
		e.pinned = true
	} else if until.After(e.keepUntil) {
		e.keepUntil = until
	}
	e.touched = time.Now()
	s.gens[k] = e
	return nil
}

func (s *Local) Cleanup(retention time.Duration) {
	if retention <= 0 {
		return
	}
	now := time.Now()
	cutoff := now.Add(-retention)

	s.mu.Lock()
	for k, e := range s.gens {
		if e.pinned || e.keepUntil.After(now) {
			continue
		}
		if e.touched.Before(cutoff) {
			delete(s.gens, k)
		}
	}
	s.mu.Unlock()
}

// Len reports how many keys currently carry a generation.
func (s *Local) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.gens)
}

func (s *Local) Close(_ context.Context) error {
	s.closeOnce.Do(func() {
		if s.stop != nil {
			close(s.stop)
			s.wg.Wait()
		}
	})
	return nil
}
