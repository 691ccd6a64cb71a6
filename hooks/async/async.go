// Package asynchook moves hook delivery off the read and commit paths.
//
//	raw := sloghook.New(slog.Default(), sloghook.Options{SelfHealEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	store, _ := streamcache.New(streamcache.Options{
//	    Namespace: "thumbs",
//	    Provider:  provider,
//	    Hooks:     hooks, // or raw if you don't want async
//	})
//
// Events are dropped, never blocked on, when the queue is full.
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/streamcache"
)

type Hooks struct {
	inner   streamcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	mu      sync.RWMutex // guards q against send-after-close
	closed  bool
	once    sync.Once
	dropped atomic.Uint64
}

var _ streamcache.Hooks = (*Hooks)(nil)

func New(inner streamcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events fired after
// Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were lost to a full queue or a closed hook.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) SelfHeal(k, r string)             { h.try(func() { h.inner.SelfHeal(k, r) }) }
func (h *Hooks) GenBumpError(k string, err error) { h.try(func() { h.inner.GenBumpError(k, err) }) }
func (h *Hooks) CommitFailed(k string, err error) { h.try(func() { h.inner.CommitFailed(k, err) }) }
func (h *Hooks) ProviderSetRejected(k string, size int) {
	h.try(func() { h.inner.ProviderSetRejected(k, size) })
}
func (h *Hooks) GenSnapshotError(k string, err error) {
	h.try(func() { h.inner.GenSnapshotError(k, err) })
}
func (h *Hooks) DeleteOutage(k string, be, de error) {
	h.try(func() { h.inner.DeleteOutage(k, be, de) })
}
