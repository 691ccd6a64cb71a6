package asynchook

import (
	"errors"
	"sync"
	"testing"

	"github.com/unkn0wn-root/streamcache"
)

type countingHooks struct {
	streamcache.NopHooks
	mu     sync.Mutex
	events []string
	block  chan struct{}
}

func (c *countingHooks) record(ev string) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *countingHooks) SelfHeal(_, reason string)         { c.record("self_heal:" + reason) }
func (c *countingHooks) CommitFailed(string, error)        { c.record("commit_failed") }
func (c *countingHooks) DeleteOutage(string, error, error) { c.record("delete_outage") }
func (c *countingHooks) ProviderSetRejected(string, int)   { c.record("rejected") }

func TestDeliversAllBeforeClose(t *testing.T) {
	inner := &countingHooks{}
	h := New(inner, 2, 16)

	h.SelfHeal("k", streamcache.ReasonExpired)
	h.CommitFailed("k", errors.New("x"))
	h.DeleteOutage("k", errors.New("a"), errors.New("b"))
	h.ProviderSetRejected("k", 10)
	h.Close()

	if len(inner.events) != 4 {
		t.Fatalf("expected 4 events, got %v", inner.events)
	}
	if h.Dropped() != 0 {
		t.Fatalf("unexpected drops: %d", h.Dropped())
	}
}

func TestDropsWhenFullOrClosed(t *testing.T) {
	inner := &countingHooks{block: make(chan struct{})}
	h := New(inner, 1, 1)

	// worker takes the first event and blocks; the second fills the queue
	h.SelfHeal("k", "a")
	for i := 0; i < 10; i++ {
		h.SelfHeal("k", "b")
	}
	if h.Dropped() == 0 {
		t.Fatalf("expected drops with a full queue")
	}
	close(inner.block)
	h.Close()

	before := h.Dropped()
	h.SelfHeal("k", "late")
	h.Close()
	if h.Dropped() != before+1 {
		t.Fatalf("event after Close should count as dropped")
	}
}
