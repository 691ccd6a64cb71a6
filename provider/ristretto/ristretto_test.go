package ristretto

import (
	"context"
	"testing"
)

func newTestProvider(t *testing.T, maxCost int64) *Provider {
	t.Helper()
	p, err := New(Config{NumCounters: 1000, MaxCost: maxCost, BufferItems: 64, Metrics: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p
}

func TestConfigValidation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error for zero config")
	}
}

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t, 1<<20)

	ok, err := p.Set(ctx, "k", []byte("v"), 1, 0)
	if err != nil || !ok {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	b, ok, err := p.Get(ctx, "k")
	if err != nil || !ok || string(b) != "v" {
		t.Fatalf("Get: %q ok=%v err=%v", b, ok, err)
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, ok, _ := p.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after Del")
	}
	if err := p.Del(ctx, "missing"); err != nil {
		t.Fatalf("Del of missing key: %v", err)
	}
	if p.Metrics() == nil {
		t.Fatalf("metrics enabled but nil")
	}
}

func TestCostOverBudgetIsRejected(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t, 10)
	ok, err := p.Set(ctx, "big", make([]byte, 100), 100, 0)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if ok {
		t.Fatalf("entry costing more than MaxCost should be rejected")
	}
}

func TestCloseIdempotent(t *testing.T) {
	p := newTestProvider(t, 100)
	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
