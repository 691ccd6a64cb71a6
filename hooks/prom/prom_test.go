package promhook

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/unkn0wn-root/streamcache"
)

func TestCounters(t *testing.T) {
	h, err := New("app", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	h.SelfHeal("k", streamcache.ReasonExpired)
	h.SelfHeal("k", streamcache.ReasonExpired)
	h.SelfHeal("k", streamcache.ReasonCorrupt)
	h.ProviderSetRejected("k", 100)
	h.ProviderSetRejected("k", 28)
	h.CommitFailed("k", errors.New("x"))
	h.GenBumpError("k", errors.New("x"))
	h.DeleteOutage("k", errors.New("a"), errors.New("b"))

	if got := testutil.ToFloat64(h.selfHeals.WithLabelValues(streamcache.ReasonExpired)); got != 2 {
		t.Fatalf("expired self-heals: %v", got)
	}
	if got := testutil.ToFloat64(h.rejected); got != 2 {
		t.Fatalf("rejected: %v", got)
	}
	if got := testutil.ToFloat64(h.rejectedSize); got != 128 {
		t.Fatalf("rejected bytes: %v", got)
	}
	if got := testutil.ToFloat64(h.genErrors.WithLabelValues("bump")); got != 1 {
		t.Fatalf("bump errors: %v", got)
	}
	if got := testutil.ToFloat64(h.outages); got != 1 {
		t.Fatalf("outages: %v", got)
	}
}

func TestSharedRegistryReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := New("app", reg)
	if err != nil {
		t.Fatalf("New a: %v", err)
	}
	b, err := New("app", reg)
	if err != nil {
		t.Fatalf("New b: %v", err)
	}
	a.CommitFailed("k", nil)
	b.CommitFailed("k", nil)
	if got := testutil.ToFloat64(a.commitFailed); got != 2 {
		t.Fatalf("shared counter: %v", got)
	}
}

func TestHandler(t *testing.T) {
	h, err := New("app", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.CommitFailed("k", nil)

	rec := httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "app_streamcache_commit_failures_total 1") {
		t.Fatalf("metrics output missing counter:\n%s", body)
	}
}
