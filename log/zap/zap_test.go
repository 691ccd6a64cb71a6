package zap

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/unkn0wn-root/streamcache"
)

func TestLevelsAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := New(zap.New(core))

	l.Debug("dropped", streamcache.Fields{"key": "k"})
	if logs.Len() != 0 {
		t.Fatalf("debug should be filtered at info level")
	}

	l.Warn("commit failed", streamcache.Fields{"key": "k", "err": errors.New("boom"), "size": 3})
	entries := logs.TakeAll()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.WarnLevel || e.Message != "commit failed" || e.LoggerName != "streamcache" {
		t.Fatalf("unexpected entry %+v", e.Entry)
	}
	ctx := e.ContextMap()
	if ctx["key"] != "k" || ctx["err"] != "boom" || ctx["size"] != int64(3) {
		t.Fatalf("fields: %v", ctx)
	}
	if got := e.Context[0].Key; got != "err" {
		t.Fatalf("fields should be sorted, first key %q", got)
	}
}
