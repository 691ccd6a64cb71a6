package logrus

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/unkn0wn-root/streamcache"
)

func TestLevelsAndFields(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.InfoLevel)
	l := New(base)

	l.Debug("dropped", streamcache.Fields{"key": "k"})
	if len(hook.Entries) != 0 {
		t.Fatalf("debug should be filtered at info level")
	}

	boom := errors.New("boom")
	l.Warn("commit failed", streamcache.Fields{"key": "k", "err": boom})
	e := hook.LastEntry()
	if e == nil || e.Level != logrus.WarnLevel || e.Message != "commit failed" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.Data["key"] != "k" || e.Data[logrus.ErrorKey] != boom {
		t.Fatalf("fields: %v", e.Data)
	}
	if e.Data["component"] != "streamcache" {
		t.Fatalf("component field missing: %v", e.Data)
	}

	l.Error("outage", nil)
	if len(hook.Entries) != 2 || hook.LastEntry().Level != logrus.ErrorLevel {
		t.Fatalf("expected error entry, got %d entries", len(hook.Entries))
	}
}
