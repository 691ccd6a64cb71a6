package util

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestHashKeyStableAndDistinct(t *testing.T) {
	a1, a2, b := HashKey("a"), HashKey("a"), HashKey("b")
	if a1 != a2 {
		t.Fatalf("HashKey not deterministic: %q vs %q", a1, a2)
	}
	if a1 == b {
		t.Fatalf("distinct keys hashed equal")
	}
	if len(a1) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a1))
	}
}

func TestShardedPath(t *testing.T) {
	h := HashKey("../../etc/passwd")
	if got, want := ShardedPath("/r", "../../etc/passwd", 2), filepath.Join("/r", h[:2], h); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if got, want := ShardedPath("/r", "../../etc/passwd", 0), filepath.Join("/r", h); got != want {
		t.Fatalf("unsharded: got %q want %q", got, want)
	}
	if got, want := ShardedPath("/r", "k", 100), filepath.Join("/r", HashKey("k"), HashKey("k")); got != want {
		t.Fatalf("clamped: got %q want %q", got, want)
	}
}

func TestHashKeyKnownVector(t *testing.T) {
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := HashKey(""); got != empty {
		t.Fatalf("HashKey(\"\") = %s", got)
	}
}

func TestIsHashKey(t *testing.T) {
	if !IsHashKey(HashKey("k")) {
		t.Fatalf("HashKey output rejected")
	}
	for _, name := range []string{"", "README.txt", HashKey("k")[:63], HashKey("k") + "0", strings.ToUpper(HashKey("k")), "w-123"} {
		if IsHashKey(name) {
			t.Fatalf("IsHashKey(%q) = true", name)
		}
	}
}
