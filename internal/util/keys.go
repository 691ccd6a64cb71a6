package util

import (
	_ "crypto/sha256" // registers the canonical digest algorithm
	"path/filepath"

	"github.com/opencontainers/go-digest"
)

// HashKey returns the hex SHA-256 of key. Backends that map keys onto
// restricted namespaces (file names) use it so any string is a valid key.
func HashKey(key string) string {
	return digest.FromString(key).Encoded()
}

// ShardedPath places the hashed key under a shard directory named by its
// first prefixLen hex chars. prefixLen <= 0 disables sharding.
func ShardedPath(root, key string, prefixLen int) string {
	h := HashKey(key)
	if prefixLen <= 0 {
		return filepath.Join(root, h)
	}
	if prefixLen > len(h) {
		prefixLen = len(h)
	}
	return filepath.Join(root, h[:prefixLen], h)
}

// IsHashKey reports whether name looks like a HashKey result.
func IsHashKey(name string) bool {
	if len(name) != 64 {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
