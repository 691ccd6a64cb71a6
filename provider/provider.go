// Package provider defines the byte store the streamcache Store commits blobs into.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the []byte previously passed to Set for a key. Values are framed by the
// Store; the keyspace "blob:<ns>:" is owned by it, and foreign writes under
// that prefix are treated as corruption and deleted.
//
// A Set must be visible to the next Get from the same process once it
// returns (providers with buffered writes must flush). Neither the provider
// nor the Store mutates a value after Set, so providers may return the
// stored slice without copying.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with TTLs. Must be safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL (<= 0 means no expiry).
	// May ignore cost if unsupported.
	// Returns ok=false when the store refused the write under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key. Deleting a missing key is not an error.
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
