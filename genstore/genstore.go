// Package genstore tracks a generation counter per storage key.
//
// The Store frames every committed blob with the key's generation at commit
// time and bumps the generation on Delete. A blob whose framed generation is
// not current is treated as deleted, which keeps Delete authoritative even
// when the provider drops or delays the delete.
package genstore

import (
	"context"
	"time"
)

// GenStore abstracts where generations live.
// Use Local (default) for in-process generations, or Redis to share them
// across replicas and restarts.
type GenStore interface {
	// Snapshot returns the current generation; missing => 0.
	Snapshot(ctx context.Context, storageKey string) (uint64, error)
	// Bump atomically increments and returns the new generation.
	Bump(ctx context.Context, storageKey string) (uint64, error)
	// Touch keeps the key's generation alive at least until until, because a
	// blob framed with it lives that long. Zero until means no deadline.
	Touch(ctx context.Context, storageKey string, until time.Time) error
	// Cleanup prunes long-idle entries if applicable (no-op for Redis).
	Cleanup(retention time.Duration)
	// Close releases resources. Safe to call more than once.
	Close(context.Context) error
}
