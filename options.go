package streamcache

import (
	"time"

	gen "github.com/unkn0wn-root/streamcache/genstore"
	pr "github.com/unkn0wn-root/streamcache/provider"
)

const (
	defaultGenRetention    = 30 * 24 * time.Hour
	defaultSweep           = time.Hour
	defaultMinCompressSize = 1024
)

// SetCostFunc computes the provider cost of a framed blob.
// The default is len(raw), so cost-based providers budget in bytes.
type SetCostFunc func(storageKey string, raw []byte) int64

type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
)

// Options tune the provider-backed Store.
// Only Namespace and Provider are required; others have sensible defaults.
type Options struct {
	// Required
	Namespace string // logical namespace to avoid collisions. e.g. "http", "thumbs"
	Provider  pr.Provider

	Logger          Logger        // if nil, NopLogger is used
	Hooks           Hooks         // if nil, NopHooks is used
	GenStore        gen.GenStore  // nil => genstore.Local (in-process)
	CleanupInterval time.Duration // local gen sweep; 0 => 1h
	GenRetention    time.Duration // local gen retention; 0 => 30d
	DefaultTTL      time.Duration // applied when a write carries no expiry hint; 0 => none
	MaxBlobSize     int64         // uncompressed bytes per blob; 0 => unlimited
	Compression     Compression   // default none; blobs are always readable regardless
	MinCompressSize int           // smaller blobs are stored raw; 0 => 1 KiB
	ComputeSetCost  SetCostFunc   // default len(raw)
	// Disabled turns the Store into a sink: reads miss and a write handle's
	// Close returns nil without storing anything, so a successful commit is
	// not visible. Delete is a no-op.
	Disabled bool
}

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
