// Package streamcache defines a streaming blob storage contract for cache
// policy layers (e.g. an HTTP response cache) and ships backends for it.
// Callers stream bytes in and out through handles; nothing requires the
// whole payload to be held by the caller.
//
// Contract:
//   - Cache: OpenRead / OpenWrite / Delete / Close.
//   - WriteHandle: Write buffers privately; Close is the single atomic commit.
//     A handle never closed (or Discarded) leaves the store unchanged.
//   - ReadHandle: io.Reader with its own cursor over one committed snapshot.
//
// Backends:
//   - memory: reference implementation used for conformance testing.
//   - disk:   streaming files, temp-file + rename commits.
//   - Store:  any provider.Provider (Ristretto, BigCache, Redis) with wire
//     framing, optional zstd, lazy expiry and per-key generations.
//
// Keys (Store):
//
//	blob:<ns>:<key>
//
// Delete bumps the key's generation before removing the provider entry, so a
// blob framed under an older generation is rejected on read even if the
// provider delete was lost or is applied asynchronously.
//
// Writing:
//
//	w, _ := c.OpenWrite(ctx, key, streamcache.WithTTL(time.Minute))
//	defer w.Discard() // no-op after a successful Close
//	_, err := io.Copy(w, resp.Body)
//	...
//	err = w.Close() // commit
//
// Read-through with coalesced fills:
//
//	l := streamcache.NewLoader(c, func(ctx context.Context, key string, w io.Writer) error {
//	    return fetchOrigin(ctx, key, w)
//	})
//	r, err := l.Open(ctx, key)
package streamcache
