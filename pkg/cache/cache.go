// Package cache implements the SUT/annotator response cache (spec.md §4.2):
// a key-value store keyed on the canonical request produced by
// pkg/cachekey, with Null, in-memory, and disk-backed variants sharing one
// contract.
package cache

import "errors"

// ErrMiss is returned by Get when key is not present.
var ErrMiss = errors.New("cache: miss")

// Cache is the contract every cache variant satisfies. Values are raw bytes
// (the caller owns JSON-encoding a response before Set and decoding it after
// Get), keeping this package agnostic to the SUT/annotator response shape.
type Cache interface {
	// Get returns the cached value for key, or ErrMiss if absent.
	Get(key string) ([]byte, error)
	// Set stores value under key, overwriting any prior value.
	Set(key string, value []byte) error
	// Len reports the number of entries currently stored.
	Len() (int, error)
	// Close releases any resources the cache holds (file handles, etc).
	// Null and in-memory caches treat Close as a no-op.
	Close() error
	// CacheStats reports this cache's cumulative gets/puts/hits, for the
	// run journal's "cache info" entries, written once per cache at the end
	// of a run (spec.md §6).
	CacheStats() (gets, puts, hits int64)
}

// Stats are the cumulative counters every cache variant exposes: gets,
// puts, and hits. There is no size counter; Len reports the current entry
// count. They are safe for concurrent use; each cache variant updates them
// atomically.
type Stats struct {
	Gets Counter
	Puts Counter
	Hits Counter
}

// Snapshot returns a point-in-time copy of the counters.
func (s *Stats) Snapshot() (gets, puts, hits int64) {
	return s.Gets.Load(), s.Puts.Load(), s.Hits.Load()
}
