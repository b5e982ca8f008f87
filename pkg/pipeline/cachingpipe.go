package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mlcommons/modelbench-runner/pkg/cache"
)

// KeyFunc derives the cache key for an item.
type KeyFunc func(item any) (string, error)

// ComputeFunc does the uncached work for an item, returning the value to
// cache and pass downstream.
type ComputeFunc func(ctx context.Context, item any) (any, error)

// Codec marshals/unmarshals the values ComputeFunc produces, so the cache
// (which only knows about bytes) can store them. Unmarshal is handed the
// original item alongside the cached bytes so a caller whose item carries
// state that needs reattaching to a cache hit (a model.TestRunItem, say)
// can do so without a second lookup.
type Codec struct {
	Marshal   func(any) ([]byte, error)
	Unmarshal func(item any, b []byte) (any, error)
}

// NewCachingPipe builds a Pipe that checks c for a cached result before
// calling compute, mirroring original_source/pipeline.py's CachingPipe:
// "compute cache key → check cache → on miss, compute + store + return".
// A cache miss falls through to compute. So does any other cache read
// error (a transient DiskCache I/O failure): spec.md §4.2/§7 require a
// CacheIOError to be "treated as a miss; never fatal", so it is logged and
// treated exactly like ErrMiss rather than dropping the item. Likewise a
// failed cache write is logged but never stops the already-computed result
// from being emitted downstream. Two workers racing on the same miss may
// both compute and both write — the last write wins, which spec.md §4.2
// explicitly allows ("double-compute on race is permitted... never
// corruption").
//
// onHit and onMiss are optional (nil-safe) hooks invoked right after the
// cache decision is made, before the result is emitted, so a caller can
// journal a representative per-item message ("using cached sut response"
// vs "fetched sut response") without this package needing to know the
// wording.
func NewCachingPipe(name string, capacity, workers int, c cache.Cache, key KeyFunc, compute ComputeFunc, codec Codec, onHit, onMiss func(item any)) *Pipe {
	log := slog.With("stage", name)
	handle := func(ctx context.Context, item any, emit func(any)) error {
		k, err := key(item)
		if err != nil {
			return fmt.Errorf("cachingpipe: deriving cache key: %w", err)
		}

		if raw, err := c.Get(k); err == nil {
			value, derr := codec.Unmarshal(item, raw)
			if derr != nil {
				return fmt.Errorf("cachingpipe: decoding cached value: %w", derr)
			}
			if onHit != nil {
				onHit(item)
			}
			emit(value)
			return nil
		} else if !errors.Is(err, cache.ErrMiss) {
			log.Warn("cache read failed, treating as miss", "key", k, "error", err)
		}

		result, err := compute(ctx, item)
		if err != nil {
			return err
		}
		raw, err := codec.Marshal(result)
		if err != nil {
			return fmt.Errorf("cachingpipe: encoding result for cache: %w", err)
		}
		if err := c.Set(k, raw); err != nil {
			log.Warn("cache write failed, continuing without caching this result", "key", k, "error", err)
		}
		if onMiss != nil {
			onMiss(item)
		}
		emit(result)
		return nil
	}
	return NewPipe(name, capacity, workers, handle)
}
