package cache

import "sync/atomic"

// Counter is a monotonically increasing, concurrency-safe counter used for
// the cache's gets/puts/hits bookkeeping.
type Counter struct {
	v atomic.Int64
}

// Inc increments the counter by one.
func (c *Counter) Inc() {
	c.v.Add(1)
}

// Load returns the current value.
func (c *Counter) Load() int64 {
	return c.v.Load()
}
