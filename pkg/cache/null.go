package cache

// NullCache discards every Set and reports every Get as a miss. It is used
// when a run is configured with caching disabled (spec.md §4.2: "a cache
// variant that stores nothing, for callers that want the same Stage wiring
// without the disk I/O").
type NullCache struct {
	Stats Stats
}

// NewNull constructs a NullCache.
func NewNull() *NullCache {
	return &NullCache{}
}

func (c *NullCache) Get(key string) ([]byte, error) {
	c.Stats.Gets.Inc()
	return nil, ErrMiss
}

func (c *NullCache) Set(key string, value []byte) error {
	c.Stats.Puts.Inc()
	return nil
}

func (c *NullCache) Len() (int, error) {
	return 0, nil
}

func (c *NullCache) Close() error {
	return nil
}

// CacheStats implements Cache.
func (c *NullCache) CacheStats() (gets, puts, hits int64) {
	return c.Stats.Snapshot()
}
