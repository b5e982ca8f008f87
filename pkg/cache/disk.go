package cache

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	bolt "go.etcd.io/bbolt"
)

// DefaultSizeLimit is the soft size ceiling applied to a DiskCache that
// doesn't specify one, matching the original implementation's 20 GiB
// diskcache.Cache(size_limit=...) (original_source/cache.py).
const DefaultSizeLimit = 20 * 1 << 30

var (
	bucketData    = []byte("data")
	bucketSeq     = []byte("seq")
	bucketKeySeq  = []byte("keyseq")
	bucketCounter = []byte("counter")
	keyNextSeq    = []byte("next")
)

// DiskCache is a size-bounded, disk-persisted cache backed by a single
// bbolt database file (spec.md §4.2: "persistent key→blob map with size
// cap; concurrent-safe"). Entries are evicted oldest-first once the
// cumulative value size exceeds SizeLimit, mirroring the original
// diskcache.Cache's least-recently-stored eviction policy
// (original_source/cache.py) rather than true LRU, since bbolt has no
// built-in access-time tracking.
type DiskCache struct {
	Stats Stats

	db        *bolt.DB
	path      string
	sizeLimit int64
	approxSz  atomic.Int64
}

// OpenDisk opens (creating if necessary) a DiskCache at path. A sizeLimit
// of 0 uses DefaultSizeLimit.
func OpenDisk(path string, sizeLimit int64) (*DiskCache, error) {
	if sizeLimit <= 0 {
		sizeLimit = DefaultSizeLimit
	}
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("cache: opening disk cache at %s: %w", path, err)
	}

	c := &DiskCache{db: db, path: path, sizeLimit: sizeLimit}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketData, bucketSeq, bucketKeySeq, bucketCounter} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache: initializing disk cache buckets: %w", err)
	}

	if err := c.loadApproxSize(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *DiskCache) loadApproxSize() error {
	var total int64
	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketData).ForEach(func(_, v []byte) error {
			total += int64(len(v))
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("cache: computing initial disk cache size: %w", err)
	}
	c.approxSz.Store(total)
	return nil
}

func (c *DiskCache) Get(key string) ([]byte, error) {
	c.Stats.Gets.Inc()
	var value []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketData).Get([]byte(key)); v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cache: reading key: %w", err)
	}
	if value == nil {
		return nil, ErrMiss
	}
	c.Stats.Hits.Inc()
	return value, nil
}

func (c *DiskCache) Set(key string, value []byte) error {
	c.Stats.Puts.Inc()
	k := []byte(key)

	var delta int64
	err := c.db.Update(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketData)
		keySeq := tx.Bucket(bucketKeySeq)
		seqBucket := tx.Bucket(bucketSeq)

		old := data.Get(k)
		delta = int64(len(value)) - int64(len(old))

		if old == nil {
			seq, err := nextSeq(tx)
			if err != nil {
				return err
			}
			seqKey := encodeSeq(seq)
			if err := seqBucket.Put(seqKey, k); err != nil {
				return err
			}
			if err := keySeq.Put(k, seqKey); err != nil {
				return err
			}
		}
		return data.Put(k, value)
	})
	if err != nil {
		return fmt.Errorf("cache: writing key: %w", err)
	}

	newSize := c.approxSz.Add(delta)
	if newSize > c.sizeLimit {
		if err := c.evictUntilUnderLimit(); err != nil {
			return fmt.Errorf("cache: evicting over size cap: %w", err)
		}
	}
	return nil
}

// evictUntilUnderLimit removes the oldest-stored entries until the
// approximate cumulative size is back under sizeLimit.
func (c *DiskCache) evictUntilUnderLimit() error {
	for c.approxSz.Load() > c.sizeLimit {
		var evicted int64
		err := c.db.Update(func(tx *bolt.Tx) error {
			seqBucket := tx.Bucket(bucketSeq)
			cursor := seqBucket.Cursor()
			seqKey, key := cursor.First()
			if seqKey == nil {
				return nil // nothing left to evict
			}

			data := tx.Bucket(bucketData)
			keySeq := tx.Bucket(bucketKeySeq)

			if v := data.Get(key); v != nil {
				evicted = int64(len(v))
			}
			if err := data.Delete(key); err != nil {
				return err
			}
			if err := keySeq.Delete(key); err != nil {
				return err
			}
			return seqBucket.Delete(seqKey)
		})
		if err != nil {
			return err
		}
		if evicted == 0 {
			break // nothing left to evict but still over limit: give up rather than spin
		}
		c.approxSz.Add(-evicted)
	}
	return nil
}

func (c *DiskCache) Len() (int, error) {
	var n int
	err := c.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketData).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cache: counting entries: %w", err)
	}
	return n, nil
}

func (c *DiskCache) Close() error {
	return c.db.Close()
}

// Path returns the filesystem path backing this cache.
func (c *DiskCache) Path() string {
	return c.path
}

// CacheStats implements Cache.
func (c *DiskCache) CacheStats() (gets, puts, hits int64) {
	return c.Stats.Snapshot()
}

func nextSeq(tx *bolt.Tx) (uint64, error) {
	b := tx.Bucket(bucketCounter)
	seq := decodeSeq(b.Get(keyNextSeq))
	if err := b.Put(keyNextSeq, encodeSeq(seq+1)); err != nil {
		return 0, err
	}
	return seq, nil
}

func encodeSeq(seq uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return buf
}

func decodeSeq(buf []byte) uint64 {
	if len(buf) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(buf)
}
