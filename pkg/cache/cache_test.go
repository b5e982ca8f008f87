package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullCacheAlwaysMisses(t *testing.T) {
	c := NewNull()
	require.NoError(t, c.Set("k", []byte("v")))

	_, err := c.Get("k")
	assert.ErrorIs(t, err, ErrMiss)

	n, err := c.Len()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemory()
	require.NoError(t, c.Set("k", []byte("v")))

	got, err := c.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
	assert.Equal(t, int64(1), c.Stats.Hits.Load())

	n, err := c.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryCacheMissDoesNotCountAsHit(t *testing.T) {
	c := NewMemory()
	_, err := c.Get("missing")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Equal(t, int64(0), c.Stats.Hits.Load())
	assert.Equal(t, int64(1), c.Stats.Gets.Load())
}

func TestDiskCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sut_cache.db")
	c, err := OpenDisk(path, 0)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set("k1", []byte("hello")))
	got, err := c.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	n, err := c.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDiskCacheMiss(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sut_cache.db")
	c, err := OpenDisk(path, 0)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Get("nope")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestDiskCacheSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sut_cache.db")
	c1, err := OpenDisk(path, 0)
	require.NoError(t, err)
	require.NoError(t, c1.Set("persisted", []byte("value")))
	require.NoError(t, c1.Close())

	c2, err := OpenDisk(path, 0)
	require.NoError(t, err)
	defer c2.Close()

	got, err := c2.Get("persisted")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), got)
}

func TestDiskCacheEvictsOldestWhenOverSizeCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sut_cache.db")
	// A tiny size cap forces eviction after a couple of entries.
	c, err := OpenDisk(path, 16)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set("k1", []byte("0123456789")))
	require.NoError(t, c.Set("k2", []byte("0123456789")))
	require.NoError(t, c.Set("k3", []byte("0123456789")))

	// k1 (oldest) should have been evicted to stay under the cap.
	_, err = c.Get("k1")
	assert.ErrorIs(t, err, ErrMiss)

	got, err := c.Get("k3")
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789"), got)
}
