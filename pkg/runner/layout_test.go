package runner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenRunIDFormat(t *testing.T) {
	now := time.Date(2026, 7, 30, 9, 5, 3, 123456000, time.UTC)
	assert.Equal(t, "run-20260730-090503-123456", genRunID(now))
}

func TestNewLayoutPaths(t *testing.T) {
	l := newLayout("/data", "run-x")
	assert.Equal(t, "/data/sut_cache", l.sutCachePath)
	assert.Equal(t, "/data/annotator_cache", l.annotatorCache)
	assert.Equal(t, "/data/tests", l.testsDir)
	assert.Equal(t, "/data/journals", l.journalsDir)
	assert.Equal(t, "/data/journals/journal-run-x.jsonl.zst", l.journalFilePath)
	assert.Equal(t, filepath.Join("/data", "tests", "toxicity.jsonl"), l.annotationsPath("toxicity"))
}

func TestLayoutEnsureDirsCreatesEveryDirectory(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	l := newLayout(dataDir, "run-y")

	require.NoError(t, l.ensureDirs())

	for _, d := range []string{l.dataDir, l.testsDir, l.journalsDir} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
