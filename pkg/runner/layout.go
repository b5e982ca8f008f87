package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// genRunID returns a run identifier of the shape spec.md §6 requires:
// "run-YYYYMMDD-HHMMSS-µµµµµµ", matching
// original_source/benchmark_runner.py's
// `datetime.now().strftime("run-%Y%m%d-%H%M%S-%f")`.
func genRunID(now time.Time) string {
	return fmt.Sprintf("run-%s-%06d", now.Format("20060102-150405"), now.Nanosecond()/1000)
}

// layout is the set of directories and files one run owns under the
// configured data directory, matching spec.md §6's filesystem layout.
type layout struct {
	dataDir         string
	sutCachePath    string
	annotatorCache  string
	testsDir        string
	journalsDir     string
	journalFilePath string
}

func newLayout(dataDir, runID string) *layout {
	return &layout{
		dataDir:         dataDir,
		sutCachePath:    filepath.Join(dataDir, "sut_cache"),
		annotatorCache:  filepath.Join(dataDir, "annotator_cache"),
		testsDir:        filepath.Join(dataDir, "tests"),
		journalsDir:     filepath.Join(dataDir, "journals"),
		journalFilePath: filepath.Join(dataDir, "journals", fmt.Sprintf("journal-%s.jsonl.zst", runID)),
	}
}

// ensureDirs creates every directory this layout references.
func (l *layout) ensureDirs() error {
	for _, dir := range []string{l.dataDir, l.testsDir, l.journalsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("runner: creating %s: %w", dir, err)
		}
	}
	return nil
}

// annotationsPath is where one test's annotator output JSONL is written.
func (l *layout) annotationsPath(testUID string) string {
	return filepath.Join(l.testsDir, testUID+".jsonl")
}
