package runner

import (
	"sort"
	"sync"

	"github.com/mlcommons/modelbench-runner/pkg/annotatorpipeline"
	"github.com/mlcommons/modelbench-runner/pkg/config"
	"github.com/mlcommons/modelbench-runner/pkg/errs"
	"github.com/mlcommons/modelbench-runner/pkg/model"
)

// TestRecord is the per-(test, sut) result envelope, mirroring
// original_source/benchmark_runner.py's TestRecord/_make_test_record. The
// actual grade-band scoring arithmetic is out of this module's scope
// (spec.md's scoring non-goal); Result carries whatever a caller's scoring
// function computed from the finished/failed counts, or stays nil.
type TestRecord struct {
	TestUID       string
	SUTUID        string
	ItemsFinished int
	ItemsFailed   int
	Result        any
}

// BenchmarkScore aggregates the TestRecords a benchmark's configured
// tests produced for one SUT, mirroring
// original_source/benchmark_runner.py's BenchmarkScore/hazard aggregation
// collapsed to the scope this module covers: grouping records, not
// computing a hazard grade.
type BenchmarkScore struct {
	BenchmarkUID string
	SUTUID       string
	TestRecords  []TestRecord
	Result       any
}

// countingAnnotatorOutput wraps an annotatorpipeline.AnnotatorOutput,
// tallying one finished count per sut_uid as rows are written, so the
// runner can derive ItemsFinished without re-reading its own output file.
// Safe for concurrent use since annotatorpipeline.NewSink may call Write
// from its one dedicated sink goroutine — the mutex is cheap insurance if
// that ever changes, not a response to any observed race.
type countingAnnotatorOutput struct {
	out annotatorpipeline.AnnotatorOutput

	mu       sync.Mutex
	finished map[string]int
}

func newCountingAnnotatorOutput(out annotatorpipeline.AnnotatorOutput) *countingAnnotatorOutput {
	return &countingAnnotatorOutput{out: out, finished: make(map[string]int)}
}

func (c *countingAnnotatorOutput) Write(interaction model.SUTInteraction, annotations map[string]model.Annotation) error {
	c.mu.Lock()
	c.finished[interaction.SUTUID]++
	c.mu.Unlock()
	return c.out.Write(interaction, annotations)
}

func (c *countingAnnotatorOutput) Close() error { return c.out.Close() }

func (c *countingAnnotatorOutput) finishedCounts() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts := make(map[string]int, len(c.finished))
	for k, v := range c.finished {
		counts[k] = v
	}
	return counts
}

var _ annotatorpipeline.AnnotatorOutput = (*countingAnnotatorOutput)(nil)

// aggregateBenchmarkScores groups records into one BenchmarkScore per
// (benchmark, sut) pair, mirroring
// original_source/benchmark_runner.py's _calculate_benchmark_scores: a
// benchmark's score is built from exactly the TestRecords whose TestUID
// appears in that benchmark's configured Tests list. Grade-band scoring
// arithmetic stays out of scope (spec.md's scoring non-goal); Result is
// left nil for a caller to fill in later if it wants to.
//
// spec.md §7 calls this "the only post-pipeline fatal": if any (benchmark,
// sut, test) triple has zero records even though every test in the
// benchmark ran, the benchmark's score can't be computed and
// aggregateBenchmarkScores returns an *errs.BenchmarkScoringError instead
// of a partial result.
func aggregateBenchmarkScores(benchmarks map[string]config.BenchmarkConfig, records []TestRecord) ([]BenchmarkScore, error) {
	if len(benchmarks) == 0 {
		return nil, nil
	}

	benchmarkUIDs := make([]string, 0, len(benchmarks))
	for uid := range benchmarks {
		benchmarkUIDs = append(benchmarkUIDs, uid)
	}
	sort.Strings(benchmarkUIDs)

	var scores []BenchmarkScore
	for _, benchmarkUID := range benchmarkUIDs {
		testUIDs := benchmarks[benchmarkUID].Tests
		wantedTests := make(map[string]bool, len(testUIDs))
		for _, testUID := range testUIDs {
			wantedTests[testUID] = true
		}

		bySUT := make(map[string]map[string]TestRecord) // sut -> test -> record
		var sutOrder []string
		for _, rec := range records {
			if !wantedTests[rec.TestUID] {
				continue
			}
			if _, seen := bySUT[rec.SUTUID]; !seen {
				bySUT[rec.SUTUID] = make(map[string]TestRecord, len(testUIDs))
				sutOrder = append(sutOrder, rec.SUTUID)
			}
			bySUT[rec.SUTUID][rec.TestUID] = rec
		}
		sort.Strings(sutOrder)

		for _, sutUID := range sutOrder {
			byTest := bySUT[sutUID]
			testRecords := make([]TestRecord, 0, len(testUIDs))
			for _, testUID := range testUIDs {
				rec, ok := byTest[testUID]
				if !ok {
					return nil, &errs.BenchmarkScoringError{BenchmarkUID: benchmarkUID, SUTUID: sutUID, TestUID: testUID}
				}
				testRecords = append(testRecords, rec)
			}
			scores = append(scores, BenchmarkScore{
				BenchmarkUID: benchmarkUID,
				SUTUID:       sutUID,
				TestRecords:  testRecords,
			})
		}
	}
	return scores, nil
}
