// Package runner assembles the fused benchmark pipeline — source, SUT
// assigner and workers, annotator assigner and workers, ensemble vote,
// sink — ready-checks every configured SUT/annotator, drives the run to
// completion, and aggregates per-(test, sut) and per-(benchmark, sut)
// result envelopes. Grounded on
// original_source/benchmark_runner.py's TestRunBase/TestRun/BenchmarkRun
// and TestRunnerBase/TestRunner/BenchmarkRunner family (spec.md §4.7).
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mlcommons/modelbench-runner/pkg/annotator"
	"github.com/mlcommons/modelbench-runner/pkg/annotatorpipeline"
	"github.com/mlcommons/modelbench-runner/pkg/cache"
	"github.com/mlcommons/modelbench-runner/pkg/config"
	"github.com/mlcommons/modelbench-runner/pkg/errs"
	"github.com/mlcommons/modelbench-runner/pkg/journal"
	"github.com/mlcommons/modelbench-runner/pkg/model"
	"github.com/mlcommons/modelbench-runner/pkg/pipeline"
	"github.com/mlcommons/modelbench-runner/pkg/progress"
	"github.com/mlcommons/modelbench-runner/pkg/readycheck"
	"github.com/mlcommons/modelbench-runner/pkg/sut"
)

// RunSpec describes one test's worth of work: an input source of prompts,
// the SUTs and annotators it runs against, and an optional cap on how
// many items to draw from Input. TestUID identifies this test in
// TestRecord and the journal; it carries no scoring semantics of its own.
type RunSpec struct {
	TestUID          string
	Input            pipeline.ItemSource
	SUTUIDs          []string
	AnnotatorUIDs    []string
	MaxItems         int
	EnsembleStrategy annotator.VoteStrategy // nil disables ensemble voting
}

// BenchmarkRun is the result of a full Runner.Run call: every TestRecord
// produced, grouped into BenchmarkScores per the supplied benchmark
// definitions, plus the run's identifying metadata.
type BenchmarkRun struct {
	RunID       string
	TestRecords []TestRecord
	Benchmarks  []BenchmarkScore
}

// Runner owns the SUT/annotator instances a run dispatches against and the
// tunables that size its pipeline stages, mirroring
// original_source/benchmark_runner.py's TestRunnerBase.
type Runner struct {
	cfg        *config.Config
	suts       map[string]sut.SUT
	annotators map[string]annotator.Annotator
	tracker    progress.Tracker
	now        func() time.Time
}

// New constructs a Runner. tracker may be nil, defaulting to progress.Null.
func New(cfg *config.Config, suts map[string]sut.SUT, annotators map[string]annotator.Annotator, tracker progress.Tracker) *Runner {
	if tracker == nil {
		tracker = progress.Null{}
	}
	return &Runner{cfg: cfg, suts: suts, annotators: annotators, tracker: tracker, now: time.Now}
}

// Run executes every RunSpec in order, sharing one sut_cache and
// annotator_cache disk cache and one run journal across all of them, and
// aggregates the resulting TestRecords into the BenchmarkScores
// benchmarks describes (spec.md §4.7 steps 1-6).
func (r *Runner) Run(ctx context.Context, specs []RunSpec, benchmarks map[string]config.BenchmarkConfig) (*BenchmarkRun, error) {
	if len(specs) == 0 {
		return nil, &errs.ConfigurationError{Reason: "at least one test must be configured"}
	}

	runID := genRunID(r.now())
	l := newLayout(r.cfg.DataDir, runID)
	if err := l.ensureDirs(); err != nil {
		return nil, err
	}

	if err := readycheck.Run(ctx, r.suts, r.annotators); err != nil {
		return nil, err
	}

	j, err := journal.Open(l.journalFilePath)
	if err != nil {
		return nil, fmt.Errorf("runner: opening journal: %w", err)
	}
	defer func() {
		if cerr := j.Close(); cerr != nil {
			slog.Error("runner: failed to close journal", "error", cerr)
		}
	}()

	sutCache, err := cache.OpenDisk(l.sutCachePath, r.cfg.Defaults.CacheSizeLimitBytes)
	if err != nil {
		return nil, fmt.Errorf("runner: opening sut cache: %w", err)
	}
	defer sutCache.Close()

	annotatorCache, err := cache.OpenDisk(l.annotatorCache, r.cfg.Defaults.CacheSizeLimitBytes)
	if err != nil {
		return nil, fmt.Errorf("runner: opening annotator cache: %w", err)
	}
	defer annotatorCache.Close()

	j.Entry("runner", "starting run", map[string]any{
		"run_id": runID,
		"tests":  specNames(specs),
	})

	preparedSpecs, totalExpected, err := r.prepareSpecs(specs)
	if err != nil {
		return nil, err
	}

	r.tracker.Start(totalExpected)
	var completed int64

	var allRecords []TestRecord
	for _, ps := range preparedSpecs {
		records, err := r.runOneTest(ctx, ps, l, sutCache, annotatorCache, j, &completed)
		if err != nil {
			return nil, fmt.Errorf("runner: test %q: %w", ps.spec.TestUID, err)
		}
		allRecords = append(allRecords, records...)
	}
	r.tracker.Done()

	sutGets, sutPuts, sutHits := sutCache.CacheStats()
	j.Entry("runner", "cache info", map[string]any{
		"cache": "sut_cache", "gets": sutGets, "puts": sutPuts, "hits": sutHits,
	})
	annGets, annPuts, annHits := annotatorCache.CacheStats()
	j.Entry("runner", "cache info", map[string]any{
		"cache": "annotator_cache", "gets": annGets, "puts": annPuts, "hits": annHits,
	})

	benchmarkScores, err := aggregateBenchmarkScores(benchmarks, allRecords)
	if err != nil {
		j.Entry("runner", "benchmark scoring failed", map[string]any{"run_id": runID, "error": err.Error()})
		return nil, err
	}
	for _, score := range benchmarkScores {
		j.Entry("runner", "benchmark scored", map[string]any{
			"benchmark": score.BenchmarkUID, "sut": score.SUTUID, "tests": len(score.TestRecords),
		})
	}

	run := &BenchmarkRun{
		RunID:       runID,
		TestRecords: allRecords,
		Benchmarks:  benchmarkScores,
	}

	j.Entry("runner", "finished run", map[string]any{"run_id": runID, "items_finished": totalFinished(allRecords)})
	return run, nil
}

func specNames(specs []RunSpec) []string {
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.TestUID
	}
	return names
}

func totalFinished(records []TestRecord) int {
	total := 0
	for _, rec := range records {
		total += rec.ItemsFinished
	}
	return total
}

// preparedSpec carries a RunSpec's items collected (and max_items-limited)
// up front, so the total expected item count is known before any stage
// starts (spec.md §4.7 step 4).
type preparedSpec struct {
	spec  RunSpec
	items []model.TestItem
}

func (r *Runner) prepareSpecs(specs []RunSpec) ([]preparedSpec, int, error) {
	prepared := make([]preparedSpec, 0, len(specs))
	total := 0
	for _, spec := range specs {
		items, err := collectAndLimit(spec.Input, spec.MaxItems)
		if err != nil {
			return nil, 0, fmt.Errorf("runner: test %q: %w", spec.TestUID, err)
		}
		prepared = append(prepared, preparedSpec{spec: spec, items: items})
		total += len(items) * len(spec.SUTUIDs)
	}
	return prepared, total, nil
}
