package runner

import (
	"context"
	"fmt"

	"github.com/mlcommons/modelbench-runner/pkg/annotator"
	"github.com/mlcommons/modelbench-runner/pkg/annotatorpipeline"
	"github.com/mlcommons/modelbench-runner/pkg/cache"
	"github.com/mlcommons/modelbench-runner/pkg/journal"
	"github.com/mlcommons/modelbench-runner/pkg/model"
	"github.com/mlcommons/modelbench-runner/pkg/pipeline"
	"github.com/mlcommons/modelbench-runner/pkg/promptpipeline"
	"github.com/mlcommons/modelbench-runner/pkg/sut"
)

// runOneTest builds and runs one test's fused prompt+annotator pipeline,
// mirroring original_source/benchmark_runner.py's
// TestRunnerBase._build_pipeline, then returns one TestRecord per
// configured SUT. completed is shared across every test in the run so the
// progress tracker reports run-wide completion, not just this test's.
func (r *Runner) runOneTest(ctx context.Context, ps preparedSpec, l *layout, sutCache, annotatorCache cache.Cache, j *journal.RunJournal, completed *int64) ([]TestRecord, error) {
	spec := ps.spec

	j.Entry("runner", "using test items", map[string]any{
		"test": spec.TestUID, "using": len(ps.items), "suts": spec.SUTUIDs, "annotators": spec.AnnotatorUIDs,
	})

	selectedSUTs, err := selectSUTs(r.suts, spec.SUTUIDs)
	if err != nil {
		return nil, err
	}

	bridge := newInteractionBridge(spec.SUTUIDs)
	if err := r.runPromptStage(ctx, spec.TestUID, ps.items, spec.SUTUIDs, selectedSUTs, sutCache, bridge, j, completed); err != nil {
		return nil, err
	}

	var finishedCounts map[string]int
	if len(spec.AnnotatorUIDs) == 0 {
		finishedCounts, err = r.runDegenerateAnnotatorStage(bridge.interactions, l.annotationsPath(spec.TestUID), completed)
	} else {
		selectedAnnotators, aerr := selectAnnotators(r.annotators, spec.AnnotatorUIDs)
		if aerr != nil {
			return nil, aerr
		}
		finishedCounts, err = r.runAnnotatorStage(ctx, bridge.interactions, spec.AnnotatorUIDs, selectedAnnotators, spec.EnsembleStrategy, annotatorCache, l.annotationsPath(spec.TestUID), j, completed)
	}
	if err != nil {
		return nil, err
	}

	records := make([]TestRecord, 0, len(spec.SUTUIDs))
	for _, uid := range spec.SUTUIDs {
		finished := finishedCounts[uid]
		record := TestRecord{
			TestUID:       spec.TestUID,
			SUTUID:        uid,
			ItemsFinished: finished,
			ItemsFailed:   len(ps.items) - finished,
		}
		j.Entry("runner", "test scored", map[string]any{
			"test": record.TestUID, "sut": record.SUTUID, "items_finished": record.ItemsFinished, "items_failed": record.ItemsFailed,
		})
		records = append(records, record)
	}
	return records, nil
}

func selectSUTs(all map[string]sut.SUT, uids []string) (map[string]sut.SUT, error) {
	selected := make(map[string]sut.SUT, len(uids))
	for _, uid := range uids {
		s, ok := all[uid]
		if !ok {
			return nil, fmt.Errorf("runner: no SUT registered for uid %q", uid)
		}
		selected[uid] = s
	}
	return selected, nil
}

func selectAnnotators(all map[string]annotator.Annotator, uids []string) (map[string]annotator.Annotator, error) {
	selected := make(map[string]annotator.Annotator, len(uids))
	for _, uid := range uids {
		a, ok := all[uid]
		if !ok {
			return nil, fmt.Errorf("runner: no annotator registered for uid %q", uid)
		}
		selected[uid] = a
	}
	return selected, nil
}

func (r *Runner) runPromptStage(ctx context.Context, testUID string, items []model.TestItem, sutUIDs []string, selectedSUTs map[string]sut.SUT, sutCache cache.Cache, bridge *interactionBridge, j *journal.RunJournal, completed *int64) error {
	d := r.cfg.Defaults
	capacity := d.SUTQueueCapacity()

	source := promptpipeline.NewSource(capacity, newSliceItemSource(items))
	assigner := promptpipeline.NewAssigner(capacity, testUID, sutUIDs, j)
	sutWorkers, err := promptpipeline.NewSUTWorkers(capacity, d.SUTWorkers, selectedSUTs, sutCache, d.SUTRetryDelay(), j)
	if err != nil {
		return err
	}
	sink := promptpipeline.NewSink(sutUIDs, bridge)

	pipeline.New(func(n int64) {
		r.tracker.Update(int(*completed + n))
	}, source, assigner, sutWorkers, sink).Run(ctx)

	*completed += sink.Completed()
	return nil
}

func (r *Runner) runDegenerateAnnotatorStage(interactions []model.SUTInteraction, outPath string, completed *int64) (map[string]int, error) {
	out, err := annotatorpipeline.NewJSONLAnnotatorOutput(outPath)
	if err != nil {
		return nil, fmt.Errorf("runner: opening annotation output: %w", err)
	}
	defer out.Close()

	counts := make(map[string]int)
	for _, interaction := range interactions {
		if interaction.RunItem != nil {
			interaction.RunItem.Finalize(nil)
		}
		if err := out.Write(interaction, map[string]model.Annotation{}); err != nil {
			return nil, fmt.Errorf("runner: writing degenerate annotation row: %w", err)
		}
		counts[interaction.SUTUID]++
	}
	*completed += int64(len(interactions))
	r.tracker.Update(int(*completed))
	return counts, nil
}

func (r *Runner) runAnnotatorStage(ctx context.Context, interactions []model.SUTInteraction, annotatorUIDs []string, selectedAnnotators map[string]annotator.Annotator, strategy annotator.VoteStrategy, annotatorCache cache.Cache, outPath string, j *journal.RunJournal, completed *int64) (map[string]int, error) {
	d := r.cfg.Defaults
	capacity := d.AnnotatorQueueCapacity()

	requiredUIDs := append([]string(nil), annotatorUIDs...)

	source := annotatorpipeline.NewSource(capacity, newInteractionSource(interactions))
	assigner := annotatorpipeline.NewAssigner(capacity, annotatorUIDs, j)
	workers := annotatorpipeline.NewWorkers(capacity, d.AnnotatorWorkers, selectedAnnotators, annotatorCache, j)

	stages := []pipeline.Stage{source, assigner, workers}
	if strategy != nil {
		voter := annotator.NewVoter(annotatorUIDs, strategy)
		stages = append(stages, annotatorpipeline.NewEnsembleStage(capacity, voter))
		requiredUIDs = append(requiredUIDs, annotator.EnsembleUID)
	}

	out, err := annotatorpipeline.NewJSONLAnnotatorOutput(outPath)
	if err != nil {
		return nil, fmt.Errorf("runner: opening annotation output: %w", err)
	}
	defer out.Close()

	counting := newCountingAnnotatorOutput(out)
	sink := annotatorpipeline.NewSink(requiredUIDs, counting)
	stages = append(stages, sink)

	pipeline.New(func(n int64) {
		r.tracker.Update(int(*completed + n))
	}, stages...).Run(ctx)

	*completed += sink.Completed()
	return counting.finishedCounts(), nil
}
