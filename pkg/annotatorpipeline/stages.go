package annotatorpipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mlcommons/modelbench-runner/pkg/annotator"
	"github.com/mlcommons/modelbench-runner/pkg/cache"
	"github.com/mlcommons/modelbench-runner/pkg/cachekey"
	"github.com/mlcommons/modelbench-runner/pkg/journal"
	"github.com/mlcommons/modelbench-runner/pkg/model"
	"github.com/mlcommons/modelbench-runner/pkg/pipeline"
)

// annotatorAssignment is the item shape flowing between the assigner and
// the annotator workers: one SUTInteraction paired with one annotator uid
// to run over it.
type annotatorAssignment struct {
	Interaction  model.SUTInteraction
	AnnotatorUID string
}

// annotatorResult is the item shape flowing from annotator workers onward:
// one interaction's single-annotator verdict.
type annotatorResult struct {
	Interaction model.SUTInteraction
	Annotation  model.Annotation
}

// NewSource builds the annotator pipeline's Source stage.
func NewSource(capacity int, input pipeline.ItemSource) *pipeline.Source {
	return pipeline.NewSource("annotator_source", capacity, input)
}

// NewAssigner builds the Pipe that fans each SUTInteraction out to every
// configured annotator uid, mirroring
// original_source/annotation_pipeline.py's AnnotatorAssigner. j may be nil.
func NewAssigner(capacity int, annotatorUIDs []string, j *journal.RunJournal) *pipeline.Pipe {
	uids := append([]string(nil), annotatorUIDs...)
	return pipeline.NewPipe("annotator_assigner", capacity, 1, func(ctx context.Context, item any, emit func(any)) error {
		interaction := item.(model.SUTInteraction)
		for _, uid := range uids {
			if j != nil {
				j.Entry("annotator_assigner", "queuing item", map[string]any{
					"item": interaction.RunItem, "annotator": uid,
				})
			}
			emit(annotatorAssignment{Interaction: interaction, AnnotatorUID: uid})
		}
		return nil
	})
}

// NewWorkers builds the caching annotator dispatch stage: translate,
// annotate, translate, mirroring
// original_source/annotation_pipeline.py's AnnotatorWorkers.handle_item
// with caching folded in the way original_source/pipeline.py's
// CachingPipe does it, cache key = canonical-JSON(annotator_request) ⊕
// annotator_uid (spec.md §4.6). A single annotator's failure is logged
// and the (interaction, uid) pair is dropped — matching the original's
// try/except around handle_item, which reports the failure to stderr and
// continues rather than aborting the stage. When the interaction carries a
// TestRunItem (the fused runner pipeline attaches one; the standalone CSV
// tool does not), a success records the verdict with RecordAnnotation and
// a failure records it with RecordAnnotatorFailure instead of just
// dropping it silently. j may be nil.
func NewWorkers(capacity, workers int, annotators map[string]annotator.Annotator, annotatorCache cache.Cache, j *journal.RunJournal) *pipeline.Pipe {
	return pipeline.NewCachingPipe("annotator_workers", capacity, workers, annotatorCache,
		func(item any) (string, error) {
			assignment := item.(annotatorAssignment)
			a, ok := annotators[assignment.AnnotatorUID]
			if !ok {
				return "", fmt.Errorf("annotatorpipeline: no annotator registered for uid %q", assignment.AnnotatorUID)
			}
			request, err := a.TranslateInteraction(assignment.Interaction)
			if err != nil {
				return "", fmt.Errorf("annotatorpipeline: translating interaction for %q: %w", assignment.AnnotatorUID, err)
			}
			return cachekey.ForRequest(request, assignment.AnnotatorUID)
		},
		func(ctx context.Context, item any) (any, error) {
			assignment := item.(annotatorAssignment)
			a := annotators[assignment.AnnotatorUID]

			verdict, err := annotateOnce(ctx, a, assignment.Interaction)
			if err != nil {
				if assignment.Interaction.RunItem != nil {
					assignment.Interaction.RunItem.RecordAnnotatorFailure(assignment.AnnotatorUID, err)
				}
				if j != nil {
					j.Entry("annotator_workers", "annotator exception", map[string]any{
						"item": assignment.Interaction.RunItem, "annotator": assignment.AnnotatorUID, "error": err,
					})
				}
				return nil, fmt.Errorf("annotatorpipeline: annotating with %q: %w", assignment.AnnotatorUID, err)
			}

			if assignment.Interaction.RunItem != nil {
				assignment.Interaction.RunItem.RecordAnnotation(assignment.AnnotatorUID, verdict)
			}
			return annotatorResult{Interaction: assignment.Interaction, Annotation: verdict}, nil
		},
		pipeline.Codec{
			Marshal: func(v any) ([]byte, error) { return json.Marshal(v.(annotatorResult)) },
			Unmarshal: func(rawItem any, b []byte) (any, error) {
				var r annotatorResult
				if err := json.Unmarshal(b, &r); err != nil {
					return nil, err
				}
				if assignment, ok := rawItem.(annotatorAssignment); ok {
					r.Interaction = assignment.Interaction
					if assignment.Interaction.RunItem != nil {
						assignment.Interaction.RunItem.RecordAnnotation(assignment.AnnotatorUID, r.Annotation)
					}
				}
				return r, nil
			},
		},
		func(item any) { // onHit
			if j == nil {
				return
			}
			assignment := item.(annotatorAssignment)
			j.Entry("annotator_workers", "using cached annotator result", map[string]any{
				"item": assignment.Interaction.RunItem, "annotator": assignment.AnnotatorUID,
			})
		},
		nil, // onMiss: no representative message beyond the per-item "annotator exception"/success already recorded above
	)
}

// annotateOnce runs one annotator's translate → annotate → translate-
// response round trip.
func annotateOnce(ctx context.Context, a annotator.Annotator, interaction model.SUTInteraction) (model.Annotation, error) {
	request, err := a.TranslateInteraction(interaction)
	if err != nil {
		return model.Annotation{}, fmt.Errorf("translating interaction: %w", err)
	}
	response, err := a.Annotate(ctx, request)
	if err != nil {
		return model.Annotation{}, fmt.Errorf("annotating: %w", err)
	}
	verdict, err := a.TranslateResponse(request, response)
	if err != nil {
		return model.Annotation{}, fmt.Errorf("translating response: %w", err)
	}
	return verdict, nil
}

// NewEnsembleStage wraps the annotator-worker output with an ensemble
// vote: every per-annotator result passes through unchanged, and once
// voter's full required set has reported for a given interaction, one
// extra annotatorResult carrying the synthetic "ensemble" annotation is
// emitted alongside. Mirrors the inferred semantics of
// original_source/test_ensemble_annotator.py's EnsembleAnnotator, adapted
// to run as its own pipeline stage rather than as another annotator the
// assigner fans out to (the ensemble consumes other annotators' outputs,
// so it cannot be just another entry in the same fan-out set).
func NewEnsembleStage(capacity int, voter *annotator.Voter) *pipeline.Pipe {
	return pipeline.NewPipe("annotator_ensemble", capacity, 1, func(ctx context.Context, item any, emit func(any)) error {
		result := item.(annotatorResult)
		emit(result)

		key := result.Interaction.Key()
		var raw any = result.Annotation.Raw
		if result.Annotation.Structured != nil {
			raw = result.Annotation.Structured
		}
		verdict, ready, err := voter.Record(key, result.Annotation.AnnotatorUID, raw)
		if err != nil {
			return fmt.Errorf("annotatorpipeline: ensemble vote for %q: %w", key, err)
		}
		if !ready {
			return nil
		}
		ensembleAnnotation := model.Annotation{
			AnnotatorUID: annotator.EnsembleUID,
			Structured:   verdict,
		}
		if result.Interaction.RunItem != nil {
			result.Interaction.RunItem.RecordAnnotation(annotator.EnsembleUID, ensembleAnnotation)
		}
		emit(annotatorResult{
			Interaction: result.Interaction,
			Annotation:  ensembleAnnotation,
		})
		return nil
	})
}

// NewSink builds the Sink stage that buffers per-annotator results for
// each SUTInteraction and writes one JSONL row once every required
// annotator uid has reported, mirroring
// original_source/annotation_pipeline.py's AnnotatorSink. Once an
// interaction's bucket is complete, its TestRunItem (if any) is finalized
// into FINISHED or FAILED per spec.md §4.7, under the same lock that
// guards the bucket — annotator workers report concurrently for the same
// interaction, and Finalize mutates shared state on the RunItem, so it
// must not run outside this critical section.
func NewSink(requiredAnnotatorUIDs []string, out AnnotatorOutput) *pipeline.Sink {
	total := len(requiredAnnotatorUIDs)
	required := append([]string(nil), requiredAnnotatorUIDs...)

	var mu sync.Mutex
	unfinished := make(map[string]map[string]model.Annotation) // interaction key -> {annotatorUID: verdict}
	interactions := make(map[string]model.SUTInteraction)

	return pipeline.NewSink("annotator_sink", func(ctx context.Context, item any) error {
		r := item.(annotatorResult)
		key := r.Interaction.Key()

		mu.Lock()
		bucket, ok := unfinished[key]
		if !ok {
			bucket = make(map[string]model.Annotation)
			unfinished[key] = bucket
			interactions[key] = r.Interaction
		}
		bucket[r.Annotation.AnnotatorUID] = r.Annotation
		ready := len(bucket) == total
		if ready {
			delete(unfinished, key)
			if r.Interaction.RunItem != nil {
				r.Interaction.RunItem.Finalize(required)
			}
		}
		mu.Unlock()

		if !ready {
			return nil
		}
		if err := out.Write(interactions[key], bucket); err != nil {
			return fmt.Errorf("annotatorpipeline: writing output row: %w", err)
		}
		slog.Debug("wrote annotator result", "interaction", key)
		return nil
	})
}
