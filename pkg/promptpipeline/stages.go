package promptpipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mlcommons/modelbench-runner/pkg/cache"
	"github.com/mlcommons/modelbench-runner/pkg/cachekey"
	"github.com/mlcommons/modelbench-runner/pkg/errs"
	"github.com/mlcommons/modelbench-runner/pkg/journal"
	"github.com/mlcommons/modelbench-runner/pkg/model"
	"github.com/mlcommons/modelbench-runner/pkg/pipeline"
	"github.com/mlcommons/modelbench-runner/pkg/retry"
	"github.com/mlcommons/modelbench-runner/pkg/sut"
)

// sutAssignment is the item shape flowing between the assigner and the SUT
// workers: one TestItem paired with one SUT to evaluate it against.
// RunItem is the QUEUED TestRunItem tracking this (item, sut) pair through
// the rest of the prompt stage.
type sutAssignment struct {
	Item    model.TestItem
	SUTUID  string
	RunItem *model.TestRunItem
}

// sutResult is the item shape flowing from SUT workers to the sink.
// RunItem is excluded from the cache's JSON encoding: it is reattached
// fresh on every pass (by the assigner, per run), never read back out of
// the cache itself.
type sutResult struct {
	Item     model.TestItem
	SUTUID   string
	Response model.SUTResponse
	RunItem  *model.TestRunItem `json:"-"`
}

// NewSource builds the prompt pipeline's Source stage.
func NewSource(capacity int, input pipeline.ItemSource) *pipeline.Source {
	return pipeline.NewSource("prompt_source", capacity, input)
}

// NewAssigner builds the Pipe that fans each TestItem out to every
// configured SUT uid, mirroring original_source/prompt_pipeline.py's
// PromptSutAssigner. For each (item, sut) pair it constructs the
// TestRunItem that will track that pair CREATED → QUEUED → RESPONDED/
// SUT_FAILED through the rest of this stage (spec.md §4.7's state
// machine), and journals a "queuing item" entry. j may be nil, for the
// standalone CSV-driven prompt tool and for package tests that don't need
// a journal.
func NewAssigner(capacity int, testUID string, sutUIDs []string, j *journal.RunJournal) *pipeline.Pipe {
	uids := append([]string(nil), sutUIDs...)
	return pipeline.NewPipe("prompt_sut_assigner", capacity, 1, func(ctx context.Context, item any, emit func(any)) error {
		testItem := item.(model.TestItem)
		for _, uid := range uids {
			ri := model.NewTestRunItem(testUID, uid, testItem)
			ri.Queued()
			if j != nil {
				j.Entry("prompt_sut_assigner", "queuing item", map[string]any{"item": ri})
			}
			emit(sutAssignment{Item: testItem, SUTUID: uid, RunItem: ri})
		}
		return nil
	})
}

// NewSUTWorkers builds the caching, unbounded-retrying SUT dispatch stage,
// mirroring original_source/prompt_pipeline.py's PromptSutWorkers, with
// caching folded in the way original_source/pipeline.py's CachingPipe does
// it and the SUT evaluate() call wrapped in pkg/retry.Unbounded per
// spec.md §9 ("unbounded SUT retry preserved verbatim"). Every SUT must
// declare sut.AcceptsTextPrompt; a SUT that doesn't is a fatal
// configuration error caught here, before the pipeline ever starts,
// rather than as a per-item failure mid-run.
//
// A cache hit reattaches the assignment's RunItem to the decoded result
// and records it RESPONDED (model.Timer isn't involved there — no work was
// actually done). A cache miss times the translate+evaluate+translate
// round trip with a model.Timer the way the original implementation's
// `with Timer() as timer` stamps its journal entries, and records the
// RunItem RESPONDED on success or SUT_FAILED on failure. j may be nil.
func NewSUTWorkers(capacity, workers int, suts map[string]sut.SUT, sutCache cache.Cache, retryDelay time.Duration, j *journal.RunJournal) (*pipeline.Pipe, error) {
	for _, s := range suts {
		if err := sut.RequireCapability(s, sut.AcceptsTextPrompt); err != nil {
			return nil, &errs.ConfigurationError{Reason: "prompt pipeline SUT capability check", Cause: err}
		}
	}

	return pipeline.NewCachingPipe("prompt_sut_workers", capacity, workers, sutCache,
		func(item any) (string, error) {
			assignment := item.(sutAssignment)
			s, ok := suts[assignment.SUTUID]
			if !ok {
				return "", fmt.Errorf("promptpipeline: no SUT registered for uid %q", assignment.SUTUID)
			}
			request, err := s.TranslateRequest(assignment.Item.Prompt)
			if err != nil {
				return "", fmt.Errorf("promptpipeline: translating request for %q: %w", assignment.SUTUID, err)
			}
			return cachekey.ForRequest(request, assignment.SUTUID)
		},
		func(ctx context.Context, item any) (any, error) {
			assignment := item.(sutAssignment)
			s := suts[assignment.SUTUID]

			var timer model.Timer
			timer.Start()

			sutResp, err := evaluateOnce(ctx, s, assignment.Item.Prompt, retryDelay)
			timer.Stop()
			if err != nil {
				if assignment.RunItem != nil {
					assignment.RunItem.RecordSUTFailure(err)
				}
				if j != nil {
					j.Entry("prompt_sut_workers", "sut exception", map[string]any{
						"item": assignment.RunItem, "error": err, "elapsed_seconds": timer.Elapsed().Seconds(),
					})
				}
				return nil, fmt.Errorf("promptpipeline: sut %q: %w", assignment.SUTUID, err)
			}

			if assignment.RunItem != nil {
				assignment.RunItem.RecordSUTResponse(sutResp)
			}
			return sutResult{Item: assignment.Item, SUTUID: assignment.SUTUID, Response: sutResp, RunItem: assignment.RunItem}, nil
		},
		pipeline.Codec{
			Marshal: func(v any) ([]byte, error) { return json.Marshal(v.(sutResult)) },
			Unmarshal: func(rawItem any, b []byte) (any, error) {
				var r sutResult
				if err := json.Unmarshal(b, &r); err != nil {
					return nil, err
				}
				if assignment, ok := rawItem.(sutAssignment); ok {
					r.RunItem = assignment.RunItem
					if r.RunItem != nil {
						r.RunItem.RecordSUTResponse(r.Response)
					}
				}
				return r, nil
			},
		},
		func(item any) { // onHit
			if j == nil {
				return
			}
			assignment := item.(sutAssignment)
			j.Entry("prompt_sut_workers", "using cached sut response", map[string]any{"item": assignment.RunItem})
		},
		func(item any) { // onMiss
			if j == nil {
				return
			}
			assignment := item.(sutAssignment)
			j.Entry("prompt_sut_workers", "fetched sut response", map[string]any{"item": assignment.RunItem})
		},
	), nil
}

// evaluateOnce runs one SUT's translate → evaluate (retried unboundedly,
// spec.md §9) → translate-response round trip.
func evaluateOnce(ctx context.Context, s sut.SUT, prompt model.Prompt, retryDelay time.Duration) (model.SUTResponse, error) {
	request, err := s.TranslateRequest(prompt)
	if err != nil {
		return model.SUTResponse{}, fmt.Errorf("translating request: %w", err)
	}

	var response any
	err = retry.Unbounded(ctx, retryDelay, func() error {
		var evalErr error
		response, evalErr = s.Evaluate(ctx, request)
		return evalErr
	})
	if err != nil {
		return model.SUTResponse{}, fmt.Errorf("evaluating: %w", err)
	}

	sutResp, err := s.TranslateResponse(request, response)
	if err != nil {
		return model.SUTResponse{}, fmt.Errorf("translating response: %w", err)
	}
	return sutResp, nil
}

// NewSink builds the Sink stage that buffers per-SUT results for each
// TestItem and writes a row once every configured SUT has responded,
// mirroring original_source/prompt_pipeline.py's PromptSink.
func NewSink(sutUIDs []string, out PromptOutput) *pipeline.Sink {
	total := len(sutUIDs)

	var mu sync.Mutex
	unfinished := make(map[string]map[string]PromptResult) // TestItem.SourceID -> {sutUID: result}
	items := make(map[string]model.TestItem)

	return pipeline.NewSink("prompt_sink", func(ctx context.Context, item any) error {
		r := item.(sutResult)

		mu.Lock()
		bucket, ok := unfinished[r.Item.SourceID]
		if !ok {
			bucket = make(map[string]PromptResult)
			unfinished[r.Item.SourceID] = bucket
			items[r.Item.SourceID] = r.Item
		}
		bucket[r.SUTUID] = PromptResult{Text: r.Response.Text, RunItem: r.RunItem}
		ready := len(bucket) == total
		if ready {
			delete(unfinished, r.Item.SourceID)
		}
		mu.Unlock()

		if !ready {
			return nil
		}
		if err := out.Write(items[r.Item.SourceID], bucket); err != nil {
			return fmt.Errorf("promptpipeline: writing output row: %w", err)
		}
		slog.Debug("wrote prompt result", "source_id", r.Item.SourceID)
		return nil
	})
}
