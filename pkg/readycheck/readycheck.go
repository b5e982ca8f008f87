// Package readycheck runs a parallel pre-flight smoke test over every
// configured SUT and annotator before a run starts, so a misconfigured or
// unreachable component fails fast with a clear listing instead of
// surfacing as a wave of per-item failures mid-run (spec.md §4.7 step 2).
package readycheck

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mlcommons/modelbench-runner/pkg/annotator"
	"github.com/mlcommons/modelbench-runner/pkg/errs"
	"github.com/mlcommons/modelbench-runner/pkg/model"
	"github.com/mlcommons/modelbench-runner/pkg/sut"
)

// ProbePrompt is the fixed "hello world" text sent to every SUT during a
// ready check.
const ProbePrompt = "Hello, this is a connectivity check."

// probeResponse is the fixed SUT response text used to probe annotators —
// annotators run over a SUT's response, not a prompt directly, so the
// probe needs a synthetic interaction to translate.
const probeResponse = "This is a test response."

// Run submits one fixed probe through every sut and annotator concurrently
// and confirms each succeeds: a SUT probe must return a non-empty
// completion; an annotator probe must simply not error. If anything
// fails, Run returns an *errs.ReadyCheckFailure naming every uid that
// failed and why, and the caller should abort before starting the
// pipeline (spec.md §4.7: "If any probe fails, abort with a listing of
// SUT→pass/fail").
func Run(ctx context.Context, suts map[string]sut.SUT, annotators map[string]annotator.Annotator) error {
	var mu sync.Mutex
	failed := make(map[string]error)

	g, gctx := errgroup.WithContext(ctx)

	for uid, s := range suts {
		uid, s := uid, s
		g.Go(func() error {
			if err := probeSUT(gctx, s); err != nil {
				mu.Lock()
				failed[uid] = err
				mu.Unlock()
			}
			return nil
		})
	}
	for uid, a := range annotators {
		uid, a := uid, a
		g.Go(func() error {
			if err := probeAnnotator(gctx, a); err != nil {
				mu.Lock()
				failed[uid] = err
				mu.Unlock()
			}
			return nil
		})
	}

	// errgroup.Go's functions never themselves return an error here (each
	// records its own failure into the shared map instead), so Wait returns
	// nil here; ctx cancellation reaches each probe through gctx instead.
	if err := g.Wait(); err != nil {
		return fmt.Errorf("readycheck: %w", err)
	}

	if len(failed) > 0 {
		return &errs.ReadyCheckFailure{Failed: failed}
	}
	return nil
}

// probeSUT sends ProbePrompt through sut's translate/evaluate/translate
// triple and requires a non-empty completion.
func probeSUT(ctx context.Context, s sut.SUT) error {
	request, err := s.TranslateRequest(model.Prompt{Text: ProbePrompt})
	if err != nil {
		return fmt.Errorf("translating probe request: %w", err)
	}
	response, err := s.Evaluate(ctx, request)
	if err != nil {
		return fmt.Errorf("evaluating probe: %w", err)
	}
	result, err := s.TranslateResponse(request, response)
	if err != nil {
		return fmt.Errorf("translating probe response: %w", err)
	}
	if result.Text == "" {
		return fmt.Errorf("probe returned an empty completion")
	}
	return nil
}

// probeAnnotator sends a synthetic interaction carrying probeResponse
// through annotator's translate/annotate/translate triple and requires
// that it not error.
func probeAnnotator(ctx context.Context, a annotator.Annotator) error {
	interaction := model.SUTInteraction{
		Item:     model.TestItem{SourceID: "readycheck"},
		SUTUID:   "readycheck",
		Response: model.SUTResponse{Text: probeResponse},
	}
	request, err := a.TranslateInteraction(interaction)
	if err != nil {
		return fmt.Errorf("translating probe interaction: %w", err)
	}
	response, err := a.Annotate(ctx, request)
	if err != nil {
		return fmt.Errorf("annotating probe: %w", err)
	}
	if _, err := a.TranslateResponse(request, response); err != nil {
		return fmt.Errorf("translating probe annotation: %w", err)
	}
	return nil
}

// SortedFailedUIDs returns the uids in f.Failed sorted for stable,
// deterministic reporting.
func SortedFailedUIDs(f *errs.ReadyCheckFailure) []string {
	uids := make([]string, 0, len(f.Failed))
	for uid := range f.Failed {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	return uids
}
