package runner

import (
	"github.com/mlcommons/modelbench-runner/pkg/model"
	"github.com/mlcommons/modelbench-runner/pkg/promptpipeline"
)

// interactionBridge receives each TestItem's completed per-SUT results from
// the prompt pipeline's sink and turns them into SUTInteractions ready to
// feed straight into the annotator pipeline, in memory — no CSV file round
// trip. This is the fused fifth stage spec.md §4.7 describes as one
// Pipeline (source → assigner → sut workers → annotation workers → sink);
// the standalone pkg/promptpipeline/pkg/annotatorpipeline CSV tools stay
// file-based for their own CLI-driven use, but the runner's internal
// pipeline bridges them directly. Sink.run drives exactly one goroutine,
// so collect needs no locking of its own.
type interactionBridge struct {
	sutUIDs      []string
	interactions []model.SUTInteraction
}

func newInteractionBridge(sutUIDs []string) *interactionBridge {
	return &interactionBridge{sutUIDs: append([]string(nil), sutUIDs...)}
}

// Write implements promptpipeline.PromptOutput.
func (b *interactionBridge) Write(item model.TestItem, results map[string]promptpipeline.PromptResult) error {
	for _, uid := range b.sutUIDs {
		r := results[uid]
		b.interactions = append(b.interactions, model.SUTInteraction{
			Item:     item,
			SUTUID:   uid,
			Response: model.SUTResponse{Text: r.Text},
			RunItem:  r.RunItem,
		})
	}
	return nil
}

// Close implements promptpipeline.PromptOutput.
func (b *interactionBridge) Close() error { return nil }

var _ promptpipeline.PromptOutput = (*interactionBridge)(nil)
