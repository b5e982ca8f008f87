package runner

import (
	"fmt"
	"math/rand"

	"github.com/mlcommons/modelbench-runner/pkg/model"
	"github.com/mlcommons/modelbench-runner/pkg/pipeline"
)

// collectAndLimit drains input fully into memory, then — when maxItems is
// positive and smaller than the number of items collected — shuffles with
// a fixed seed of 0 and takes the prefix. Grounded on
// original_source/benchmark_runner.py's TestRunItemSource.limit_to_max,
// which exists precisely to make a bounded run reproducible (spec.md §4.7
// step 4, §8's "re-running with max_items=n and the same RNG seed selects
// the identical subset").
func collectAndLimit(input pipeline.ItemSource, maxItems int) ([]model.TestItem, error) {
	var items []model.TestItem
	for {
		item, ok, err := input.Next()
		if err != nil {
			return nil, fmt.Errorf("runner: reading input item: %w", err)
		}
		if !ok {
			break
		}
		items = append(items, item.(model.TestItem))
	}

	if maxItems <= 0 || maxItems >= len(items) {
		return items, nil
	}

	rng := rand.New(rand.NewSource(0))
	rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	return items[:maxItems], nil
}

// sliceItemSource replays a fixed slice of TestItems, feeding
// collectAndLimit's (possibly shuffled-and-truncated) result back into a
// pipeline.Source.
type sliceItemSource struct {
	items []model.TestItem
	pos   int
}

func newSliceItemSource(items []model.TestItem) *sliceItemSource {
	return &sliceItemSource{items: items}
}

func (s *sliceItemSource) Next() (any, bool, error) {
	if s.pos >= len(s.items) {
		return nil, false, nil
	}
	item := s.items[s.pos]
	s.pos++
	return item, true, nil
}

var _ pipeline.ItemSource = (*sliceItemSource)(nil)
