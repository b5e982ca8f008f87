package annotator

import (
	"fmt"
	"sort"
	"sync"
)

// EnsembleUID is the synthetic annotator uid the ensemble voter's own
// result is recorded under, matching the original's convention of
// naming the synthesized verdict "ensemble" (original_source's
// EnsembleAnnotator/ensemble_strategies).
const EnsembleUID = "ensemble"

// VoteStrategy computes a single synthetic verdict from the full set of
// per-annotator results available for one interaction. Implementations may
// tolerate a partial set (some required annotator uids missing) or not;
// that decision is the strategy's to make, not the voter's
// (original_source/test_ensemble_annotator.py:
// test_missing_annotations_ignored exercises a strategy that does
// tolerate gaps).
type VoteStrategy interface {
	Vote(results map[string]any) (any, error)
}

// Voter collects per-annotator results for each interaction (keyed by the
// caller) and, once every required annotator uid has reported in, computes
// one synthetic "ensemble" verdict via strategy. A VoteStrategy error
// propagates to the caller rather than being swallowed
// (original_source/test_ensemble_annotator.py: test_bad_strategy_propagates_error).
type Voter struct {
	required []string
	strategy VoteStrategy

	mu      sync.Mutex
	partial map[string]map[string]any
}

// NewVoter constructs a Voter requiring a result from every uid in
// requiredAnnotators before it will vote for a given key.
func NewVoter(requiredAnnotators []string, strategy VoteStrategy) *Voter {
	required := append([]string(nil), requiredAnnotators...)
	sort.Strings(required)
	return &Voter{
		required: required,
		strategy: strategy,
		partial:  make(map[string]map[string]any),
	}
}

// Record stores annotatorUID's result for key. If every required
// annotator has now reported for key, Record computes and returns the
// ensemble verdict (ready=true) and clears the buffered partial state for
// key. Otherwise it returns ready=false.
func (v *Voter) Record(key, annotatorUID string, result any) (verdict any, ready bool, err error) {
	v.mu.Lock()
	bucket, ok := v.partial[key]
	if !ok {
		bucket = make(map[string]any)
		v.partial[key] = bucket
	}
	bucket[annotatorUID] = result

	if !v.allPresentLocked(bucket) {
		v.mu.Unlock()
		return nil, false, nil
	}
	delete(v.partial, key)
	v.mu.Unlock()

	verdict, err = v.strategy.Vote(bucket)
	if err != nil {
		return nil, false, fmt.Errorf("annotator: ensemble vote for %q failed: %w", key, err)
	}
	return verdict, true, nil
}

func (v *Voter) allPresentLocked(bucket map[string]any) bool {
	for _, uid := range v.required {
		if _, ok := bucket[uid]; !ok {
			return false
		}
	}
	return true
}
