package journal

import (
	"github.com/mlcommons/modelbench-runner/pkg/model"
)

// ForJournal turns a value into something JSON-friendly for a journal
// entry, mirroring original_source/run_journal.py's `for_journal` dispatch:
// TestRunItems are reduced to their identifying triple, errors to a
// class/message pair, and everything else passes through unchanged.
func ForJournal(v any) any {
	switch t := v.(type) {
	case *model.TestRunItem:
		if t == nil {
			return nil
		}
		return map[string]any{
			"test": t.TestUID,
			"item": t.Item.SourceID,
			"sut":  t.SUTUID,
		}
	case model.TestRunItem:
		return ForJournal(&t)
	case error:
		return map[string]any{
			"class":   errorClassName(t),
			"message": t.Error(),
		}
	default:
		return v
	}
}

// errorClassName approximates Python's `__class__.__name__` for an error by
// reporting its Go type name via a type switch on the common journal-worthy
// error shapes; unknown types fall back to a generic label.
func errorClassName(err error) string {
	switch err.(type) {
	case model.ItemException:
		return "ItemException"
	default:
		return "error"
	}
}
