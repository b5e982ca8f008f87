// Package promptpipeline assembles the prompt-side pipeline: read prompts
// from an input source, fan each one out to every configured SUT, evaluate
// (with caching and unbounded retry), and sink completed interactions
// (spec.md §4.5).
package promptpipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/mlcommons/modelbench-runner/pkg/errs"
	"github.com/mlcommons/modelbench-runner/pkg/model"
	"github.com/mlcommons/modelbench-runner/pkg/pipeline"
)

// requiredColumns is the only CSV header schema this implementation
// accepts, per spec.md §9's Open Question: the later prompt_uid/prompt_text
// schema, not the legacy Prompt/UID schema
// (original_source/prompt_pipeline.py's CsvPromptInput used "UID"/"Text";
// the legacy columns intentionally fail validation here instead of being
// silently accepted).
var requiredColumns = []string{"prompt_uid", "prompt_text"}

// CSVPromptInput reads TestItems from a CSV file using the prompt_uid/
// prompt_text schema. Any additional columns are forwarded verbatim as
// TestItem.Context.
type CSVPromptInput struct {
	file   *os.File
	reader *csv.Reader
	header []string
	idx    map[string]int
}

// OpenCSVPromptInput opens path and validates its header against
// requiredColumns before returning, so a schema mismatch fails fast instead
// of partway through a run.
func OpenCSVPromptInput(path string) (*CSVPromptInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("promptpipeline: opening %s: %w", path, err)
	}
	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("promptpipeline: reading header from %s: %w", path, err)
	}

	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[col] = i
	}
	for _, required := range requiredColumns {
		if _, ok := idx[required]; !ok {
			_ = f.Close()
			return nil, &errs.SchemaValidationError{
				Path:            path,
				ExpectedColumns: requiredColumns,
				Reason:          fmt.Sprintf("missing required column %q (legacy Prompt/UID schema is unsupported)", required),
			}
		}
	}

	return &CSVPromptInput{file: f, reader: r, header: header, idx: idx}, nil
}

// Next implements pipeline.ItemSource.
func (c *CSVPromptInput) Next() (any, bool, error) {
	row, err := c.reader.Read()
	if err == io.EOF {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("promptpipeline: reading row: %w", err)
	}

	context := make(map[string]string, len(c.header))
	for col, i := range c.idx {
		if col == "prompt_uid" || col == "prompt_text" {
			continue
		}
		context[col] = row[i]
	}

	sourceID := row[c.idx["prompt_uid"]]
	if sourceID == "" {
		// A blank cell, as opposed to a missing column, isn't a schema
		// violation; fall back to a generated id so the row still gets a
		// stable identity for caching and the run journal.
		sourceID = uuid.NewString()
	}

	item := model.TestItem{
		SourceID: sourceID,
		Prompt:   model.Prompt{Text: row[c.idx["prompt_text"]]},
		Context:  context,
	}
	return item, true, nil
}

// Close releases the underlying file handle.
func (c *CSVPromptInput) Close() error {
	return c.file.Close()
}

var _ pipeline.ItemSource = (*CSVPromptInput)(nil)
