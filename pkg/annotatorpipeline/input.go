// Package annotatorpipeline assembles the annotator-side pipeline: read
// previously-recorded SUT interactions, fan each one out to every
// configured annotator, annotate, and sink the combined per-annotator
// results as JSONL (spec.md §4.6).
package annotatorpipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/mlcommons/modelbench-runner/pkg/errs"
	"github.com/mlcommons/modelbench-runner/pkg/model"
	"github.com/mlcommons/modelbench-runner/pkg/pipeline"
)

// requiredColumns is the only CSV header schema this implementation
// accepts for annotator input, per spec.md §9's Open Question (the later
// schema, not the legacy Prompt/UID/SUT/Response one
// original_source/annotation_pipeline.py's CsvAnnotatorInput used).
var requiredColumns = []string{"prompt_uid", "prompt_text", "sut_uid", "sut_response"}

// CSVAnnotatorInput reads model.SUTInteractions from a CSV file recording
// prior SUT results, one row per (prompt, SUT) pair.
type CSVAnnotatorInput struct {
	file   *os.File
	reader *csv.Reader
	idx    map[string]int
}

// OpenCSVAnnotatorInput opens path and validates its header before
// returning, so an unsupported schema fails fast.
func OpenCSVAnnotatorInput(path string) (*CSVAnnotatorInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("annotatorpipeline: opening %s: %w", path, err)
	}
	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("annotatorpipeline: reading header from %s: %w", path, err)
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
				Reason:          fmt.Sprintf("missing required column %q (legacy Prompt/UID/SUT/Response schema is unsupported)", required),
			}
		}
	}

	return &CSVAnnotatorInput{file: f, reader: r, idx: idx}, nil
}

// Next implements pipeline.ItemSource.
func (c *CSVAnnotatorInput) Next() (any, bool, error) {
	row, err := c.reader.Read()
	if err == io.EOF {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("annotatorpipeline: reading row: %w", err)
	}

	interaction := model.SUTInteraction{
		Item: model.TestItem{
			SourceID: row[c.idx["prompt_uid"]],
			Prompt:   model.Prompt{Text: row[c.idx["prompt_text"]]},
		},
		SUTUID:   row[c.idx["sut_uid"]],
		Response: model.SUTResponse{Text: row[c.idx["sut_response"]]},
	}
	return interaction, true, nil
}

// Close releases the underlying file handle.
func (c *CSVAnnotatorInput) Close() error {
	return c.file.Close()
}

var _ pipeline.ItemSource = (*CSVAnnotatorInput)(nil)
