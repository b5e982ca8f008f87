package promptpipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"github.com/mlcommons/modelbench-runner/pkg/model"
)

// PromptResult is one SUT's response text for a TestItem, plus the
// TestRunItem the assigner attached to track it through the prompt stage.
type PromptResult struct {
	Text    string
	RunItem *model.TestRunItem
}

// PromptOutput receives one completed TestItem's per-SUT results once every
// SUT assigned to it has responded.
type PromptOutput interface {
	Write(item model.TestItem, results map[string]PromptResult) error
	Close() error
}

// CSVPromptOutput writes one row per TestItem: prompt_uid, prompt_text,
// then one column per SUT uid (in sorted order for determinism), matching
// original_source/prompt_pipeline.py's CsvPromptOutput but with the
// prompt_uid/prompt_text header names.
type CSVPromptOutput struct {
	file    *os.File
	writer  *csv.Writer
	sutUIDs []string
}

// NewCSVPromptOutput creates path and writes its header row.
func NewCSVPromptOutput(path string, sutUIDs []string) (*CSVPromptOutput, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("promptpipeline: creating %s: %w", path, err)
	}
	sorted := append([]string(nil), sutUIDs...)
	sort.Strings(sorted)

	w := csv.NewWriter(f)
	header := append([]string{"prompt_uid", "prompt_text"}, sorted...)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("promptpipeline: writing header to %s: %w", path, err)
	}

	return &CSVPromptOutput{file: f, writer: w, sutUIDs: sorted}, nil
}

// Write appends one row for item, filling in "" for any SUT uid missing
// from results (that SUT failed on this item).
func (c *CSVPromptOutput) Write(item model.TestItem, results map[string]PromptResult) error {
	row := []string{item.SourceID, item.Prompt.Text}
	for _, uid := range c.sutUIDs {
		row = append(row, results[uid].Text)
	}
	if err := c.writer.Write(row); err != nil {
		return fmt.Errorf("promptpipeline: writing row: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (c *CSVPromptOutput) Close() error {
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		_ = c.file.Close()
		return fmt.Errorf("promptpipeline: flushing output: %w", err)
	}
	return c.file.Close()
}

var _ PromptOutput = (*CSVPromptOutput)(nil)
