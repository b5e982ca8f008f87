package annotatorpipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mlcommons/modelbench-runner/pkg/model"
)

// AnnotatorOutput receives one SUTInteraction's combined per-annotator
// results once every configured annotator has responded (or the interaction
// has otherwise been finalized by the sink).
type AnnotatorOutput interface {
	Write(interaction model.SUTInteraction, annotations map[string]model.Annotation) error
	Close() error
}

// annotatorOutputRow is the JSON shape written per line, mirroring
// original_source/annotation_pipeline.py's JsonlAnnotatorOutput.write's
// output_obj (renamed to this implementation's field names).
type annotatorOutputRow struct {
	PromptUID   string         `json:"prompt_uid"`
	PromptText  string         `json:"prompt_text"`
	SUTUID      string         `json:"sut_uid"`
	SUTResponse string         `json:"sut_response"`
	Annotations map[string]any `json:"annotations"`
}

// JSONLAnnotatorOutput appends one JSON object per line, matching
// original_source/annotation_pipeline.py's JsonlAnnotatorOutput.
type JSONLAnnotatorOutput struct {
	file *os.File
	w    *bufio.Writer
}

// NewJSONLAnnotatorOutput creates path for writing.
func NewJSONLAnnotatorOutput(path string) (*JSONLAnnotatorOutput, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("annotatorpipeline: creating %s: %w", path, err)
	}
	return &JSONLAnnotatorOutput{file: f, w: bufio.NewWriter(f)}, nil
}

// Write appends one row for interaction, flattening each annotation down
// to its Structured value when present, its Raw string otherwise.
func (j *JSONLAnnotatorOutput) Write(interaction model.SUTInteraction, annotations map[string]model.Annotation) error {
	flat := make(map[string]any, len(annotations))
	for uid, a := range annotations {
		if a.Structured != nil {
			flat[uid] = a.Structured
		} else {
			flat[uid] = a.Raw
		}
	}
	row := annotatorOutputRow{
		PromptUID:   interaction.Item.SourceID,
		PromptText:  interaction.Item.Prompt.Text,
		SUTUID:      interaction.SUTUID,
		SUTResponse: interaction.Response.Text,
		Annotations: flat,
	}
	encoded, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("annotatorpipeline: encoding row: %w", err)
	}
	if _, err := j.w.Write(encoded); err != nil {
		return fmt.Errorf("annotatorpipeline: writing row: %w", err)
	}
	if err := j.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("annotatorpipeline: writing row: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (j *JSONLAnnotatorOutput) Close() error {
	if err := j.w.Flush(); err != nil {
		_ = j.file.Close()
		return fmt.Errorf("annotatorpipeline: flushing output: %w", err)
	}
	return j.file.Close()
}

var _ AnnotatorOutput = (*JSONLAnnotatorOutput)(nil)
