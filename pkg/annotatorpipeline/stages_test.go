package annotatorpipeline

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlcommons/modelbench-runner/pkg/annotator"
	"github.com/mlcommons/modelbench-runner/pkg/cache"
	"github.com/mlcommons/modelbench-runner/pkg/model"
	"github.com/mlcommons/modelbench-runner/pkg/pipeline"
)

type sliceInteractionSource struct {
	items []model.SUTInteraction
	pos   int
}

func (s *sliceInteractionSource) Next() (any, bool, error) {
	if s.pos >= len(s.items) {
		return nil, false, nil
	}
	item := s.items[s.pos]
	s.pos++
	return item, true, nil
}

// stubAnnotator labels every interaction "safe" unless its response text
// is exactly "bad".
type stubAnnotator struct {
	uid  string
	fail bool
}

func (a *stubAnnotator) UID() string { return a.uid }
func (a *stubAnnotator) TranslateInteraction(interaction model.SUTInteraction) (any, error) {
	return interaction.Response.Text, nil
}
func (a *stubAnnotator) Annotate(ctx context.Context, request any) (any, error) {
	if a.fail {
		return nil, fmt.Errorf("stub annotator failure")
	}
	text := request.(string)
	if text == "bad" {
		return "unsafe", nil
	}
	return "safe", nil
}
func (a *stubAnnotator) TranslateResponse(request, response any) (model.Annotation, error) {
	return model.Annotation{AnnotatorUID: a.uid, Raw: response.(string)}, nil
}

type recordingAnnotatorOutput struct {
	rows []struct {
		interaction model.SUTInteraction
		annotations map[string]model.Annotation
	}
}

func (o *recordingAnnotatorOutput) Write(interaction model.SUTInteraction, annotations map[string]model.Annotation) error {
	o.rows = append(o.rows, struct {
		interaction model.SUTInteraction
		annotations map[string]model.Annotation
	}{interaction, annotations})
	return nil
}
func (o *recordingAnnotatorOutput) Close() error { return nil }

func TestAnnotatorPipelineEndToEnd(t *testing.T) {
	items := []model.SUTInteraction{
		{Item: model.TestItem{SourceID: "1"}, SUTUID: "sut-a", Response: model.SUTResponse{Text: "fine"}},
		{Item: model.TestItem{SourceID: "2"}, SUTUID: "sut-a", Response: model.SUTResponse{Text: "bad"}},
	}
	annotators := map[string]annotator.Annotator{
		"ann-x": &stubAnnotator{uid: "ann-x"},
		"ann-y": &stubAnnotator{uid: "ann-y"},
	}

	source := NewSource(4, &sliceInteractionSource{items: items})
	assigner := NewAssigner(4, []string{"ann-x", "ann-y"}, nil)
	workers := NewWorkers(4, 2, annotators, cache.NewMemory(), nil)
	out := &recordingAnnotatorOutput{}
	sink := NewSink([]string{"ann-x", "ann-y"}, out)

	p := pipeline.New(nil, source, assigner, workers, sink)
	p.Run(context.Background())

	require.Len(t, out.rows, 2)
	sort.Slice(out.rows, func(i, j int) bool {
		return out.rows[i].interaction.Item.SourceID < out.rows[j].interaction.Item.SourceID
	})
	assert.Equal(t, "safe", out.rows[0].annotations["ann-x"].Raw)
	assert.Equal(t, "unsafe", out.rows[1].annotations["ann-x"].Raw)
}

func TestAnnotatorWorkersDropsFailingAnnotatorResult(t *testing.T) {
	items := []model.SUTInteraction{
		{Item: model.TestItem{SourceID: "1"}, SUTUID: "sut-a", Response: model.SUTResponse{Text: "fine"}},
	}
	annotators := map[string]annotator.Annotator{
		"ok":     &stubAnnotator{uid: "ok"},
		"broken": &stubAnnotator{uid: "broken", fail: true},
	}

	source := NewSource(4, &sliceInteractionSource{items: items})
	assigner := NewAssigner(4, []string{"ok", "broken"}, nil)
	workers := NewWorkers(4, 2, annotators, cache.NewMemory(), nil)
	out := &recordingAnnotatorOutput{}
	sink := NewSink([]string{"ok", "broken"}, out)

	p := pipeline.New(nil, source, assigner, workers, sink)
	p.Run(context.Background())

	// "broken" never produces an annotatorResult, so the sink never sees
	// the full required set and never writes a row.
	assert.Empty(t, out.rows)
}

type majorityVote struct{}

func (majorityVote) Vote(results map[string]any) (any, error) {
	unsafe := 0
	for _, v := range results {
		if v.(string) == "unsafe" {
			unsafe++
		}
	}
	if unsafe*2 > len(results) {
		return "unsafe", nil
	}
	return "safe", nil
}

func TestEnsembleStageAddsSyntheticAnnotation(t *testing.T) {
	items := []model.SUTInteraction{
		{Item: model.TestItem{SourceID: "1"}, SUTUID: "sut-a", Response: model.SUTResponse{Text: "bad"}},
	}
	annotators := map[string]annotator.Annotator{
		"ann-x": &stubAnnotator{uid: "ann-x"},
		"ann-y": &stubAnnotator{uid: "ann-y"},
	}
	voter := annotator.NewVoter([]string{"ann-x", "ann-y"}, majorityVote{})

	source := NewSource(4, &sliceInteractionSource{items: items})
	assigner := NewAssigner(4, []string{"ann-x", "ann-y"}, nil)
	workers := NewWorkers(4, 2, annotators, cache.NewMemory(), nil)
	ensemble := NewEnsembleStage(4, voter)
	out := &recordingAnnotatorOutput{}
	sink := NewSink([]string{"ann-x", "ann-y", annotator.EnsembleUID}, out)

	p := pipeline.New(nil, source, assigner, workers, ensemble, sink)
	p.Run(context.Background())

	require.Len(t, out.rows, 1)
	ensembleVerdict := out.rows[0].annotations[annotator.EnsembleUID]
	assert.Equal(t, "unsafe", ensembleVerdict.Structured)
}
