package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlcommons/modelbench-runner/pkg/model"
	"github.com/mlcommons/modelbench-runner/pkg/promptpipeline"
)

func TestInteractionBridgeWriteFansOutPerSUT(t *testing.T) {
	b := newInteractionBridge([]string{"sut-a", "sut-b"})
	item := model.TestItem{SourceID: "1", Prompt: model.Prompt{Text: "hi"}}

	require.NoError(t, b.Write(item, map[string]promptpipeline.PromptResult{
		"sut-a": {Text: "reply-a"},
		"sut-b": {Text: "reply-b"},
	}))

	require.Len(t, b.interactions, 2)
	assert.Equal(t, "sut-a", b.interactions[0].SUTUID)
	assert.Equal(t, "reply-a", b.interactions[0].Response.Text)
	assert.Equal(t, "sut-b", b.interactions[1].SUTUID)
	assert.Equal(t, "reply-b", b.interactions[1].Response.Text)
}

func TestInteractionBridgeWriteHandlesMissingResult(t *testing.T) {
	b := newInteractionBridge([]string{"sut-a", "sut-b"})
	item := model.TestItem{SourceID: "1"}

	require.NoError(t, b.Write(item, map[string]promptpipeline.PromptResult{"sut-a": {Text: "reply-a"}}))

	require.Len(t, b.interactions, 2)
	assert.Equal(t, "reply-a", b.interactions[0].Response.Text)
	assert.Equal(t, "", b.interactions[1].Response.Text)
}

func TestInteractionBridgeCloseIsNoop(t *testing.T) {
	b := newInteractionBridge(nil)
	assert.NoError(t, b.Close())
}
