package cachekey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRequest struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   *int    `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature"`
}

func TestForRequestIsStableAcrossEquivalentValues(t *testing.T) {
	k1, err := ForRequest(fakeRequest{Prompt: "hi", Temperature: 0.5})
	require.NoError(t, err)
	k2, err := ForRequest(fakeRequest{Prompt: "hi", Temperature: 0.5})
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
}

func TestForRequestExcludesNullFields(t *testing.T) {
	withNil, err := ForRequest(fakeRequest{Prompt: "hi"})
	require.NoError(t, err)

	assert.NotContains(t, withNil, "max_tokens")
}

func TestForRequestDiffersOnDiscriminators(t *testing.T) {
	k1, err := ForRequest(fakeRequest{Prompt: "hi"}, "sut-a")
	require.NoError(t, err)
	k2, err := ForRequest(fakeRequest{Prompt: "hi"}, "sut-b")
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2)
}

func TestForRequestHandlesRawStringRequests(t *testing.T) {
	k, err := ForRequest("raw annotator request text", "annotator-a")
	require.NoError(t, err)
	assert.Equal(t, "raw annotator request text\x00annotator-a", k)
}
