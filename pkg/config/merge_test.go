package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeDefaultsNilUserKeepsBuiltin(t *testing.T) {
	builtin := DefaultDefaults()

	merged, err := mergeDefaults(builtin, nil)
	require.NoError(t, err)
	assert.Equal(t, *builtin, *merged)
}

func TestMergeDefaultsOverridesOnlySetFields(t *testing.T) {
	builtin := DefaultDefaults()
	user := &Defaults{SUTWorkers: 32}

	merged, err := mergeDefaults(builtin, user)
	require.NoError(t, err)

	assert.Equal(t, 32, merged.SUTWorkers)
	assert.Equal(t, builtin.AnnotatorWorkers, merged.AnnotatorWorkers)
	assert.Equal(t, builtin.QueueCapacityMultiplier, merged.QueueCapacityMultiplier)
}

func TestMergeDefaultsDoesNotMutateBuiltin(t *testing.T) {
	builtin := DefaultDefaults()
	originalWorkers := builtin.SUTWorkers

	_, err := mergeDefaults(builtin, &Defaults{SUTWorkers: 99})
	require.NoError(t, err)

	assert.Equal(t, originalWorkers, builtin.SUTWorkers)
}
