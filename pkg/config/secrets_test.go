package config

import (
	"testing"

	"github.com/mlcommons/modelbench-runner/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSecretsFromEnvSnapshotsPresentNames(t *testing.T) {
	t.Setenv("BENCHRUNNER_TEST_API_KEY", "secret-value")

	secrets := LoadSecretsFromEnv([]string{"BENCHRUNNER_TEST_API_KEY", "BENCHRUNNER_TEST_MISSING"})

	v, ok := secrets.Get("BENCHRUNNER_TEST_API_KEY")
	assert.True(t, ok)
	assert.Equal(t, "secret-value", v)

	_, ok = secrets.Get("BENCHRUNNER_TEST_MISSING")
	assert.False(t, ok)
}

func TestRaiseIfMissingReturnsNilWhenAllPresent(t *testing.T) {
	t.Setenv("BENCHRUNNER_TEST_KEY_A", "a")
	secrets := LoadSecretsFromEnv([]string{"BENCHRUNNER_TEST_KEY_A"})

	assert.NoError(t, secrets.RaiseIfMissing([]string{"BENCHRUNNER_TEST_KEY_A"}))
}

func TestRaiseIfMissingReportsEveryMissingName(t *testing.T) {
	secrets := LoadSecretsFromEnv(nil)

	err := secrets.RaiseIfMissing([]string{"BENCHRUNNER_TEST_MISSING_A", "BENCHRUNNER_TEST_MISSING_B"})
	require.Error(t, err)

	var configErr *errs.ConfigurationError
	require.ErrorAs(t, err, &configErr)
	assert.Contains(t, configErr.Reason, "BENCHRUNNER_TEST_MISSING_A")
	assert.Contains(t, configErr.Reason, "BENCHRUNNER_TEST_MISSING_B")
}
