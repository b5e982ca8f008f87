package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Defaults: DefaultDefaults(),
		SUTs: map[string]ComponentConfig{
			"demo-sut": {Class: "demo-sut-v1"},
		},
		Annotators: map[string]ComponentConfig{
			"demo-annotator": {Class: "demo-annotator-v1"},
		},
		Tests: map[string]TestConfig{
			"hazard-a": {PromptsPath: "prompts.csv", SUTs: []string{"demo-sut"}, Annotators: []string{"demo-annotator"}},
		},
		Benchmarks: map[string]BenchmarkConfig{
			"safety-v1": {Tests: []string{"hazard-a"}},
		},
	}
}

func TestValidateAllAcceptsValidConfig(t *testing.T) {
	err := NewValidator(validConfig()).ValidateAll()
	assert.NoError(t, err)
}

func TestValidateAllRejectsSUTMissingClass(t *testing.T) {
	cfg := validConfig()
	cfg.SUTs["broken-sut"] = ComponentConfig{}

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "sut", verr.Component)
	assert.Equal(t, "broken-sut", verr.ID)
	assert.True(t, errors.Is(err, ErrMissingRequiredField))
}

func TestValidateAllRejectsAnnotatorMissingClass(t *testing.T) {
	cfg := validConfig()
	cfg.Annotators["broken-annotator"] = ComponentConfig{}

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "annotator", verr.Component)
}

func TestValidateAllRejectsBenchmarkWithNoTests(t *testing.T) {
	cfg := validConfig()
	cfg.Benchmarks["empty-benchmark"] = BenchmarkConfig{}

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "benchmark", verr.Component)
	assert.Equal(t, "empty-benchmark", verr.ID)
}

func TestValidateAllChecksSUTsBeforeBenchmarks(t *testing.T) {
	cfg := validConfig()
	cfg.SUTs["broken-sut"] = ComponentConfig{}
	cfg.Benchmarks["empty-benchmark"] = BenchmarkConfig{}

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "sut", verr.Component)
}
