package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStatsCountsEachRegistry(t *testing.T) {
	cfg := &Config{
		SUTs: map[string]ComponentConfig{
			"sut-a": {Class: "sut-a-v1"},
			"sut-b": {Class: "sut-b-v1"},
		},
		Annotators: map[string]ComponentConfig{
			"annotator-a": {Class: "annotator-a-v1"},
		},
		Tests: map[string]TestConfig{
			"hazard-a": {PromptsPath: "prompts.csv", SUTs: []string{"sut-a"}},
		},
		Benchmarks: map[string]BenchmarkConfig{
			"safety-v1": {Tests: []string{"hazard-a"}},
		},
	}

	stats := cfg.Stats()
	assert.Equal(t, 2, stats.SUTs)
	assert.Equal(t, 1, stats.Annotators)
	assert.Equal(t, 1, stats.Tests)
	assert.Equal(t, 1, stats.Benchmarks)
}

func TestConfigTestLookup(t *testing.T) {
	cfg := &Config{
		Tests: map[string]TestConfig{
			"hazard-a": {PromptsPath: "prompts.csv", SUTs: []string{"sut-a"}},
		},
	}

	tc, err := cfg.Test("hazard-a")
	require.NoError(t, err)
	assert.Equal(t, "prompts.csv", tc.PromptsPath)

	_, err = cfg.Test("missing-test")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTestNotFound))
}

func TestConfigSUTLookup(t *testing.T) {
	cfg := &Config{
		SUTs: map[string]ComponentConfig{
			"demo-sut": {Class: "demo-sut-v1"},
		},
	}

	comp, err := cfg.SUT("demo-sut")
	require.NoError(t, err)
	assert.Equal(t, "demo-sut-v1", comp.Class)

	_, err = cfg.SUT("missing-sut")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSUTNotFound))
}

func TestConfigAnnotatorLookup(t *testing.T) {
	cfg := &Config{
		Annotators: map[string]ComponentConfig{
			"demo-annotator": {Class: "demo-annotator-v1"},
		},
	}

	_, err := cfg.Annotator("missing-annotator")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAnnotatorNotFound))
}

func TestConfigBenchmarkLookup(t *testing.T) {
	cfg := &Config{
		Benchmarks: map[string]BenchmarkConfig{
			"safety-v1": {Tests: []string{"hazard-a"}},
		},
	}

	b, err := cfg.Benchmark("safety-v1")
	require.NoError(t, err)
	assert.Equal(t, []string{"hazard-a"}, b.Tests)

	_, err = cfg.Benchmark("missing-benchmark")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBenchmarkNotFound))
}

func TestConfigDir(t *testing.T) {
	cfg := &Config{configDir: "/etc/benchrunner"}
	assert.Equal(t, "/etc/benchrunner", cfg.ConfigDir())
}
