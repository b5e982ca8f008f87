// Package config loads and validates the single YAML file
// (benchrunner.yaml) that describes a run's SUTs, annotators, benchmarks,
// and tunable defaults, plus the secrets those components need from the
// process environment. Grounded on the teacher's pkg/config loader/merge/
// envexpand/errors machinery, scaled to this module's far narrower
// configuration surface (no MCP servers, agent chains, or LLM providers).
package config

// Config is the umbrella configuration object returned by Initialize and
// used throughout the runner.
type Config struct {
	configDir string

	DataDir  string
	Defaults *Defaults

	SUTs       map[string]ComponentConfig
	Annotators map[string]ComponentConfig
	Tests      map[string]TestConfig
	Benchmarks map[string]BenchmarkConfig

	Secrets *Secrets
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// Stats summarizes loaded configuration, for logging.
type Stats struct {
	SUTs       int
	Annotators int
	Tests      int
	Benchmarks int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() Stats {
	return Stats{
		SUTs:       len(c.SUTs),
		Annotators: len(c.Annotators),
		Tests:      len(c.Tests),
		Benchmarks: len(c.Benchmarks),
	}
}

// SUT retrieves a SUT's configuration by uid.
func (c *Config) SUT(uid string) (ComponentConfig, error) {
	comp, ok := c.SUTs[uid]
	if !ok {
		return ComponentConfig{}, &configNotFoundError{kind: "SUT", uid: uid, sentinel: ErrSUTNotFound}
	}
	return comp, nil
}

// Annotator retrieves an annotator's configuration by uid.
func (c *Config) Annotator(uid string) (ComponentConfig, error) {
	comp, ok := c.Annotators[uid]
	if !ok {
		return ComponentConfig{}, &configNotFoundError{kind: "annotator", uid: uid, sentinel: ErrAnnotatorNotFound}
	}
	return comp, nil
}

// Test retrieves a test's configuration by uid.
func (c *Config) Test(uid string) (TestConfig, error) {
	t, ok := c.Tests[uid]
	if !ok {
		return TestConfig{}, &configNotFoundError{kind: "test", uid: uid, sentinel: ErrTestNotFound}
	}
	return t, nil
}

// Benchmark retrieves a benchmark's configuration by uid.
func (c *Config) Benchmark(uid string) (BenchmarkConfig, error) {
	comp, ok := c.Benchmarks[uid]
	if !ok {
		return BenchmarkConfig{}, &configNotFoundError{kind: "benchmark", uid: uid, sentinel: ErrBenchmarkNotFound}
	}
	return comp, nil
}

type configNotFoundError struct {
	kind     string
	uid      string
	sentinel error
}

func (e *configNotFoundError) Error() string {
	return e.kind + " " + e.uid + ": " + e.sentinel.Error()
}

func (e *configNotFoundError) Unwrap() error { return e.sentinel }
