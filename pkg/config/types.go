package config

// ComponentConfig describes one configured SUT or annotator: which
// registered constructor builds it, and the options passed to it. The
// constructor itself lives in pkg/registry, keyed by Class.
type ComponentConfig struct {
	// Class is the uid a pkg/registry.Registry constructor was
	// registered under for this SUT/annotator kind.
	Class string `yaml:"class" validate:"required"`
	// SecretsEnv names the environment variables this component needs
	// present before a run can start (spec.md §4.7 step 1: "verifying all
	// required secrets are present; fail fast otherwise").
	SecretsEnv []string `yaml:"secrets_env,omitempty"`
	// Options carries component-specific configuration (model name,
	// endpoint, temperature default, ...), forwarded verbatim to the
	// registered constructor.
	Options map[string]string `yaml:"options,omitempty"`
}

// BenchmarkConfig names the tests a benchmark aggregates.
type BenchmarkConfig struct {
	// Tests lists the test uids this benchmark's score is computed from
	// (spec.md §4.7: "per (benchmark, sut) compute a benchmark score from
	// its hazards' test results").
	Tests []string `yaml:"tests" validate:"required"`
}

// TestConfig describes one test's worth of prompts and which SUTs/
// annotators to run them against, mirroring spec.md §3's "Test — a
// collection of TestItems plus a measurement function" scoped down to the
// part this module owns (prompt sourcing and SUT/annotator selection; the
// measurement function itself is scoring arithmetic, out of scope per
// spec.md's Non-goals).
type TestConfig struct {
	// PromptsPath is a CSV file using the prompt_uid/prompt_text schema
	// (pkg/promptpipeline.CSVPromptInput).
	PromptsPath string `yaml:"prompts_path" validate:"required"`
	// SUTs lists which configured SUT uids this test runs against.
	SUTs []string `yaml:"suts" validate:"required"`
	// Annotators lists which configured annotator uids score this test's
	// responses. Empty disables annotation entirely for this test (spec.md
	// §8's zero-annotators boundary case).
	Annotators []string `yaml:"annotators,omitempty"`
	// MaxItems caps how many prompts this test draws, 0 meaning
	// unbounded (spec.md §4.7 step 4).
	MaxItems int `yaml:"max_items,omitempty"`
	// EnsembleStrategy names a registered annotator.VoteStrategy to combine
	// Annotators' verdicts into a synthetic "ensemble" annotation. Empty
	// disables ensemble voting for this test.
	EnsembleStrategy string `yaml:"ensemble_strategy,omitempty"`
}

// YAMLConfig is the shape of the single YAML configuration file this
// package loads, mirroring the teacher's single-file-per-concern layout
// collapsed to one file since this module has far fewer configuration
// concerns than the teacher's MCP/agent/chain domain.
type YAMLConfig struct {
	DataDir    string                     `yaml:"data_dir"`
	Defaults   *Defaults                  `yaml:"defaults"`
	SUTs       map[string]ComponentConfig `yaml:"suts"`
	Annotators map[string]ComponentConfig `yaml:"annotators"`
	Tests      map[string]TestConfig      `yaml:"tests"`
	Benchmarks map[string]BenchmarkConfig `yaml:"benchmarks"`
}
